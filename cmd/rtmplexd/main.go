// This is the main entrypoint for the rtmplex server. It takes no flags:
// the RTMP listen port comes from the PORT environment variable and every
// other tunable comes from an optional YAML config file.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"rtmplex/internal/config"
	"rtmplex/internal/server"
)

// defaultRTMPPort is used when PORT is unset, per spec.md §6.
const defaultRTMPPort = 7122

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	rtmpPort, err := rtmpPortFromEnv()
	if err != nil {
		log.Fatalf("invalid PORT: %v", err)
	}

	ctx := context.Background()
	srv := server.New(cfg)
	shutdownHandler := server.NewShutdownHandler(srv, ctx)

	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", rtmpPort)); err != nil && err != http.ErrServerClosed {
			log.Printf("server error: %v", err)
			os.Exit(1)
		}
	}()

	if err := shutdownHandler.Wait(); err != nil {
		log.Printf("shutdown error: %v", err)
		os.Exit(1)
	}

	log.Println("server shut down cleanly")
}

// rtmpPortFromEnv reads PORT, falling back to defaultRTMPPort when unset.
func rtmpPortFromEnv() (int, error) {
	v := os.Getenv("PORT")
	if v == "" {
		return defaultRTMPPort, nil
	}
	return strconv.Atoi(v)
}
