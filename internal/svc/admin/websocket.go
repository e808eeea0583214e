package admin

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// statsPushInterval is how often a connected /stats/ws client receives a
// fresh snapshot.
const statsPushInterval = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStatsWS handles GET /stats/ws: upgrades to a websocket and pushes a
// snapshot every statsPushInterval until the client disconnects.
func (s *Service) handleStatsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return // upgrade failed, response already sent
	}
	defer conn.Close()

	ticker := time.NewTicker(statsPushInterval)
	defer ticker.Stop()

	if err := conn.WriteJSON(s.snapshot()); err != nil {
		return
	}

	for range ticker.C {
		if err := conn.WriteJSON(s.snapshot()); err != nil {
			return
		}
	}
}
