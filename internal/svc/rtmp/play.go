package rtmp

import (
	"errors"

	"rtmplex/internal/core/bus"
	"rtmplex/internal/core/protocol/amf0"
	"rtmplex/internal/core/protocol/rtmp"
)

// defaultSubscriberBufferCapacity bounds how many undelivered messages a
// slow subscriber can accumulate before the ring buffer starts dropping
// (spec.md §5 backpressure), when no explicit capacity is configured.
const defaultSubscriberBufferCapacity = 256

// handlePlay implements spec.md §4.4 `play`.
func (c *Conn) handlePlay(messageStreamID uint32, values []amf0.Value) error {
	if len(values) < 4 {
		return errors.New("rtmp: play command missing stream name")
	}
	name, ok := amf0.AsString(values[3])
	if !ok {
		return errors.New("rtmp: play command stream name not a string")
	}

	c.maxChunkSizeWrite = rtmp.MaxChunkSize
	if err := c.writeMessage(rtmp.ProtocolControlChunkStreamID, rtmp.MessageTypeSetChunkSize, 0,
		rtmp.NetConnectionMessageStreamID, encodeSetChunkSize(rtmp.MaxChunkSize)); err != nil {
		return err
	}
	c.writer.SetMaxChunkSize(rtmp.MaxChunkSize)

	if err := c.writeMessage(rtmp.ProtocolControlChunkStreamID, rtmp.MessageTypeUserControl, 0,
		rtmp.NetConnectionMessageStreamID, encodeUserControlStreamBegin(messageStreamID)); err != nil {
		return err
	}

	if err := c.sendOnStatus(messageStreamID, "status", "NetStream.Play.Reset", "Resetting playback."); err != nil {
		return err
	}
	if err := c.sendOnStatus(messageStreamID, "status", "NetStream.Play.Start", "Playback started."); err != nil {
		return err
	}
	if err := c.sendSampleAccess(messageStreamID); err != nil {
		return err
	}

	stream := c.registry.GetOrCreate(name)
	sub := stream.AttachSubscriber(c.subscriberBufferCapacity, bus.BackpressureDropOldest)
	c.role = role{stream: stream, streamName: name, subscriber: sub, done: make(chan struct{})}
	c.state = statePlaying

	go c.drainSubscriber(messageStreamID, sub, c.role.done)
	return nil
}

// sendSampleAccess sends the `|RtmpSampleAccess` data message spec.md §4.4
// requires after NetStream.Play.Start.
func (c *Conn) sendSampleAccess(messageStreamID uint32) error {
	body, err := amf0.EncodeCommand(amf0.String("|RtmpSampleAccess"), amf0.Boolean(true), amf0.Boolean(true))
	if err != nil {
		return err
	}
	return c.writeMessage(5, rtmp.MessageTypeDataAmf0, 0, messageStreamID, body)
}

// drainSubscriber forwards messages fanned out by the bus to this
// connection's socket until the subscriber is detached or a write fails.
// Runs on its own goroutine, woken by Subscriber.Notify() rather than
// polling, so a slow publisher broadcast never blocks on this connection's
// network write (spec.md design note on send handles).
func (c *Conn) drainSubscriber(messageStreamID uint32, sub *bus.Subscriber, done chan struct{}) {
	for {
		msg, ok := sub.Buffer().Read()
		if !ok {
			select {
			case <-done:
				return
			case <-sub.Notify():
				continue
			}
		}

		typeID := byte(rtmp.MessageTypeVideo)
		switch msg.Kind {
		case bus.KindAudio:
			typeID = rtmp.MessageTypeAudio
		case bus.KindVideo:
			typeID = rtmp.MessageTypeVideo
		case bus.KindMetadata:
			typeID = rtmp.MessageTypeDataAmf0
		}

		if err := c.writeMessage(6, typeID, msg.Timestamp, messageStreamID, msg.Payload); err != nil {
			c.Close()
			return
		}
	}
}
