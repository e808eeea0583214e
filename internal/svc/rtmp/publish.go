package rtmp

import (
	"rtmplex/internal/core/bus"
	"rtmplex/internal/core/protocol/amf0"
	"rtmplex/internal/core/protocol/rtmp"
)

// handleMediaMessage routes an Audio/Video/DataAmf0 message from a
// publishing connection onto its stream's bus fan-out (spec.md §4.5).
func (c *Conn) handleMediaMessage(typeID byte, timestamp uint32, payload []byte) {
	if c.role.stream == nil || c.role.publisherID == 0 {
		return // not currently publishing; ignore stray media messages
	}

	switch typeID {
	case rtmp.MessageTypeAudio:
		c.role.stream.Publish(&bus.MediaMessage{Kind: bus.KindAudio, Timestamp: timestamp, Payload: payload})
	case rtmp.MessageTypeVideo:
		c.role.stream.Publish(&bus.MediaMessage{Kind: bus.KindVideo, Timestamp: timestamp, Payload: payload})
	case rtmp.MessageTypeDataAmf0:
		c.handleDataMessage(payload)
	}
}

// setDataFrameName is the AMF-0 string command wrapping an onMetaData data
// message: `@setDataFrame, "onMetaData", ecmaArray` (spec.md §4.5).
const setDataFrameName = "@setDataFrame"

// handleDataMessage strips a `@setDataFrame` wrapper, caches the inner
// onMetaData payload as the stream's metadata, and broadcasts the
// original (wrapper-included) bytes to current subscribers.
func (c *Conn) handleDataMessage(payload []byte) {
	values, err := amf0.DecodeCommand(payload)
	if err != nil || len(values) == 0 {
		return
	}
	name, ok := amf0.AsString(values[0])
	if !ok || name != setDataFrameName {
		return
	}

	inner, err := amf0.EncodeCommand(values[1:]...)
	if err != nil {
		return
	}

	c.role.stream.Publish(&bus.MediaMessage{Kind: bus.KindMetadata, Timestamp: 0, Payload: payload})
	// The cached metadata replayed to later subscribers must be the inner
	// message only (without the @setDataFrame wrapper); Stream.Publish
	// does not cache, so the broadcast copy (with wrapper, for current
	// subscribers) and the cached copy (without wrapper, for late joiners)
	// are handed to the stream in two distinct steps.
	c.role.stream.CacheMetadata(&bus.MediaMessage{Kind: bus.KindMetadata, Timestamp: 0, Payload: inner})
}
