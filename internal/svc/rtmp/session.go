package rtmp

import (
	"rtmplex/internal/core/protocol/amf0"
	"rtmplex/internal/core/protocol/rtmp"
	"rtmplex/internal/rtmperr"
)

// handleCommand decodes and dispatches one AMF-0 command message arriving
// on messageStreamID, per the state machine in spec.md §4.4.
func (c *Conn) handleCommand(messageStreamID uint32, body []byte) error {
	values, err := amf0.DecodeCommand(body)
	if err != nil {
		return &rtmperr.MalformedAmf{Op: "command", Err: err}
	}
	if len(values) == 0 {
		return &rtmperr.NonStringCommand{}
	}
	name, ok := amf0.AsString(values[0])
	if !ok {
		return &rtmperr.NonStringCommand{}
	}

	switch name {
	case "connect":
		return c.handleConnect(values)
	case "releaseStream", "FCPublish", "FCUnpublish":
		return nil // args discarded, no wire response required
	case "createStream":
		return c.handleCreateStream(values)
	case "publish":
		return c.handlePublish(messageStreamID, values)
	case "play":
		return c.handlePlay(messageStreamID, values)
	case "pause":
		return c.handlePause(values)
	case "seek":
		return c.handleSeek(messageStreamID, values)
	case "deleteStream":
		c.Close()
		return nil
	case "getStreamLength":
		return c.handleGetStreamLength(values)
	default:
		return &rtmperr.UnknownCommand{Name: name}
	}
}

func transactionID(values []amf0.Value) float64 {
	if len(values) < 2 {
		return 0
	}
	tx, _ := amf0.AsNumber(values[1])
	return tx
}

// handleConnect performs the Connected -> Ready transition (spec.md §4.4).
func (c *Conn) handleConnect(values []amf0.Value) error {
	app := ""
	if len(values) >= 3 {
		if obj, ok := amf0.AsObject(values[2]); ok {
			if a, ok := amf0.AsString(obj["app"]); ok {
				app = a
			}
		}
	}
	c.app = app

	const csidControl = rtmp.ProtocolControlChunkStreamID
	const streamID0 = rtmp.NetConnectionMessageStreamID

	if err := c.writeMessage(csidControl, rtmp.MessageTypeAck, 0, streamID0, encodeAck(0)); err != nil {
		return err
	}
	if err := c.writeMessage(csidControl, rtmp.MessageTypeWindowAckSize, 0, streamID0, encodeWindowAckSize(1<<20)); err != nil {
		return err
	}
	if err := c.writeMessage(csidControl, rtmp.MessageTypeSetPeerBandwidth, 0, streamID0, encodeSetPeerBandwidth(1<<20, rtmp.BandwidthLimitDynamic)); err != nil {
		return err
	}
	if err := c.writeMessage(csidControl, rtmp.MessageTypeUserControl, 0, streamID0, encodeUserControlStreamBegin(streamID0)); err != nil {
		return err
	}

	result := amf0.Object{
		"fmsVer":       amf0.String("FMS/3,5,5,2004"),
		"capabilities": amf0.Number(31),
		"mode":         amf0.Number(1),
	}
	info := amf0.Object{
		"level":          amf0.String("status"),
		"code":           amf0.String("NetConnection.Connect.Success"),
		"description":    amf0.String("Connection succeeded."),
		"objectEncoding": amf0.Number(0),
	}
	body, err := amf0.EncodeCommand(amf0.String("_result"), amf0.Number(transactionID(values)), result, info)
	if err != nil {
		return err
	}
	c.state = stateReady
	return c.writeMessage(3, rtmp.MessageTypeCommandAmf0, 0, streamID0, body)
}

// handleCreateStream responds with the message-stream id the client should
// use for subsequent publish/play commands.
func (c *Conn) handleCreateStream(values []amf0.Value) error {
	const streamID = 1
	body, err := amf0.EncodeCommand(amf0.String("_result"), amf0.Number(transactionID(values)), amf0.Null{}, amf0.Number(streamID))
	if err != nil {
		return err
	}
	return c.writeMessage(3, rtmp.MessageTypeCommandAmf0, 0, rtmp.NetConnectionMessageStreamID, body)
}

func (c *Conn) sendOnStatus(messageStreamID uint32, level, code, description string) error {
	status := amf0.Object{
		"level":       amf0.String(level),
		"code":        amf0.String(code),
		"description": amf0.String(description),
	}
	body, err := amf0.EncodeCommand(amf0.String("onStatus"), amf0.Number(0), amf0.Null{}, status)
	if err != nil {
		return err
	}
	return c.writeMessage(5, rtmp.MessageTypeCommandAmf0, 0, messageStreamID, body)
}

// handlePublish implements spec.md §4.4 `publish`.
func (c *Conn) handlePublish(messageStreamID uint32, values []amf0.Value) error {
	if len(values) < 4 {
		return &rtmperr.MalformedAmf{Op: "publish"}
	}
	name, ok := amf0.AsString(values[3])
	if !ok {
		return &rtmperr.MalformedAmf{Op: "publish.name"}
	}

	stream := c.registry.GetOrCreate(name)
	publisherID := uint64(messageStreamID)<<32 | 1 // same for every connection on this message-stream id; AttachPublisher admits only one per stream
	if !stream.AttachPublisher(publisherID) {
		return c.sendOnStatus(messageStreamID, "error", "NetStream.Publish.Denied", "Stream already has a publisher.")
	}

	c.role = role{stream: stream, streamName: name, publisherID: publisherID}
	c.state = statePublishing
	return c.sendOnStatus(messageStreamID, "status", "NetStream.Publish.Start", "Start publishing.")
}

// handlePause implements spec.md §4.4 `pause`.
func (c *Conn) handlePause(values []amf0.Value) error {
	if c.role.subscriber == nil {
		return nil
	}
	paused := false
	if len(values) >= 3 {
		if b, ok := values[2].(amf0.Boolean); ok {
			paused = bool(b)
		}
	}
	c.role.subscriber.SetPaused(paused)
	return c.sendOnStatus(0, "status", "NetStream.Pause.Notify", "Pause toggled.")
}

// handleSeek implements spec.md §4.4 `seek`: live streams don't support it.
func (c *Conn) handleSeek(messageStreamID uint32, _ []amf0.Value) error {
	return c.sendOnStatus(messageStreamID, "error", "NetStream.Seek.Notify", "Seek is not supported on live streams.")
}

// handleGetStreamLength resolves the spec.md §9 open question: respond
// with a negative duration, signaling a live (non-seekable, unknown
// length) stream, rather than staying silent.
func (c *Conn) handleGetStreamLength(values []amf0.Value) error {
	body, err := amf0.EncodeCommand(amf0.String("_result"), amf0.Number(transactionID(values)), amf0.Null{}, amf0.Number(-1))
	if err != nil {
		return err
	}
	return c.writeMessage(3, rtmp.MessageTypeCommandAmf0, 0, rtmp.NetConnectionMessageStreamID, body)
}

// handleControlMessage handles the protocol control messages of spec.md
// §4.6, which apply regardless of command state.
func (c *Conn) handleControlMessage(typeID byte, body []byte) error {
	switch typeID {
	case rtmp.MessageTypeSetChunkSize:
		size, err := parseSetChunkSize(body)
		if err != nil {
			return &rtmperr.MalformedAmf{Op: "SetChunkSize", Err: err}
		}
		c.reader.SetMaxChunkSize(size)
	case rtmp.MessageTypeAbort:
		csid, err := parseAbortCsid(body)
		if err != nil {
			return &rtmperr.MalformedAmf{Op: "Abort", Err: err}
		}
		c.reader.Abort(csid)
	case rtmp.MessageTypeAck, rtmp.MessageTypeWindowAckSize, rtmp.MessageTypeSetPeerBandwidth:
		// Recorded for diagnostics only; no action required (spec.md §4.6).
	case rtmp.MessageTypeUserControl:
		// StreamBegin/SetBufferLength recognized but require no reply;
		// others ignored, per spec.md §4.6.
	}
	return nil
}
