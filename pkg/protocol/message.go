// Package protocol defines the messages exchanged between the live client
// script and the server, and the codecs that frame them.
package protocol

import (
	"fmt"
	"time"
)

// Event names understood by both ends.
const (
	EventJoin      = "phx_join"
	EventLeave     = "phx_leave"
	EventHeartbeat = "heartbeat"
	EventReply     = "phx_reply"
	EventError     = "phx_error"
	EventDiff      = "diff"
	EventRedirect  = "live_redirect"

	// Form events sent by the client script.
	EventChange = "change"
	EventSubmit = "submit"
)

// Message represents a protocol message exchanged between client and server.
type Message struct {
	// Ref correlates a reply with the request that caused it.
	Ref string `json:"ref,omitempty" msgpack:"ref,omitempty"`

	// Topic is the channel, "lv:<socket id>".
	Topic string `json:"topic" msgpack:"topic"`

	Event string `json:"event" msgpack:"event"`

	Payload map[string]any `json:"payload,omitempty" msgpack:"payload,omitempty"`

	// Timestamp in Unix milliseconds.
	Timestamp int64 `json:"ts,omitempty" msgpack:"ts,omitempty"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(topic, event string, payload map[string]any) *Message {
	if payload == nil {
		payload = make(map[string]any)
	}
	return &Message{
		Topic:     topic,
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// WithRef sets the reference ID.
func (m *Message) WithRef(ref string) *Message {
	m.Ref = ref
	return m
}

// String retrieves a payload value as a string. Numbers and booleans are
// formatted; anything else yields "".
func (m *Message) String(key string) string {
	if m.Payload == nil {
		return ""
	}
	switch v := m.Payload[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

// Map retrieves a nested object from the payload.
func (m *Message) Map(key string) map[string]any {
	if m.Payload == nil {
		return nil
	}
	v, _ := m.Payload[key].(map[string]any)
	return v
}

// ReplyMessage creates a reply to ref.
func ReplyMessage(ref, topic, status string, response map[string]any) *Message {
	if response == nil {
		response = map[string]any{}
	}
	return NewMessage(topic, EventReply, map[string]any{
		"status":   status,
		"response": response,
	}).WithRef(ref)
}

// OkReply creates a successful reply.
func OkReply(ref, topic string, response map[string]any) *Message {
	return ReplyMessage(ref, topic, "ok", response)
}

// ErrorReply creates an error reply. The reason is shown to nobody; the
// client script only logs it.
func ErrorReply(ref, topic, reason string) *Message {
	return NewMessage(topic, EventError, map[string]any{"reason": reason}).WithRef(ref)
}

// DiffMessage carries a full re-render in "f".
func DiffMessage(topic string, version uint64, html string) *Message {
	return NewMessage(topic, EventDiff, map[string]any{
		"v": version,
		"f": html,
	})
}

// RedirectMessage tells the client to navigate to path.
func RedirectMessage(topic, to string) *Message {
	return NewMessage(topic, EventRedirect, map[string]any{"to": to})
}
