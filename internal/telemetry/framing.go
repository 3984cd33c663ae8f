package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const eventPrefix = "42"

var (
	ErrNotEvent  = errors.New("telemetry: not an event frame")
	ErrNoData    = errors.New("telemetry: frame carries no data")
	ErrMalformed = errors.New("telemetry: malformed frame")
)

// IsEvent reports whether a websocket message is a socket.io event.
func IsEvent(msg string) bool {
	return len(msg) > len(eventPrefix) && strings.HasPrefix(msg, eventPrefix)
}

// Extract returns the JSON array inside an event frame: the text from the
// first '[' to the last "}]". A frame containing null, or without both
// brackets, carries no data.
func Extract(msg string) (string, bool) {
	if strings.Contains(msg, "null") {
		return "", false
	}
	b1 := strings.Index(msg, "[")
	b2 := strings.LastIndex(msg, "}]")
	if b1 < 0 || b2 < 0 || b2 < b1 {
		return "", false
	}
	return msg[b1 : b2+2], true
}

// Frame is a decoded event.
type Frame struct {
	Event   string
	Payload json.RawMessage
}

// Parse decodes an event frame. It returns ErrNotEvent for other socket.io
// packets and ErrNoData for empty telemetry.
func Parse(msg string) (*Frame, error) {
	if !IsEvent(msg) {
		return nil, ErrNotEvent
	}
	body, ok := Extract(msg)
	if !ok {
		return nil, ErrNoData
	}

	var parts []json.RawMessage
	if err := json.Unmarshal([]byte(body), &parts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: %d elements", ErrMalformed, len(parts))
	}

	var event string
	if err := json.Unmarshal(parts[0], &event); err != nil {
		return nil, fmt.Errorf("%w: event name: %v", ErrMalformed, err)
	}
	return &Frame{Event: event, Payload: parts[1]}, nil
}

// Encode builds an event frame.
func Encode(event string, payload any) ([]byte, error) {
	body, err := json.Marshal([]any{event, payload})
	if err != nil {
		return nil, err
	}
	return append([]byte(eventPrefix), body...), nil
}
