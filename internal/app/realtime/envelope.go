/*
Package realtime maintains the client's single connection to the game
server's topic-based realtime channel.

This file defines the canonical wire envelope. Frames are parsed exactly once
at this boundary; subscribers always receive structured data, never raw
strings in need of a second parse.
*/
package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Frame is the wire envelope carried on the websocket connection.
// Inbound frames carry Topic; outbound frames carry Destination.
type Frame struct {
	// Topic is the stream an inbound frame was published on.
	Topic string `json:"topic,omitempty"`

	// Destination is the stream an outbound frame is addressed to.
	Destination string `json:"destination,omitempty"`

	// Body is the JSON message body.
	Body json.RawMessage `json:"body,omitempty"`
}

// Envelope is what a subscription callback receives for one inbound frame.
// When the body could not be normalized to valid JSON, Err is set and Raw
// holds the original bytes; Body is nil in that case.
type Envelope struct {
	// Topic is the stream the frame arrived on.
	Topic string

	// Body is the normalized JSON message body.
	Body json.RawMessage

	// Err is non-nil when the body failed normalization.
	Err error

	// Raw preserves the original body bytes when Err is set.
	Raw []byte
}

// Callback handles inbound envelopes for one subscribed topic.
type Callback func(Envelope)

// Subscription is the handle returned by Subscribe. A nil handle means the
// subscription was not established.
type Subscription struct {
	// Topic is the subscribed stream.
	Topic string
}

// normalizeBody returns the structured JSON content of a frame body.
// Bodies that arrive double-encoded as a JSON string are unwrapped once here,
// so the ambiguity never reaches the message handlers.
func normalizeBody(body json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] != '"' {
		return trimmed, nil
	}

	var inner string
	if err := json.Unmarshal(trimmed, &inner); err != nil {
		return nil, fmt.Errorf("failed to unwrap string-encoded body: %w", err)
	}

	innerBytes := []byte(inner)
	if !json.Valid(innerBytes) {
		return nil, fmt.Errorf("string-encoded body does not contain valid JSON")
	}

	return innerBytes, nil
}
