// Package message defines the clipwire wire protocol payload.
//
// A message is a JSON document carried inside a length-prefixed frame (see
// package wire). Binary content (encoded image bytes) is base64-encoded by
// the JSON marshaller so it is safe to embed in strings.
package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Kind identifies the clipboard content variant.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// ErrMalformed is wrapped by Decode when the body cannot be parsed into the
// Message shape.
var ErrMalformed = errors.New("malformed message payload")

// Content is the tagged clipboard payload. Exactly one variant is populated:
// Text for KindText, Width/Height/Data for KindImage. Content is never
// mutated after construction.
type Content struct {
	Kind   Kind   `json:"kind"`
	Text   string `json:"text,omitempty"`
	Width  uint32 `json:"width,omitempty"`
	Height uint32 `json:"height,omitempty"`
	Data   []byte `json:"data,omitempty"` // encoded image bytes, opaque here
}

// Message is the unit of clipboard synchronization exchanged between peers.
//
// SenderID and SenderName are caller-supplied and not verified against the
// connection a message arrives on. Peers on the local network are trusted.
type Message struct {
	Content    Content `json:"content"`
	Timestamp  uint64  `json:"timestamp"` // seconds since epoch, set at construction
	SenderID   string  `json:"sender_id"`
	SenderName string  `json:"sender_name"`
}

// NewText creates a text clipboard message stamped with the current time.
func NewText(text, senderID, senderName string) *Message {
	return &Message{
		Content:    Content{Kind: KindText, Text: text},
		Timestamp:  uint64(time.Now().Unix()),
		SenderID:   senderID,
		SenderName: senderName,
	}
}

// NewImage creates an image clipboard message stamped with the current time.
// data is an encoded still image (PNG on every supported platform) and is
// not inspected by this layer.
func NewImage(width, height uint32, data []byte, senderID, senderName string) *Message {
	return &Message{
		Content:    Content{Kind: KindImage, Width: width, Height: height, Data: data},
		Timestamp:  uint64(time.Now().Unix()),
		SenderID:   senderID,
		SenderName: senderName,
	}
}

// Encode serialises the message to JSON.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a message from raw JSON bytes.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &m, nil
}

// Preview returns a short human-readable summary of the content for logs and
// notifications: truncated text, or the image dimensions.
func (c Content) Preview(maxRunes int) string {
	switch c.Kind {
	case KindImage:
		return fmt.Sprintf("image %dx%d", c.Width, c.Height)
	default:
		if utf8.RuneCountInString(c.Text) <= maxRunes {
			return c.Text
		}
		runes := []rune(c.Text)
		return string(runes[:maxRunes]) + "..."
	}
}
