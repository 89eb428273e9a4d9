// Package wire handles reading and writing length-prefixed JSON messages
// over a net.Conn.
//
// Wire format (symmetric, per direction):
//
//	<length uint32 big-endian> <json body>
//
// The length covers the body only. Bodies larger than MaxFrameSize are
// rejected before a single body byte is read, so a hostile or broken peer
// cannot make us allocate an arbitrary buffer.
package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/clipwire/clipwire/internal/message"
)

const (
	// MaxFrameSize is the largest message body we will read or write (10 MiB).
	MaxFrameSize = 10 * 1024 * 1024

	lenPrefixSize = 4
	writeDeadline = 5 * time.Second
)

// ErrFrameTooLarge is returned when a frame's declared length exceeds
// MaxFrameSize. The body is not read.
var ErrFrameTooLarge = errors.New("frame exceeds maximum message size")

// EncodeFrame serialises msg and prepends the big-endian length prefix.
// The returned slice is a complete frame ready to write to any peer, so a
// broadcast encodes once and reuses the bytes.
func EncodeFrame(msg *message.Message) ([]byte, error) {
	body, err := msg.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	if len(body) > MaxFrameSize {
		return nil, fmt.Errorf("encode: %w (%d bytes)", ErrFrameTooLarge, len(body))
	}
	frame := make([]byte, lenPrefixSize+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[lenPrefixSize:], body)
	return frame, nil
}

// Conn wraps a net.Conn with buffered length-prefixed JSON framing.
// Reads belong to a single reader goroutine; writes may come from a
// different goroutine but must not overlap each other.
type Conn struct {
	conn net.Conn
	br   *bufio.Reader
}

// New wraps conn.
func New(conn net.Conn) *Conn {
	return &Conn{
		conn: conn,
		br:   bufio.NewReaderSize(conn, 64*1024),
	}
}

// Underlying returns the underlying net.Conn.
func (c *Conn) Underlying() net.Conn { return c.conn }

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.conn.Close() }

// SetReadDeadline sets or clears the read deadline.
func (c *Conn) SetReadDeadline(d time.Duration) {
	if d == 0 {
		_ = c.conn.SetReadDeadline(time.Time{})
	} else {
		_ = c.conn.SetReadDeadline(time.Now().Add(d))
	}
}

// WriteFrame writes one pre-encoded frame under the write deadline.
func (c *Conn) WriteFrame(frame []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	_, err := c.conn.Write(frame)
	_ = c.conn.SetWriteDeadline(time.Time{})
	return err
}

// WriteMsg serialises msg and writes it as a single frame.
func (c *Conn) WriteMsg(msg *message.Message) error {
	frame, err := EncodeFrame(msg)
	if err != nil {
		return err
	}
	return c.WriteFrame(frame)
}

// ReadMsg reads exactly one frame and deserialises it into a Message.
// It blocks until a full frame is available; a partial frame is never
// decoded. A declared length above MaxFrameSize returns ErrFrameTooLarge
// without reading the body. Any read error, including a clean remote
// close, is returned as-is for the caller to classify.
func (c *Conn) ReadMsg() (*message.Message, error) {
	var prefix [lenPrefixSize]byte
	if _, err := io.ReadFull(c.br, prefix[:]); err != nil {
		return nil, err
	}

	bodyLen := binary.BigEndian.Uint32(prefix[:])
	if bodyLen > MaxFrameSize {
		return nil, fmt.Errorf("%w (%d bytes declared)", ErrFrameTooLarge, bodyLen)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(c.br, body); err != nil {
		return nil, err
	}

	return message.Decode(body)
}
