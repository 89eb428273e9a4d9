package wire

import (
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/clipwire/clipwire/internal/message"
)

func TestEncodeFramePrefix(t *testing.T) {
	msg := message.NewText("abc", "id", "name")
	frame, err := EncodeFrame(msg)
	if err != nil {
		t.Fatalf("encode frame: %v", err)
	}

	declared := binary.BigEndian.Uint32(frame[:4])
	if int(declared) != len(frame)-4 {
		t.Fatalf("declared length %d, body length %d", declared, len(frame)-4)
	}

	got, err := message.Decode(frame[4:])
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Content.Text != "abc" {
		t.Fatalf("text = %q", got.Content.Text)
	}
}

func TestReadMsgRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		_ = New(client).WriteMsg(message.NewText("over the wire", "id", "name"))
	}()

	got, err := New(server).ReadMsg()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Content.Text != "over the wire" {
		t.Fatalf("text = %q", got.Content.Text)
	}
}

// A frame delivered in pieces must block until complete, never decode early.
func TestReadMsgWaitsForFullFrame(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	msg := message.NewText("split delivery", "id", "name")
	frame, err := EncodeFrame(msg)
	if err != nil {
		t.Fatalf("encode frame: %v", err)
	}

	go func() {
		half := len(frame) / 2
		if _, err := client.Write(frame[:half]); err != nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
		_, _ = client.Write(frame[half:])
	}()

	done := make(chan *message.Message, 1)
	errCh := make(chan error, 1)
	go func() {
		m, err := New(server).ReadMsg()
		if err != nil {
			errCh <- err
			return
		}
		done <- m
	}()

	select {
	case m := <-done:
		if m.Content.Text != "split delivery" {
			t.Fatalf("text = %q", m.Content.Text)
		}
	case err := <-errCh:
		t.Fatalf("read: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("read did not complete")
	}
}

func TestReadMsgRejectsOversizedFrame(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], MaxFrameSize+1)
	go func() {
		_, _ = client.Write(prefix[:])
	}()

	_, err := New(server).ReadMsg()
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}
}

func TestReadMsgMalformedBody(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	body := []byte("definitely not json")
	frame := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[4:], body)

	go func() {
		_, _ = client.Write(frame)
	}()

	_, err := New(server).ReadMsg()
	if !errors.Is(err, message.ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}
