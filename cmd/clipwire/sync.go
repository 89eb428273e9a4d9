package main

import (
	"context"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/clipwire/clipwire/internal/clip"
	"github.com/clipwire/clipwire/internal/message"
	"github.com/clipwire/clipwire/internal/node"
	"github.com/clipwire/clipwire/internal/notify"
)

const (
	pollInterval  = 500 * time.Millisecond
	previewLength = 50
)

// runSyncLoop is the sequential glue around the transport: it applies
// messages arriving on the node's inbox to the local clipboard and polls the
// clipboard for local changes to broadcast, until interrupted. Shutdown is
// invoked before returning.
func runSyncLoop(n *node.Node, backend clip.Backend, notifier *notify.Notifier) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := &syncState{n: n, backend: backend, notifier: notifier}

	go s.applyLoop(ctx)

	slog.Info("watching clipboard, press Ctrl+C to stop")
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			n.Shutdown()
			slog.Info("sync stopped")
			return
		case <-ticker.C:
			s.pollOnce()
		}
	}
}

// syncState tracks the last known clipboard content so the poll loop does
// not re-broadcast what it just received and does not broadcast an unchanged
// clipboard. lastText and lastKind are shared between the poll loop and the
// apply loop.
type syncState struct {
	n        *node.Node
	backend  clip.Backend
	notifier *notify.Notifier

	mu       sync.Mutex
	lastText string
	lastKind clip.Kind
}

// applyLoop consumes the node inbox and writes received content to the local
// clipboard. Last write wins; near-simultaneous changes are not reconciled.
func (s *syncState) applyLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.n.Inbox():
			if !ok {
				return
			}
			s.apply(msg)
		}
	}
}

func (s *syncState) apply(msg *message.Message) {
	preview := msg.Content.Preview(previewLength)
	slog.Info("clipboard message received",
		"from", msg.SenderName,
		"kind", msg.Content.Kind,
		"preview", preview,
	)

	switch msg.Content.Kind {
	case message.KindText:
		if err := s.backend.WriteText(msg.Content.Text); err != nil {
			slog.Error("clipboard text write failed", "err", err)
			return
		}
		s.mu.Lock()
		s.lastText = msg.Content.Text
		s.lastKind = clip.KindText
		s.mu.Unlock()
		s.notifier.Notify("Clipboard synced", preview)

	case message.KindImage:
		if err := s.backend.WriteImage(msg.Content.Width, msg.Content.Height, msg.Content.Data); err != nil {
			slog.Error("clipboard image write failed", "err", err)
			return
		}
		s.mu.Lock()
		s.lastText = ""
		s.lastKind = clip.KindImage
		s.mu.Unlock()
		s.notifier.Notify("Clipboard synced", preview)

	default:
		slog.Warn("unknown content kind, ignoring", "kind", msg.Content.Kind)
	}
}

// pollOnce reads the clipboard and broadcasts when it changed since the last
// observation. Text changes compare content; an image is broadcast only on
// the transition into the image state, so a large unchanged image is not
// re-sent every tick.
func (s *syncState) pollOnce() {
	content, err := s.backend.Read()
	if err != nil {
		slog.Error("clipboard read failed", "err", err)
		return
	}

	switch content.Kind {
	case clip.KindText:
		s.mu.Lock()
		changed := content.Text != "" && content.Text != s.lastText
		if changed {
			s.lastText = content.Text
			s.lastKind = clip.KindText
		}
		s.mu.Unlock()
		if !changed {
			return
		}
		slog.Debug("local clipboard changed", "kind", "text")
		if err := s.n.BroadcastText(content.Text); err != nil {
			slog.Error("text broadcast failed", "err", err)
		}

	case clip.KindImage:
		s.mu.Lock()
		changed := s.lastKind != clip.KindImage
		if changed {
			s.lastKind = clip.KindImage
			s.lastText = ""
		}
		s.mu.Unlock()
		if !changed {
			return
		}
		slog.Debug("local clipboard changed", "kind", "image",
			"width", content.Width, "height", content.Height)
		if err := s.n.BroadcastImage(content.Width, content.Height, content.Data); err != nil {
			slog.Error("image broadcast failed", "err", err)
		}

	case clip.KindEmpty:
		s.mu.Lock()
		if s.lastKind != clip.KindEmpty {
			s.lastKind = clip.KindEmpty
			s.lastText = ""
		}
		s.mu.Unlock()
	}
}
