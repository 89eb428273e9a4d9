// Package notify surfaces transient user-facing notices. Delivery is
// best-effort: a failed system notification is logged and swallowed, never
// propagated to the caller.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

// Notifier sends desktop notifications.
type Notifier struct {
	enabled bool
}

// New returns an enabled Notifier.
func New() *Notifier {
	return &Notifier{enabled: true}
}

// SetEnabled toggles notification delivery.
func (n *Notifier) SetEnabled(enabled bool) { n.enabled = enabled }

// Enabled reports whether notifications are delivered.
func (n *Notifier) Enabled() bool { return n.enabled }

// Notify shows a transient system notification with the given title and
// body. The notice is always logged; the desktop popup may silently fail on
// headless systems.
func (n *Notifier) Notify(title, body string) {
	if !n.enabled {
		return
	}
	slog.Info("notice", "title", title, "body", body)
	if err := beeep.Notify(title, body, ""); err != nil {
		slog.Warn("system notification failed", "err", err)
	}
}
