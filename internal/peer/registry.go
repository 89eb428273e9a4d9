// Package peer maintains the live set of peer connections.
//
// The Registry is the single piece of process-wide shared state: the accept
// loop and the dialer insert into it, every reader goroutine removes its own
// entry on failure, and the broadcast path iterates a snapshot of it. All
// mutations are short critical sections; no network I/O happens while the
// lock is held.
package peer

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/clipwire/clipwire/internal/wire"
)

// Entry is one registered peer: its identifier and open connection.
type Entry struct {
	ID   string
	Conn *wire.Conn
}

// Registry is a concurrency-safe map from peer ID to connection.
// A connection lives exactly as long as its entry: it is closed the moment
// it is removed, superseded, or cleared.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*wire.Conn
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*wire.Conn)}
}

// Insert registers conn under id. If an entry already exists under the same
// id it is superseded: the prior connection is closed and replaced, never
// merged.
func (r *Registry) Insert(id string, conn *wire.Conn) {
	r.mu.Lock()
	prior := r.conns[id]
	r.conns[id] = conn
	total := len(r.conns)
	r.mu.Unlock()

	if prior != nil {
		_ = prior.Close()
		slog.Warn("peer superseded", "peer", id)
	}
	slog.Info("peer registered", "peer", id, "total", total)
}

// Remove deregisters id and closes its connection. Removing an absent id is
// a no-op, so a reader goroutine and a failed broadcast write can both
// attempt removal without coordination.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	conn, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	total := len(r.conns)
	r.mu.Unlock()

	if !ok {
		return
	}
	_ = conn.Close()
	slog.Info("peer removed", "peer", id, "total", total)
}

// RemoveConn deregisters id only while conn is still the connection
// registered under it. A reader whose connection was superseded, or a
// broadcast sweep racing a supersede, holds a stale handle; removing by id
// alone would take the superseding connection down with it. The stale handle
// itself needs no close here: Insert already closed it when superseding.
func (r *Registry) RemoveConn(id string, conn *wire.Conn) {
	r.mu.Lock()
	cur, ok := r.conns[id]
	if !ok || cur != conn {
		r.mu.Unlock()
		return
	}
	delete(r.conns, id)
	total := len(r.conns)
	r.mu.Unlock()

	_ = conn.Close()
	slog.Info("peer removed", "peer", id, "total", total)
}

// Snapshot returns the current entries sorted by ID. Broadcast iterates this
// point-in-time copy instead of the live map so slow peer writes never hold
// the registry lock; a peer removed mid-broadcast may still receive one
// stale write attempt, which surfaces as an ordinary write failure.
func (r *Registry) Snapshot() []Entry {
	r.mu.Lock()
	entries := make([]Entry, 0, len(r.conns))
	for id, conn := range r.conns {
		entries = append(entries, Entry{ID: id, Conn: conn})
	}
	r.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// Count returns the number of registered peers.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Clear drops every connection. Used only at shutdown; each in-flight reader
// observes a closed stream on its next read and exits.
func (r *Registry) Clear() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*wire.Conn)
	r.mu.Unlock()

	for id, conn := range conns {
		_ = conn.Close()
		slog.Debug("peer dropped at shutdown", "peer", id)
	}
}
