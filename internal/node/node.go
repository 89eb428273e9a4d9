// Package node ties the transport together: it accepts and dials peer
// connections, runs one reader goroutine per connection, fans inbound
// messages into a single channel, and broadcasts outbound messages to every
// registered peer.
//
// Fault containment: a per-connection failure (remote close, oversized
// frame, malformed payload, failed write) is contained to that connection.
// It surfaces as a registry removal and a log line, never as an error from
// the accept loop, the broadcast call, or the consuming application. Only
// dial-time and encode-time faults are returned to the caller. There is no
// automatic reconnection; a dropped peer must dial back in or be re-dialed.
package node

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/clipwire/clipwire/internal/message"
	"github.com/clipwire/clipwire/internal/peer"
	"github.com/clipwire/clipwire/internal/wire"
)

const (
	dialTimeout      = 10 * time.Second
	acceptRetryDelay = 100 * time.Millisecond

	// inboxBacklog bounds how many undelivered inbound messages we hold for
	// a slow consumer before dropping; a reader goroutine is never blocked
	// on the inbox.
	inboxBacklog = 256
)

// Dial errors, surfaced to the ConnectTo caller and never retried here.
var (
	ErrConnectTimeout = errors.New("connect timed out")
	ErrConnectFailed  = errors.New("connect failed")
)

// Node is the peer connection and message transport layer. One Node is
// created per process; it acts as listener (Start) or dialer (ConnectTo),
// and both roles may be combined.
type Node struct {
	deviceID   string
	deviceName string

	registry *peer.Registry
	inbox    chan *message.Message
	running  atomic.Bool
	listener net.Listener
}

// New creates a Node identified by deviceName. The device ID used as the
// sender identity on outbound messages is a fresh UUID; it is informational
// only and not verified by receivers.
func New(deviceName string) *Node {
	return &Node{
		deviceID:   uuid.NewString(),
		deviceName: deviceName,
		registry:   peer.NewRegistry(),
		inbox:      make(chan *message.Message, inboxBacklog),
	}
}

// DeviceID returns the node's generated sender identity.
func (n *Node) DeviceID() string { return n.deviceID }

// DeviceName returns the configured display name.
func (n *Node) DeviceName() string { return n.deviceName }

// Inbox returns the channel on which messages from all peers arrive, each
// peer's messages in the order that peer sent them. The node is the only
// producer side; the application's dispatch loop is expected to be the sole
// consumer.
func (n *Node) Inbox() <-chan *message.Message { return n.inbox }

// PeerCount returns the number of live peer connections.
func (n *Node) PeerCount() int { return n.registry.Count() }

// Addr returns the listening address, or nil before Start.
func (n *Node) Addr() net.Addr {
	if n.listener == nil {
		return nil
	}
	return n.listener.Addr()
}

// Registry exposes the live connection set, mainly for status output.
func (n *Node) Registry() *peer.Registry { return n.registry }

// Start binds a TCP listener on port and begins accepting peers in the
// background. Accept errors are logged and retried after a short delay;
// they never stop the loop.
func (n *Node) Start(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen port %d: %w", port, err)
	}
	n.listener = ln
	n.running.Store(true)

	slog.Info("listening for peers", "addr", ln.Addr(), "device", n.deviceName)
	go n.acceptLoop(ln)
	return nil
}

func (n *Node) acceptLoop(ln net.Listener) {
	for n.running.Load() {
		conn, err := ln.Accept()
		if err != nil {
			if !n.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Error("accept failed", "err", err)
			time.Sleep(acceptRetryDelay)
			continue
		}

		// Inbound ids carry the client_ prefix; dialed peers use server_,
		// so the two namespaces cannot collide.
		id := "client_" + conn.RemoteAddr().String()
		slog.Info("peer connected", "peer", id)

		wc := wire.New(conn)
		n.registry.Insert(id, wc)
		go n.readLoop(id, wc)
	}
}

// ConnectTo dials ip:port with a bounded timeout, registers the connection,
// and starts its reader. The returned peer ID identifies the connection for
// the rest of its life. Timeouts surface as ErrConnectTimeout, refusals and
// other socket errors as ErrConnectFailed with the cause attached.
func (n *Node) ConnectTo(ip string, port int) (string, error) {
	addr := net.JoinHostPort(ip, fmt.Sprintf("%d", port))
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return "", fmt.Errorf("%w: %s", ErrConnectTimeout, addr)
		}
		return "", fmt.Errorf("%w: %s: %v", ErrConnectFailed, addr, err)
	}

	id := "server_" + addr
	slog.Info("connected to peer", "peer", id)

	wc := wire.New(conn)
	n.registry.Insert(id, wc)
	go n.readLoop(id, wc)
	return id, nil
}

// readLoop decodes frames from one connection and forwards them to the
// inbox until the connection fails, then removes its own registry entry
// (which closes the connection) and exits. A malformed payload terminates
// the peer; no attempt is made to resynchronize the byte stream.
// Deregistration is conditional on the connection identity: when a fresh
// dial to the same target supersedes this entry, the stale reader wakes on
// the closed stream and must not delete the replacement.
func (n *Node) readLoop(id string, wc *wire.Conn) {
	defer n.registry.RemoveConn(id, wc)
	log := slog.With("peer", id)

	for {
		msg, err := wc.ReadMsg()
		if err != nil {
			switch {
			case errors.Is(err, wire.ErrFrameTooLarge):
				log.Warn("oversized frame, dropping peer", "err", err)
			case errors.Is(err, message.ErrMalformed):
				log.Warn("malformed payload, dropping peer", "err", err)
			case errors.Is(err, net.ErrClosed):
				// shutdown or supersede path; already logged elsewhere
			default:
				log.Info("connection closed", "err", err)
			}
			return
		}

		select {
		case n.inbox <- msg:
		default:
			log.Warn("inbox full, dropping message",
				"from", msg.SenderName, "kind", msg.Content.Kind)
		}
	}
}

// Broadcast encodes msg once and writes the frame to every registered peer.
// A peer whose write fails is removed and the sweep continues: one
// unreachable peer never blocks delivery to the rest, and partial delivery
// is the expected steady state. The only returned failure is an encoding
// failure. Callers must not run overlapping Broadcast calls.
func (n *Node) Broadcast(msg *message.Message) error {
	frame, err := wire.EncodeFrame(msg)
	if err != nil {
		return err
	}

	entries := n.registry.Snapshot()
	var failed []peer.Entry
	for _, e := range entries {
		if err := e.Conn.WriteFrame(frame); err != nil {
			slog.Warn("broadcast write failed", "peer", e.ID, "err", err)
			failed = append(failed, e)
			continue
		}
		slog.Debug("broadcast delivered", "peer", e.ID)
	}
	for _, e := range failed {
		// Identity-conditional: the id may already belong to a superseding
		// connection registered after the snapshot was taken.
		n.registry.RemoveConn(e.ID, e.Conn)
	}

	slog.Info("broadcast complete",
		"kind", msg.Content.Kind,
		"delivered", len(entries)-len(failed),
		"failed", len(failed),
	)
	return nil
}

// BroadcastText is a convenience wrapper stamping the node's identity onto a
// text message.
func (n *Node) BroadcastText(text string) error {
	return n.Broadcast(message.NewText(text, n.deviceID, n.deviceName))
}

// BroadcastImage is a convenience wrapper stamping the node's identity onto
// an image message.
func (n *Node) BroadcastImage(width, height uint32, data []byte) error {
	return n.Broadcast(message.NewImage(width, height, data, n.deviceID, n.deviceName))
}

// Shutdown stops accepting, drops every peer connection, and returns without
// waiting for reader goroutines: each observes its closed stream on the next
// read and self-terminates.
func (n *Node) Shutdown() {
	n.running.Store(false)
	if n.listener != nil {
		_ = n.listener.Close()
	}
	n.registry.Clear()
	slog.Info("node stopped")
}
