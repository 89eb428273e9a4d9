package node

import (
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/clipwire/clipwire/internal/message"
	"github.com/clipwire/clipwire/internal/wire"
)

func startNode(t *testing.T, name string) (*Node, int) {
	t.Helper()
	n := New(name)
	if err := n.Start(0); err != nil {
		t.Fatalf("start %s: %v", name, err)
	}
	t.Cleanup(n.Shutdown)
	return n, n.Addr().(*net.TCPAddr).Port
}

func waitForPeers(t *testing.T, n *Node, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n.PeerCount() == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("peer count = %d, want %d", n.PeerCount(), want)
}

func TestDialAndBroadcastText(t *testing.T) {
	listener, port := startNode(t, "listener")

	dialer := New("dialer")
	t.Cleanup(dialer.Shutdown)
	peerID, err := dialer.ConnectTo("127.0.0.1", port)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if peerID[:7] != "server_" {
		t.Fatalf("dialed peer id %q lacks server_ prefix", peerID)
	}

	waitForPeers(t, listener, 1)
	waitForPeers(t, dialer, 1)

	if err := dialer.BroadcastText("hello"); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	select {
	case msg := <-listener.Inbox():
		if msg.Content.Kind != message.KindText || msg.Content.Text != "hello" {
			t.Fatalf("got %+v", msg.Content)
		}
		if msg.SenderID != dialer.DeviceID() || msg.SenderName != "dialer" {
			t.Fatalf("sender = %q/%q", msg.SenderID, msg.SenderName)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message arrived")
	}
}

func TestConnectToNothingListening(t *testing.T) {
	// Grab an ephemeral port and free it again so nothing can be listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	n := New("dialer")
	_, err = n.ConnectTo("127.0.0.1", port)
	if err == nil {
		t.Fatal("connect succeeded against a closed port")
	}
	if !errors.Is(err, ErrConnectFailed) && !errors.Is(err, ErrConnectTimeout) {
		t.Fatalf("err = %v, want ErrConnectFailed or ErrConnectTimeout", err)
	}
	if n.PeerCount() != 0 {
		t.Fatalf("registry has %d peers after a failed dial", n.PeerCount())
	}
}

func TestBroadcastSkipsDeadPeer(t *testing.T) {
	n := New("sender")
	t.Cleanup(n.Shutdown)

	// One healthy pipe peer with a reader on the far end.
	goodNear, goodFar := net.Pipe()
	t.Cleanup(func() { goodFar.Close() })
	n.Registry().Insert("good", wire.New(goodNear))
	received := make(chan *message.Message, 1)
	go func() {
		msg, err := wire.New(goodFar).ReadMsg()
		if err != nil {
			return
		}
		received <- msg
	}()

	// One peer whose connection is already closed.
	deadNear, deadFar := net.Pipe()
	deadNear.Close()
	deadFar.Close()
	n.Registry().Insert("dead", wire.New(deadNear))

	if err := n.BroadcastText("fan out"); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Content.Text != "fan out" {
			t.Fatalf("text = %q", msg.Content.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("healthy peer did not receive the broadcast")
	}

	for _, e := range n.Registry().Snapshot() {
		if e.ID == "dead" {
			t.Fatal("dead peer still registered after broadcast")
		}
	}
	if n.PeerCount() != 1 {
		t.Fatalf("peer count = %d, want 1", n.PeerCount())
	}
}

func TestDialAgainKeepsFreshPeer(t *testing.T) {
	listener, port := startNode(t, "listener")

	dialer := New("dialer")
	t.Cleanup(dialer.Shutdown)
	id1, err := dialer.ConnectTo("127.0.0.1", port)
	if err != nil {
		t.Fatalf("first connect: %v", err)
	}
	waitForPeers(t, dialer, 1)

	// Same target, same id: the second dial supersedes the first entry and
	// wakes its reader on the closed stream.
	id2, err := dialer.ConnectTo("127.0.0.1", port)
	if err != nil {
		t.Fatalf("second connect: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("ids differ: %q vs %q", id1, id2)
	}

	// The stale reader must leave the fresh entry alone. Give it time to
	// run its exit path before checking.
	time.Sleep(200 * time.Millisecond)
	if got := dialer.PeerCount(); got != 1 {
		t.Fatalf("peer count after redial = %d, want 1", got)
	}

	// The first inbound connection dies with the supersede; the listener
	// settles back to one live peer that still receives broadcasts.
	waitForPeers(t, listener, 1)
	if err := dialer.BroadcastText("still here"); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	select {
	case msg := <-listener.Inbox():
		if msg.Content.Text != "still here" {
			t.Fatalf("text = %q", msg.Content.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message over the fresh connection")
	}
}

func TestShutdownDropsAllPeers(t *testing.T) {
	listener, port := startNode(t, "listener")

	d1 := New("d1")
	d2 := New("d2")
	t.Cleanup(d1.Shutdown)
	t.Cleanup(d2.Shutdown)
	if _, err := d1.ConnectTo("127.0.0.1", port); err != nil {
		t.Fatalf("connect d1: %v", err)
	}
	if _, err := d2.ConnectTo("127.0.0.1", port); err != nil {
		t.Fatalf("connect d2: %v", err)
	}
	waitForPeers(t, listener, 2)

	listener.Shutdown()

	// Both dialers' readers observe the closed streams and deregister.
	waitForPeers(t, d1, 0)
	waitForPeers(t, d2, 0)
	if listener.PeerCount() != 0 {
		t.Fatalf("listener registry not empty: %d", listener.PeerCount())
	}
}

func TestOversizedFrameDisconnectsPeer(t *testing.T) {
	listener, port := startNode(t, "listener")

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitForPeers(t, listener, 1)

	// Declare a body far over the limit; send no body at all.
	if _, err := conn.Write([]byte{0xff, 0xff, 0xff, 0xff}); err != nil {
		t.Fatalf("write prefix: %v", err)
	}

	waitForPeers(t, listener, 0)
}
