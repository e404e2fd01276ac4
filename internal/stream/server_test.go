package stream

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/scene"
	"github.com/san-kum/rigidsim/internal/world"
)

func dialTestServer(t *testing.T, s *Server) (*websocket.Conn, func()) {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		ts.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, func() {
		conn.Close()
		ts.Close()
	}
}

func waitForClients(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", s.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcastReachesClient(t *testing.T) {
	s := NewServer()
	defer s.Close()
	conn, cleanup := dialTestServer(t, s)
	defer cleanup()
	waitForClients(t, s, 1)

	w := world.New(config.DefaultConfig())
	if err := scene.Build("drop", w); err != nil {
		t.Fatal(err)
	}
	info, err := w.Step(1.0 / 60)
	if err != nil {
		t.Fatal(err)
	}
	s.Broadcast(Encode(info.Step, info.Time, w.Snapshot(), w.Events()))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Snapshot
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "snapshot" {
		t.Errorf("type = %q, want snapshot", msg.Type)
	}
	if len(msg.Bodies) != w.BodyCount() {
		t.Errorf("bodies = %d, want %d", len(msg.Bodies), w.BodyCount())
	}
}

func TestDisconnectedClientDropped(t *testing.T) {
	s := NewServer()
	defer s.Close()
	conn, cleanup := dialTestServer(t, s)
	waitForClients(t, s, 1)

	conn.Close()
	cleanup()

	// Broadcasts after the close eventually prune the client.
	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client never dropped")
		}
		s.Broadcast(Snapshot{Type: "snapshot"})
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClientCommandsForwarded(t *testing.T) {
	s := NewServer()
	defer s.Close()
	conn, cleanup := dialTestServer(t, s)
	defer cleanup()
	waitForClients(t, s, 1)

	if err := conn.WriteJSON(Command{Type: "pause"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case cmd := <-s.Commands():
		if cmd.Type != "pause" {
			t.Errorf("command = %q, want pause", cmd.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("command never forwarded")
	}
}

func TestEncodeSnapshot(t *testing.T) {
	w := world.New(config.DefaultConfig())
	if err := scene.Build("stack", w); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Step(1.0 / 60); err != nil {
		t.Fatal(err)
	}

	msg := Encode(1, 1.0/60, w.Snapshot(), w.Events())
	if len(msg.Bodies) != w.BodyCount() {
		t.Fatalf("bodies = %d, want %d", len(msg.Bodies), w.BodyCount())
	}
	if msg.Bodies[0].Kind != "plane" {
		t.Errorf("first body kind = %q, want plane", msg.Bodies[0].Kind)
	}
	for _, b := range msg.Bodies[1:] {
		if b.Motion != "dynamic" {
			t.Errorf("stack body motion = %q, want dynamic", b.Motion)
		}
	}
}
