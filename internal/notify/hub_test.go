package notify

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func TestNotify_DeliversOnlyToOwner(t *testing.T) {
	h := NewHub(slog.Default())

	u1 := &client{userID: "u1", send: make(chan []byte, 4)}
	u2 := &client{userID: "u2", send: make(chan []byte, 4)}
	h.register(u1)
	h.register(u2)

	h.Notify("u1", "incoming_call", map[string]string{"sid": "CA1"})

	select {
	case raw := <-u1.send:
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if ev.Event != "incoming_call" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("u1 never received the event")
	}

	select {
	case <-u2.send:
		t.Fatalf("u2 must not receive u1's event")
	default:
	}
}

func TestNotify_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub(slog.Default())

	c := &client{userID: "u1", send: make(chan []byte)}
	h.register(c)

	done := make(chan struct{})
	go func() {
		h.Notify("u1", "call_ended", nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Notify blocked on a slow consumer")
	}
}

func TestUnregister_RemovesConnection(t *testing.T) {
	h := NewHub(slog.Default())

	c := &client{userID: "u1", send: make(chan []byte, 1)}
	h.register(c)
	if h.Connections("u1") != 1 {
		t.Fatalf("expected one connection")
	}
	h.unregister(c)
	if h.Connections("u1") != 0 {
		t.Fatalf("expected zero connections after unregister")
	}

	h.Notify("u1", "incoming_call", nil)
	select {
	case <-c.send:
		t.Fatalf("unregistered client must not receive events")
	default:
	}
}
