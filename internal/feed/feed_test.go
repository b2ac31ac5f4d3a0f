package feed

import (
	"encoding/json"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestPublishReachesSubscriber(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	hub := Start(addr, slog.Default())
	defer hub.Close()

	var conn *websocket.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, _, err = websocket.DefaultDialer.Dial("ws://"+addr+"/events", nil)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dial: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	defer conn.Close()

	// The subscriber registers asynchronously after the upgrade.
	waitForSubscribers(t, hub, 1)
	hub.Publish(Event{Kind: KindCommand, Text: "open browser"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Kind != KindCommand || ev.Text != "open browser" {
		t.Errorf("event = %+v, want command %q", ev, "open browser")
	}
	if ev.Time.IsZero() {
		t.Error("event time not stamped")
	}
}

func TestDepartedSubscriberUnregisters(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	hub := Start(addr, slog.Default())
	defer hub.Close()

	var conn *websocket.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, _, err = websocket.DefaultDialer.Dial("ws://"+addr+"/events", nil)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dial: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	waitForSubscribers(t, hub, 1)
	conn.Close()
	waitForSubscribers(t, hub, 0)
}

func waitForSubscribers(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.Lock()
		got := len(hub.conns)
		hub.mu.Unlock()
		if got == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("subscriber count = %d, want %d", got, want)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	hub := Start(addr, slog.Default())
	defer hub.Close()

	hub.Publish(Event{Kind: KindResult, Status: "success"})
}
