package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestNewAlarmHub(t *testing.T) {
	hub := NewAlarmHub()
	if hub == nil {
		t.Fatal("expected non-nil hub")
	}
	if hub.clients == nil {
		t.Error("expected initialized clients map")
	}
}

func TestAlarmHub_BroadcastToSubscribedClient(t *testing.T) {
	hub := NewAlarmHub()
	hub.Start()
	defer hub.Stop()

	s := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer s.Close()

	wsURL := "ws" + strings.TrimPrefix(s.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)

	payload, _ := json.Marshal(map[string]string{"id": "evt-1", "state": "ALARM"})
	hub.Broadcast(payload)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	if string(msg) != string(payload) {
		t.Errorf("message = %s, want %s", msg, payload)
	}
}

func TestAlarmHub_ClientDisconnect(t *testing.T) {
	hub := NewAlarmHub()
	hub.Start()
	defer hub.Stop()

	s := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer s.Close()

	wsURL := "ws" + strings.TrimPrefix(s.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	hub.mu.RLock()
	before := len(hub.clients)
	hub.mu.RUnlock()
	if before != 1 {
		t.Fatalf("expected 1 client, got %d", before)
	}

	conn.Close()
	time.Sleep(100 * time.Millisecond)

	hub.mu.RLock()
	after := len(hub.clients)
	hub.mu.RUnlock()
	if after != 0 {
		t.Errorf("expected 0 clients after disconnect, got %d", after)
	}
}

func TestAlarmHub_StopDisconnectsClients(t *testing.T) {
	hub := NewAlarmHub()
	hub.Start()

	s := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer s.Close()

	wsURL := "ws" + strings.TrimPrefix(s.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)
	hub.Stop()

	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to be closed after Stop")
	}
}
