package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wardenhq/warden/internal/bus/bustest"
)

func TestAlarmStreamer_RebroadcastsAlarmsTopic(t *testing.T) {
	b := bustest.New()
	b.Producer().Send(context.Background(), "alarms", []byte(`{"id":"evt-1","state":"ALARM"}`))

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

	ctx, cancel := context.WithCancel(context.Background())
	streamer := NewAlarmStreamer(b.Consumer("alarms"), hub, nil)
	streamer.Start(ctx)
	defer func() {
		cancel()
		streamer.Stop()
	}()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	if string(msg) != `{"id":"evt-1","state":"ALARM"}` {
		t.Errorf("message = %s, want the alarms-topic record verbatim", msg)
	}
}
