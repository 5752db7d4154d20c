package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func wsURL(srv string) string {
	return "ws" + strings.TrimPrefix(srv, "http") + "/ws/jobs"
}

func TestWebSocketRejectsUnauthenticated(t *testing.T) {
	env := newTestEnv(t)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(env.srv.URL), nil)
	if err == nil {
		conn.Close()
		t.Fatal("unauthenticated connection was accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("handshake response = %v, want 400", resp)
	}
	env.bus.mu.Lock()
	subs := len(env.bus.subs)
	env.bus.mu.Unlock()
	if subs != 0 {
		t.Fatalf("%d group subscriptions exist for an unauthenticated peer", subs)
	}
}

func TestWebSocketForwardsGroupMessages(t *testing.T) {
	env := newTestEnv(t)

	header := http.Header{"Authorization": []string{"Bearer " + env.token(t, "u-1", "ada@example.com")}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(env.srv.URL), header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The subscription is established before the upgrade completes, so a
	// publish immediately after a successful dial must be deliverable.
	payload := []byte(`{"job_id":"j-7","value":42}`)
	if err := env.bus.Publish(context.Background(), "user_u-1", payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var out struct {
		Message map[string]any `json:"message"`
	}
	if err := json.Unmarshal(frame, &out); err != nil {
		t.Fatalf("unmarshal frame %s: %v", frame, err)
	}
	if out.Message["job_id"] != "j-7" || out.Message["value"] != 42.0 {
		t.Fatalf("forwarded message = %v", out.Message)
	}
}

func TestWebSocketRejectsCrossOrigin(t *testing.T) {
	env := newTestEnv(t)

	header := http.Header{
		"Authorization": []string{"Bearer " + env.token(t, "u-1", "ada@example.com")},
		"Origin":        []string{"http://evil.example"},
	}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(env.srv.URL), header)
	if err == nil {
		conn.Close()
		t.Fatal("cross-origin connection was accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("handshake response = %v, want 403", resp)
	}
}

func TestWebSocketAcceptsSameHostOrigin(t *testing.T) {
	env := newTestEnv(t)

	header := http.Header{
		"Authorization": []string{"Bearer " + env.token(t, "u-1", "ada@example.com")},
		"Origin":        []string{env.srv.URL},
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(env.srv.URL), header)
	if err != nil {
		t.Fatalf("same-host origin rejected: %v", err)
	}
	conn.Close()
}

func TestCheckWSOriginAllowedList(t *testing.T) {
	env := newTestEnv(t)
	srv := env.server
	srv.cfg.Server.AllowedOrigins = []string{"https://console.example.com"}

	cases := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://console.example.com", true},
		{"HTTPS://CONSOLE.EXAMPLE.COM", true},
		{"https://evil.example.com", false},
	}
	for _, tc := range cases {
		req, _ := http.NewRequest(http.MethodGet, "http://broker.local/ws/jobs", nil)
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		if got := srv.checkWSOrigin(req); got != tc.want {
			t.Errorf("checkWSOrigin(%q) = %v, want %v", tc.origin, got, tc.want)
		}
	}
}

func TestWebSocketEchoesClientMessages(t *testing.T) {
	env := newTestEnv(t)

	header := http.Header{"Authorization": []string{"Bearer " + env.token(t, "u-1", "ada@example.com")}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(env.srv.URL), header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"message": "ping"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var out struct {
		Message string `json:"message"`
	}
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "Received message 'ping' from user 'ada@example.com'"
	if out.Message != want {
		t.Fatalf("echo = %q, want %q", out.Message, want)
	}
}
