package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"interpretation-broker/internal/infra/metrics"
	"interpretation-broker/internal/usecase"
)

// checkWSOrigin guards the cookie-authenticated upgrade against cross-site
// connections. Non-browser clients (no Origin header) pass; browsers must
// match a configured allowed origin, or the request host when none are
// configured.
func (s *Server) checkWSOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(s.cfg.Server.AllowedOrigins) == 0 {
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
	for _, allowed := range s.cfg.Server.AllowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

type wsMessage struct {
	Message json.RawMessage `json:"message"`
}

// handleWS attaches an authenticated connection to its user's delivery
// group and forwards every published payload verbatim. The middleware has
// already rejected unauthenticated callers, so nothing is subscribed (or
// even upgraded) for them. Client-to-server traffic carries no job
// semantics; it only gets an echo acknowledgement.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "Request not made, incorrect user auth / approval"})
		return
	}

	group := usecase.GroupNameFor(user)
	sub, err := s.bus.Subscribe(r.Context(), group)
	if err != nil {
		s.log.Error().Err(err).Str("group", group).Msg("group subscribe failed")
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "Subscription failed"})
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkWSOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		_ = sub.Close()
		s.log.Warn().Err(err).Str("group", group).Msg("ws upgrade failed")
		return
	}
	s.log.Info().Str("group", group).Str("remote", r.RemoteAddr).Msg("ws connected")
	metrics.WSConnected()

	// Single writer goroutine; the read loop and the bus pump both enqueue
	// pre-marshaled frames here.
	sendq := make(chan []byte, 16)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case frame, ok := <-sendq:
				if !ok {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	go func() {
		for payload := range sub.Messages() {
			frame, err := json.Marshal(wsMessage{Message: payload})
			if err != nil {
				continue
			}
			select {
			case sendq <- frame:
			case <-done:
				return
			}
		}
	}()

	defer func() {
		close(done)
		_ = sub.Close()
		// best-effort: the transport may already be gone
		_ = conn.Close()
		metrics.WSDisconnected()
		s.log.Info().Str("group", group).Msg("ws disconnected")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var in struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &in); err != nil {
			continue
		}
		echo, _ := json.Marshal(map[string]string{
			"message": fmt.Sprintf("Received message '%s' from user '%s'", in.Message, user.Email),
		})
		select {
		case sendq <- echo:
		case <-done:
			return
		}
	}
}
