package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"interpretation-broker/internal/config"
	"interpretation-broker/internal/domain"
	"interpretation-broker/internal/domain/ports/adapter"
	"interpretation-broker/internal/domain/ports/repository"
	"interpretation-broker/internal/infra/logging"
	red "interpretation-broker/internal/infra/redis"
	"interpretation-broker/internal/infra/worker"
	"interpretation-broker/internal/usecase"
)

// Server exposes the broker's public surface: job initiation, the
// super-backend callback, the poll endpoint and the WebSocket push channel.
type Server struct {
	cfg     *config.Config
	jobUC   usecase.JobUseCase
	users   repository.UserDirectory
	compute adapter.ComputeService
	bus     adapter.MessageBus
	pool    *worker.Pool
	auth    *AuthManager
	limiter *red.RateLimiter
	log     *zerolog.Logger
	srv     *http.Server
}

func NewServer(
	cfg *config.Config,
	jobUC usecase.JobUseCase,
	users repository.UserDirectory,
	compute adapter.ComputeService,
	bus adapter.MessageBus,
	pool *worker.Pool,
	auth *AuthManager,
	limiter *red.RateLimiter,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		cfg:     cfg,
		jobUC:   jobUC,
		users:   users,
		compute: compute,
		bus:     bus,
		pool:    pool,
		auth:    auth,
		limiter: limiter,
		log:     logger,
	}
}

// Router assembles the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Called by the super-backend, not by browsers; correlation happens on
	// the job id alone.
	r.Post("/api/callback", s.handleCallback)

	// Polling is keyed by job id as well; the id is the capability.
	r.Get("/api/status", s.handlePoll)

	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)
		r.Get("/api/interpretations", s.handleInitiate)
		r.Get("/ws/jobs", s.handleWS)
	})

	if s.cfg.Runtime.Dev {
		r.Get("/api/dev/session", s.handleDevSession)
	}
	return r
}

func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	s.log.Info().Int("port", s.cfg.Server.Port).Msg("http server listening")
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// requireUser authenticates the caller and resolves the full directory
// record into the request context. Runs before any group subscription can
// happen further down the chain.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil || claims.Subject == "" {
			writeJSON(w, http.StatusBadRequest, statusResponse{Status: "Request not made, incorrect user auth / approval"})
			return
		}
		user, err := s.users.FindByID(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				writeJSON(w, http.StatusBadRequest, statusResponse{Status: "Request not made, incorrect user auth / approval"})
				return
			}
			s.log.Error().Err(err).Msg("user lookup failed")
			writeJSON(w, http.StatusBadRequest, statusResponse{Status: "Request not made, unable to validate user"})
			return
		}
		ctx := withUser(r.Context(), user)
		ctx = logging.WithUserID(ctx, user.ID)
		if reqID := middleware.GetReqID(ctx); reqID != "" {
			ctx = logging.WithTraceID(ctx, reqID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// handleDevSession mints a session cookie for a known user. Registered only
// in dev mode; production sessions come from the identity layer in front of
// this service.
func (s *Server) handleDevSession(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "email is required"})
		return
	}
	user, err := s.users.FindByEmail(r.Context(), email)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "unknown user"})
		return
	}
	tok, err := s.auth.Mint(w, user.ID, user.Email)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, statusResponse{Status: "could not mint session"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "token": tok})
}

const requestWindow = time.Minute
