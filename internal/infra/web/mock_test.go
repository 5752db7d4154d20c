package web

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"interpretation-broker/internal/config"
	"interpretation-broker/internal/domain"
	"interpretation-broker/internal/domain/model"
	"interpretation-broker/internal/domain/ports/adapter"
	"interpretation-broker/internal/infra/worker"
)

// --- Fakes ---

type fakeJobUC struct {
	mu         sync.Mutex
	beginErr   error
	deliverErr error
	pollRes    *model.PollResult
	pollErr    error
	begun      []string
	delivered  []string
}

func (f *fakeJobUC) Begin(_ context.Context, callbackName string, _ map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.beginErr != nil {
		return "", f.beginErr
	}
	f.begun = append(f.begun, callbackName)
	return "job-123", nil
}

func (f *fakeJobUC) Deliver(_ context.Context, jobID, _ string, _ map[string]any, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deliverErr != nil {
		return f.deliverErr
	}
	f.delivered = append(f.delivered, jobID)
	return nil
}

func (f *fakeJobUC) Poll(context.Context, string) (*model.PollResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	return f.pollRes, nil
}

type fakeDirectory struct {
	byID map[string]*model.User
}

func (f *fakeDirectory) FindByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeDirectory) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

type fakeCompute struct {
	called chan map[string]any
	err    error
}

func (f *fakeCompute) Interpret(_ context.Context, _ string, params map[string]any) (string, error) {
	if f.called != nil {
		f.called <- params
	}
	return "acknowledged", f.err
}

type fakeSub struct {
	ch     chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeSub() *fakeSub {
	return &fakeSub{ch: make(chan []byte, 8), closed: make(chan struct{})}
}

func (s *fakeSub) Messages() <-chan []byte { return s.ch }

func (s *fakeSub) Close() error {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
	return nil
}

type fakeWebBus struct {
	mu   sync.Mutex
	subs map[string]*fakeSub
}

func newFakeWebBus() *fakeWebBus { return &fakeWebBus{subs: map[string]*fakeSub{}} }

func (b *fakeWebBus) Publish(_ context.Context, group string, message any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[group]; ok {
		if payload, ok := message.([]byte); ok {
			sub.ch <- payload
		}
	}
	return nil
}

func (b *fakeWebBus) Subscribe(_ context.Context, group string) (adapter.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := newFakeSub()
	b.subs[group] = sub
	return sub, nil
}

// --- Harness ---

type testEnv struct {
	srv     *httptest.Server
	server  *Server
	auth    *AuthManager
	jobUC   *fakeJobUC
	compute *fakeCompute
	bus     *fakeWebBus
	users   *fakeDirectory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Port = 0
	cfg.Auth = config.AuthConfig{
		HMACSecret: "test-secret",
		CookieName: "broker_session",
		TTL:        time.Hour,
	}

	logger := zerolog.Nop()
	jobUC := &fakeJobUC{pollRes: &model.PollResult{State: model.PollNoData}}
	users := &fakeDirectory{byID: map[string]*model.User{
		"u-1": {ID: "u-1", Email: "ada@example.com", Role: "USER", Approved: true, GroupTags: []string{"AMAUK"}},
		"u-2": {ID: "u-2", Email: "pending@example.com", Role: "USER", Approved: false},
	}}
	compute := &fakeCompute{called: make(chan map[string]any, 4)}
	bus := newFakeWebBus()
	auth := NewAuthManager(cfg.Auth)

	pool := worker.NewPool(2, &logger)
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)

	s := NewServer(cfg, jobUC, users, compute, bus, pool, auth, nil, &logger)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, server: s, auth: auth, jobUC: jobUC, compute: compute, bus: bus, users: users}
}

func (e *testEnv) token(t *testing.T, userID, email string) string {
	t.Helper()
	tok, err := e.auth.Mint(httptest.NewRecorder(), userID, email)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return tok
}
