package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	session "github.com/reelbase/go-session"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "test-signing-key"

func mintToken(t *testing.T, subject, email, role string, expiresAt time.Time) string {
	t.Helper()

	claims := &session.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email:       email,
		UserRole:    role,
		DisplayName: "Test User",
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	require.NoError(t, err)
	return token
}

// recordingSender captures flushed audit batches.
type recordingSender struct {
	mu      sync.Mutex
	batches [][]session.Event
	err     error
}

func (s *recordingSender) Send(_ context.Context, batch []session.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]session.Event, len(batch))
	copy(copied, batch)
	s.batches = append(s.batches, copied)
	return s.err
}

func (s *recordingSender) events() []session.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []session.Event
	for _, batch := range s.batches {
		all = append(all, batch...)
	}
	return all
}

func (s *recordingSender) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func eventsByAction(events []session.Event, action session.Action) []session.Event {
	var matched []session.Event
	for _, event := range events {
		if event.Action == action {
			matched = append(matched, event)
		}
	}
	return matched
}

type recordingNavigator struct {
	mu     sync.Mutex
	routes []string
}

func (n *recordingNavigator) Navigate(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

func (n *recordingNavigator) visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) notified() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type countingInvalidator struct {
	calls atomic.Int32
}

func (c *countingInvalidator) Invalidate() {
	c.calls.Add(1)
}

type staticToken string

func (s staticToken) AccessToken() string { return string(s) }

// authBackend is a fake authentication server covering the login, refresh,
// and logout endpoints.
type authBackend struct {
	mu            sync.Mutex
	loginStatus   int
	loginToken    string
	refreshStatus int
	refreshToken  string
	logoutStatus  int

	loginCalls   int
	refreshCalls int
	logoutCalls  int

	server *httptest.Server
}

func newAuthBackend(t *testing.T) *authBackend {
	t.Helper()

	b := &authBackend{
		loginStatus:   http.StatusOK,
		refreshStatus: http.StatusOK,
		logoutStatus:  http.StatusNoContent,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.loginCalls++
		status, token := b.loginStatus, b.loginToken
		b.mu.Unlock()
		writeTokenResponse(w, status, token)
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.refreshCalls++
		status, token := b.refreshStatus, b.refreshToken
		b.mu.Unlock()
		writeTokenResponse(w, status, token)
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.logoutCalls++
		status := b.logoutStatus
		b.mu.Unlock()
		w.WriteHeader(status)
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func writeTokenResponse(w http.ResponseWriter, status int, token string) {
	if status < 200 || status >= 300 {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"access_token": token})
}

func (b *authBackend) set(fn func(b *authBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *authBackend) counts() (login, refresh, logout int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loginCalls, b.refreshCalls, b.logoutCalls
}

// newTestCore builds an audit logger and manager against the backend with
// the background flusher disabled so tests drain explicitly.
func newTestCore(t *testing.T, backend *authBackend) (*session.Manager, *session.AuditLogger, *recordingSender) {
	t.Helper()

	sender := &recordingSender{}
	correlation := session.NewCorrelationID()
	audit := session.NewAuditLogger(sender, correlation, session.WithFlushInterval(0))
	t.Cleanup(audit.Close)

	cfg := session.DefaultConfig(backend.server.URL)
	manager := session.NewManager(cfg, audit, correlation)
	return manager, audit, sender
}
