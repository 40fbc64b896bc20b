package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

var _ TokenSource = (*Manager)(nil)
var _ SessionInvalidator = (*Manager)(nil)

// Manager is the session core. It owns the in-memory access token and its
// decoded claims, schedules silent refresh, and exposes authentication and
// role state. Token and claims are always set or cleared together; the
// session is authenticated exactly when both are present.
//
// At most one refresh timer is armed at a time. Applying a token cancels
// and replaces any prior timer, and teardown cancels the timer before any
// network round-trip, so a refresh can never fire after logout.
type Manager struct {
	cfg           Config
	httpClient    *http.Client
	audit         *AuditLogger
	logger        Logger
	correlationID CorrelationID
	now           func() time.Time

	mu           sync.Mutex
	token        string
	claims       *Claims
	refreshTimer *time.Timer
	generation   uint64
}

// NewManager returns a session manager wired to the audit logger. The
// default HTTP client carries a cookie jar so the server-held refresh
// credential travels on credentialed calls.
func NewManager(cfg Config, audit *AuditLogger, correlationID CorrelationID) *Manager {
	return &Manager{
		cfg:           cfg,
		httpClient:    newCookieClient(),
		audit:         audit,
		logger:        defLogger{},
		correlationID: correlationID,
		now:           time.Now,
	}
}

// WithLogger overrides the diagnostic logger.
func (m *Manager) WithLogger(logger Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithHTTPClient overrides the HTTP client. The client should carry a
// cookie jar or refresh credentials will not travel.
func (m *Manager) WithHTTPClient(client *http.Client) *Manager {
	if client != nil {
		m.httpClient = client
	}
	return m
}

// WithClock injects a custom clock (useful for tests).
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	if clock != nil {
		m.now = clock
	}
	return m
}

// HTTPClient exposes the underlying client so the API client can share the
// same cookie jar.
func (m *Manager) HTTPClient() *http.Client {
	return m.httpClient
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Start attempts to recover a session across a restart using the
// server-held refresh credential. Failing to recover is the normal first
// visit and is never surfaced to the caller.
func (m *Manager) Start(ctx context.Context) {
	if err := m.SilentRefresh(ctx); err != nil {
		m.logger.Debug("no session recovered on start: %v", err)
	}
}

// Login exchanges credentials for an access token. Every server-side
// rejection yields the same generic ErrInvalidCredentials: the caller can
// never tell an unknown account from a wrong password. Failed attempts are
// audited with an email digest, never the address itself. A transport
// failure is not a rejection: it surfaces as a retryable network error and
// is never audited as a failed attempt.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	req := loginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := req.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid login request")
	}

	status, body, err := m.postAuth(ctx, m.cfg.LoginPath, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrRequestTimeout
		}
		return goerrors.Wrap(err, goerrors.CategoryOperation, "login request failed, please try again")
	}
	if status < 200 || status >= 300 {
		m.recordLoginFailure(email)
		return ErrInvalidCredentials
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		m.recordLoginFailure(email)
		return ErrInvalidCredentials
	}

	if !m.ApplyToken(tr.AccessToken) {
		m.recordLoginFailure(email)
		return ErrTokenMalformed
	}

	m.audit.Record(ActionLogin, "", map[string]any{"role": string(m.currentRole())})
	return nil
}

// SilentRefresh asks the refresh endpoint for a new token using the
// httpOnly refresh credential. Any failure tears the session down
// completely; recovery requires the next Start or an explicit Login.
//
// The session generation is captured before the request and re-checked
// under the mutex before anything is installed or torn down, so a logout
// or new login that lands while the request is in flight always wins.
func (m *Manager) SilentRefresh(ctx context.Context) error {
	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()
	return m.silentRefresh(ctx, gen)
}

func (m *Manager) silentRefresh(ctx context.Context, gen uint64) error {
	status, body, err := m.postAuth(ctx, m.cfg.RefreshPath, nil)
	if err != nil || status < 200 || status >= 300 {
		m.teardownIfCurrent(gen, ActionRefreshFailed, map[string]any{"reason": "rejected"})
		return ErrSessionExpired
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		m.teardownIfCurrent(gen, ActionRefreshFailed, map[string]any{"reason": "malformed"})
		return ErrTokenMalformed
	}

	installed, current := m.applyTokenIfCurrent(tr.AccessToken, gen)
	if !current {
		// Superseded while the request was in flight. The newer state,
		// authenticated or not, stands untouched.
		return nil
	}
	if !installed {
		m.teardownIfCurrent(gen, ActionRefreshFailed, map[string]any{"reason": "malformed"})
		return ErrTokenMalformed
	}

	m.audit.Record(ActionTokenRefresh, "", nil)
	return nil
}

// ApplyToken decodes and installs a token. A token that fails to decode is
// a strict no-op: state is left untouched and no timer is rearmed. On
// success token and claims are replaced wholesale and a one-shot refresh
// timer is armed at expiry minus the refresh buffer; tokens already inside
// the buffer get no timer at all.
func (m *Manager) ApplyToken(tokenString string) bool {
	claims, err := DecodeToken(tokenString)
	if err != nil {
		return false
	}

	m.mu.Lock()
	m.installLocked(tokenString, claims)
	m.mu.Unlock()

	m.audit.SetSubject(claims.SubjectID())
	return true
}

// applyTokenIfCurrent installs a refreshed token only when the session
// generation still matches the one captured before the refresh request.
// installed reports whether the token went in; current reports whether the
// captured generation was still live.
func (m *Manager) applyTokenIfCurrent(tokenString string, gen uint64) (installed, current bool) {
	claims, err := DecodeToken(tokenString)

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return false, false
	}
	if err != nil {
		m.mu.Unlock()
		return false, true
	}
	m.installLocked(tokenString, claims)
	m.mu.Unlock()

	m.audit.SetSubject(claims.SubjectID())
	return true, true
}

// installLocked replaces token and claims, bumps the generation, and rearms
// the refresh timer. Caller holds mu.
func (m *Manager) installLocked(tokenString string, claims *Claims) {
	m.token = tokenString
	m.claims = claims
	m.generation++
	gen := m.generation
	if m.refreshTimer != nil {
		m.refreshTimer.Stop()
		m.refreshTimer = nil
	}
	if delay := claims.Expires().Sub(m.now()) - m.cfg.RefreshBuffer; delay > 0 {
		m.refreshTimer = time.AfterFunc(delay, func() {
			m.refreshFired(gen)
		})
	}
}

// refreshFired runs on the armed timer. The generation check makes the most
// recent state change authoritative: a timer armed for a token that has
// since been replaced or cleared does nothing, and the same generation
// gates the install once the refresh response arrives.
func (m *Manager) refreshFired(generation uint64) {
	m.mu.Lock()
	stale := generation != m.generation
	m.mu.Unlock()
	if stale {
		return
	}

	if err := m.silentRefresh(context.Background(), generation); err != nil {
		m.logger.Debug("scheduled refresh failed: %v", err)
	}
}

// Logout records the audit event, cancels the refresh timer before any
// network activity, notifies the server best-effort, and unconditionally
// clears local state. Local teardown never depends on the server call.
func (m *Manager) Logout(ctx context.Context) {
	m.audit.Record(ActionLogout, "", nil)

	m.mu.Lock()
	if m.refreshTimer != nil {
		m.refreshTimer.Stop()
		m.refreshTimer = nil
	}
	m.generation++
	m.mu.Unlock()

	if _, _, err := m.postAuth(ctx, m.cfg.LogoutPath, nil); err != nil {
		m.logger.Debug("logout notification failed: %v", err)
	}

	m.clearSession()
	m.audit.ResetSession()
}

// Invalidate clears local session state without a server round-trip. The
// API client calls it when a 401 is intercepted.
func (m *Manager) Invalidate() {
	m.clearSession()
	m.audit.ResetSession()
}

// AccessToken implements TokenSource. Empty when unauthenticated.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// IsAuthenticated reports whether a session is currently held.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claims != nil
}

// CurrentClaims returns the decoded claims of the current session, nil when
// unauthenticated. Display use only.
func (m *Manager) CurrentClaims() *Claims {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claims
}

// HasRole reports whether the current session satisfies the required role.
// Viewer is granted to any authenticated session; reviewer to reviewer and
// admin; admin only to admin. This gates UI, never security: the server
// still enforces every call.
func (m *Manager) HasRole(required Role) bool {
	m.mu.Lock()
	claims := m.claims
	m.mu.Unlock()

	if claims == nil || !required.IsValid() {
		return false
	}
	if required == RoleViewer {
		return true
	}
	return claims.Role().IsAtLeast(required)
}

func (m *Manager) currentRole() Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claims == nil {
		return ""
	}
	return m.claims.Role()
}

// teardownIfCurrent clears the session unless the captured generation has
// been superseded, auditing the transition only when a session actually
// existed. A stale generation means a newer login or logout already settled
// the state; a failed refresh from before that must not disturb it.
func (m *Manager) teardownIfCurrent(gen uint64, action Action, metadata map[string]any) {
	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return
	}
	if m.claims != nil && action != "" {
		m.audit.Record(action, "", metadata)
	}
	if m.refreshTimer != nil {
		m.refreshTimer.Stop()
		m.refreshTimer = nil
	}
	m.generation++
	m.token = ""
	m.claims = nil
	m.mu.Unlock()

	m.audit.SetSubject("")
}

func (m *Manager) clearSession() {
	m.mu.Lock()
	if m.refreshTimer != nil {
		m.refreshTimer.Stop()
		m.refreshTimer = nil
	}
	m.generation++
	m.token = ""
	m.claims = nil
	m.mu.Unlock()

	m.audit.SetSubject("")
}

func (m *Manager) recordLoginFailure(email string) {
	m.audit.Record(ActionLoginFailed, "", map[string]any{
		"email_hash": HashEmail(email),
	})
}

// postAuth performs a credentialed JSON POST against an auth endpoint,
// reading and returning the full body so the request context can be
// released before decoding.
func (m *Manager) postAuth(ctx context.Context, path string, payload any) (int, []byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(m.cfg.BaseURL, path), body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderCorrelationID, m.correlationID.String())

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

func newCookieClient() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Jar: jar}
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
