package session

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action enumerates the audited security-relevant actions.
type Action string

const (
	ActionLogin         Action = "login"
	ActionLoginFailed   Action = "login_failed"
	ActionLogout        Action = "logout"
	ActionTokenRefresh  Action = "token_refresh"
	ActionRefreshFailed Action = "refresh_failed"
	ActionAccessDenied  Action = "access_denied"
	ActionSearch        Action = "search"
)

// Event is an immutable audit record. UserID reflects the attributed subject
// at the moment the event was constructed, not at flush time.
type Event struct {
	Timestamp     time.Time      `json:"timestamp"`
	SessionID     string         `json:"session_id"`
	UserID        string         `json:"user_id,omitempty"`
	Action        Action         `json:"action"`
	Target        string         `json:"target,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CorrelationID string         `json:"correlation_id"`
}

// Sender delivers one batch of audit events. Errors are swallowed by the
// logger; a sender should not retry on its own.
type Sender interface {
	Send(ctx context.Context, batch []Event) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, batch []Event) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, batch []Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, batch)
}

type noopSender struct{}

func (noopSender) Send(context.Context, []Event) error { return nil }

func normalizeSender(s Sender) Sender {
	if s == nil {
		return noopSender{}
	}
	return s
}

// HTTPSender posts audit batches to the ingestion endpoint. The response is
// ignored entirely; audit delivery is fire-and-forget.
type HTTPSender struct {
	client        *http.Client
	endpoint      string
	correlationID CorrelationID
}

// NewHTTPSender returns a Sender posting JSON batches to endpoint.
func NewHTTPSender(client *http.Client, endpoint string, correlationID CorrelationID) *HTTPSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSender{
		client:        client,
		endpoint:      endpoint,
		correlationID: correlationID,
	}
}

// Send implements Sender.
func (s *HTTPSender) Send(ctx context.Context, batch []Event) error {
	payload, err := json.Marshal(map[string]any{"events": batch})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderCorrelationID, s.correlationID.String())

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// AuditOption customizes AuditLogger construction.
type AuditOption func(*AuditLogger)

// WithFlushInterval overrides the periodic flush interval. Zero disables the
// background flusher; Flush and Close still drain the queue.
func WithFlushInterval(interval time.Duration) AuditOption {
	return func(l *AuditLogger) {
		l.interval = interval
	}
}

// WithShutdownSender sets the transport used for the final drain on Close,
// the page-teardown path. When absent, Close falls back to the regular
// sender.
func WithShutdownSender(sender Sender) AuditOption {
	return func(l *AuditLogger) {
		l.shutdownSender = sender
	}
}

// WithAuditClock injects a custom clock (useful for tests).
func WithAuditClock(clock func() time.Time) AuditOption {
	return func(l *AuditLogger) {
		if clock != nil {
			l.now = clock
		}
	}
}

// WithAuditLogging overrides the diagnostic logger used for swallowed
// delivery failures.
func WithAuditLogging(logger Logger) AuditOption {
	return func(l *AuditLogger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// AuditLogger is the process-wide audit queue. Record never fails and never
// blocks on I/O; delivery happens on a timer, on Flush, and on Close. A
// delivery failure drops the batch silently: audit must never break a
// user-facing operation.
type AuditLogger struct {
	mu        sync.Mutex
	queue     []Event
	sessionID string
	subject   string

	correlationID  CorrelationID
	sender         Sender
	shutdownSender Sender
	interval       time.Duration
	logger         Logger
	now            func() time.Time

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewAuditLogger builds the audit queue and starts the background flusher
// when the interval is positive.
func NewAuditLogger(sender Sender, correlationID CorrelationID, opts ...AuditOption) *AuditLogger {
	l := &AuditLogger{
		sessionID:     uuid.NewString(),
		correlationID: correlationID,
		sender:        normalizeSender(sender),
		interval:      30 * time.Second,
		logger:        defLogger{},
		now:           time.Now,
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.interval > 0 {
		l.wg.Add(1)
		go l.run()
	}

	return l
}

func (l *AuditLogger) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Flush(context.Background())
		case <-l.done:
			return
		}
	}
}

// Record appends one event to the queue. It is synchronous, never fails,
// and performs no I/O. The metadata map is copied at enqueue so later
// mutation by the caller cannot alter an already recorded event.
func (l *AuditLogger) Record(action Action, target string, metadata map[string]any) {
	if l == nil {
		return
	}

	var meta map[string]any
	if len(metadata) > 0 {
		meta = make(map[string]any, len(metadata))
		for k, v := range metadata {
			meta[k] = v
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.queue = append(l.queue, Event{
		Timestamp:     l.now(),
		SessionID:     l.sessionID,
		UserID:        l.subject,
		Action:        action,
		Target:        target,
		Metadata:      meta,
		CorrelationID: l.correlationID.String(),
	})
}

// SetSubject updates the attributed subject for subsequently recorded
// events. Pass the empty string to clear attribution.
func (l *AuditLogger) SetSubject(userID string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.subject = userID
	l.mu.Unlock()
}

// ResetSession rotates the audit session identifier, called on logout.
func (l *AuditLogger) ResetSession() {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.sessionID = uuid.NewString()
	l.mu.Unlock()
}

// SessionID returns the current audit session identifier.
func (l *AuditLogger) SessionID() string {
	if l == nil {
		return ""
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessionID
}

// Pending returns the number of queued, undelivered events.
func (l *AuditLogger) Pending() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Flush drains the queue and delivers it as one batch. Delivery failures
// are swallowed; the drained events are dropped either way.
func (l *AuditLogger) Flush(ctx context.Context) {
	l.flushWith(ctx, l.sender)
}

func (l *AuditLogger) flushWith(ctx context.Context, sender Sender) {
	if l == nil {
		return
	}

	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	if err := sender.Send(ctx, batch); err != nil {
		l.logger.Debug("audit batch dropped: %v", err)
	}
}

// Close stops the background flusher and performs a final synchronous
// drain, preferring the shutdown sender when one is configured.
func (l *AuditLogger) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() {
		close(l.done)
		l.wg.Wait()

		sender := l.shutdownSender
		if sender == nil {
			sender = l.sender
		}
		l.flushWith(context.Background(), sender)
	})
}

// HashEmail returns the fixed-length digest recorded in place of a raw
// email address. Input is normalized (trimmed, lowercased) so equal
// addresses always produce equal digests.
func HashEmail(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
