package session

import (
	"context"
	"net/http"
	"time"
)

// Option customizes App construction.
type Option func(*appOptions)

type appOptions struct {
	logger      Logger
	navigator   Navigator
	notifier    Notifier
	httpClient  *http.Client
	auditSender Sender
	clock       func() time.Time
}

// WithLogger sets the diagnostic logger for every component.
func WithLogger(logger Logger) Option {
	return func(o *appOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithNavigator sets the surface used for login/unauthorized redirects.
func WithNavigator(navigator Navigator) Option {
	return func(o *appOptions) {
		o.navigator = navigator
	}
}

// WithNotifier sets the error-toast handler.
func WithNotifier(notifier Notifier) Option {
	return func(o *appOptions) {
		o.notifier = notifier
	}
}

// WithHTTPClient sets the shared HTTP client. It should carry a cookie jar;
// the session manager, API client, and audit sender all use it.
func WithHTTPClient(client *http.Client) Option {
	return func(o *appOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithAuditSender overrides the audit batch transport.
func WithAuditSender(sender Sender) Option {
	return func(o *appOptions) {
		o.auditSender = sender
	}
}

// WithClock injects a custom clock into the session manager and audit
// logger (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(o *appOptions) {
		o.clock = clock
	}
}

// App is the owned context object holding the whole client core. It is
// constructed once at application start and holds every piece of state that
// used to be ambient: the correlation ID, the audit queue, and the session
// manager. Components receive their collaborators by reference; nothing is
// patched in after the fact.
type App struct {
	Config      Config
	Correlation CorrelationID
	Audit       *AuditLogger
	Sessions    *Manager
	API         *Client
	Guards      *Guard
	Catalog     *Catalog
}

// New validates the configuration and wires the core in dependency order:
// correlation ID, audit logger, session manager, API client, guards,
// catalog. The API client takes the manager directly as its TokenSource and
// SessionInvalidator.
func New(cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &appOptions{
		logger:     defLogger{},
		httpClient: newCookieClient(),
	}
	for _, opt := range opts {
		opt(o)
	}

	correlation := NewCorrelationID()

	sender := o.auditSender
	if sender == nil {
		sender = NewHTTPSender(o.httpClient, joinURL(cfg.BaseURL, cfg.AuditPath), correlation)
	}

	auditOpts := []AuditOption{
		WithFlushInterval(cfg.AuditFlushInterval),
		WithAuditLogging(o.logger),
	}
	if o.clock != nil {
		auditOpts = append(auditOpts, WithAuditClock(o.clock))
	}
	audit := NewAuditLogger(sender, correlation, auditOpts...)

	sessions := NewManager(cfg, audit, correlation).
		WithLogger(o.logger).
		WithHTTPClient(o.httpClient)
	if o.clock != nil {
		sessions.WithClock(o.clock)
	}

	api := NewClient(cfg, sessions, correlation).
		WithInvalidator(sessions).
		WithNavigator(o.navigator).
		WithNotifier(o.notifier).
		WithHTTPClient(o.httpClient).
		WithLogger(o.logger)

	guards := NewGuard(sessions, audit).WithNavigator(o.navigator)

	return &App{
		Config:      cfg,
		Correlation: correlation,
		Audit:       audit,
		Sessions:    sessions,
		API:         api,
		Guards:      guards,
		Catalog:     NewCatalog(api, sessions, audit),
	}, nil
}

// Start attempts silent session recovery. Errors never escape; a cold
// start with no refresh credential simply stays unauthenticated.
func (a *App) Start(ctx context.Context) {
	a.Sessions.Start(ctx)
}

// Close drains the audit queue and stops the background flusher.
func (a *App) Close() {
	a.Audit.Close()
}
