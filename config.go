package session

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// Default wire and timing constants. RefreshBuffer is subtracted from the
// token expiry when arming the silent-refresh timer.
const (
	DefaultRequestTimeout     = 10 * time.Second
	DefaultRefreshBuffer      = 60 * time.Second
	DefaultAuditFlushInterval = 30 * time.Second

	DefaultCSRFCookieName = "XSRF-TOKEN"
	DefaultCSRFHeaderName = "X-XSRF-TOKEN"
)

// Config holds the endpoints, routes, and timing knobs for the core.
type Config struct {
	// BaseURL is the API origin, e.g. https://api.example.com
	BaseURL string

	// Backend endpoints, relative to BaseURL.
	LoginPath   string
	RefreshPath string
	LogoutPath  string
	AuditPath   string

	// Navigation surfaces handed to the Navigator on 401/403 and guard
	// redirects.
	LoginRoute        string
	UnauthorizedRoute string

	// RequestTimeout bounds every API call; a deadline hit surfaces as
	// ErrRequestTimeout.
	RequestTimeout time.Duration

	// RefreshBuffer is how long before expiry the silent refresh fires.
	RefreshBuffer time.Duration

	// AuditFlushInterval is the audit batch cadence. Zero disables the
	// background flusher.
	AuditFlushInterval time.Duration

	// CSRF double-submit cookie/header pair echoed on mutating verbs.
	CSRFCookieName string
	CSRFHeaderName string
}

// DefaultConfig returns a Config for the given API origin with every knob
// at its default.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:            baseURL,
		LoginPath:          "/auth/login",
		RefreshPath:        "/auth/refresh",
		LogoutPath:         "/auth/logout",
		AuditPath:          "/audit/events",
		LoginRoute:         "/login",
		UnauthorizedRoute:  "/unauthorized",
		RequestTimeout:     DefaultRequestTimeout,
		RefreshBuffer:      DefaultRefreshBuffer,
		AuditFlushInterval: DefaultAuditFlushInterval,
		CSRFCookieName:     DefaultCSRFCookieName,
		CSRFHeaderName:     DefaultCSRFHeaderName,
	}
}

// Validate checks the configuration before the App is wired.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.LoginPath, validation.Required),
		validation.Field(&c.RefreshPath, validation.Required),
		validation.Field(&c.LogoutPath, validation.Required),
		validation.Field(&c.AuditPath, validation.Required),
		validation.Field(&c.LoginRoute, validation.Required),
		validation.Field(&c.UnauthorizedRoute, validation.Required),
		validation.Field(&c.CSRFCookieName, validation.Required),
		validation.Field(&c.CSRFHeaderName, validation.Required),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid session configuration")
	}

	if c.RequestTimeout <= 0 {
		return goerrors.New("request timeout must be positive", goerrors.CategoryValidation)
	}
	if c.RefreshBuffer < 0 {
		return goerrors.New("refresh buffer must not be negative", goerrors.CategoryValidation)
	}
	if c.AuditFlushInterval < 0 {
		return goerrors.New("audit flush interval must not be negative", goerrors.CategoryValidation)
	}

	return nil
}
