package session

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to the core's rich errors. Consumers should branch on
// these (or on the sentinel values) rather than on message text.
const (
	TextCodeInvalidCreds   = "INVALID_CREDENTIALS"
	TextCodeSessionExpired = "SESSION_EXPIRED"
	TextCodeAccessDenied   = "ACCESS_DENIED"
	TextCodeServerError    = "SERVER_ERROR"
	TextCodeTimeout        = "REQUEST_TIMEOUT"
	TextCodeTokenMalformed = "TOKEN_MALFORMED"
	TextCodeAPIError       = "API_ERROR"
)

// ErrInvalidCredentials is returned for every failed login, regardless of
// cause. The message never distinguishes an unknown account from a wrong
// password.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrSessionExpired is returned when a 401 is intercepted; the response body
// is discarded and local session state has already been cleared.
var ErrSessionExpired = goerrors.New("your session has expired, please sign in again", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccessDenied is returned when a 403 is intercepted or a client-side
// role check fails. UX-level only; the server made (or will make) the real
// decision.
var ErrAccessDenied = goerrors.New("you do not have permission to do that", goerrors.CategoryAuthz).
	WithTextCode(TextCodeAccessDenied).
	WithCode(goerrors.CodeForbidden)

// ErrServerError marks a 5xx response. It never carries anything from the
// response body.
var ErrServerError = goerrors.New("something went wrong, please try again later", goerrors.CategoryInternal).
	WithTextCode(TextCodeServerError).
	WithCode(goerrors.CodeInternal)

// ErrRequestTimeout marks a request cancelled by the client-side deadline,
// distinct from a generic network failure.
var ErrRequestTimeout = goerrors.New("the request timed out, please try again", goerrors.CategoryOperation).
	WithTextCode(TextCodeTimeout)

// ErrTokenMalformed is returned when a token cannot be decoded. Applying a
// malformed token is a no-op on session state.
var ErrTokenMalformed = goerrors.New("unable to decode session token", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// apiError builds the structured error for a plain 4xx response, carrying
// the numeric status and a user-actionable message.
func apiError(status int, message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithTextCode(TextCodeAPIError).
		WithMetadata(map[string]any{"status": status})
}
