package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	goerrors "github.com/goliatone/go-errors"
)

// serverErrorToast is the only text ever handed to the Notifier for a 5xx.
// Response bodies on that path may contain stack traces or internal detail
// and are discarded unread.
const serverErrorToast = "Something went wrong on our end. Please try again later."

// Client wraps outbound API calls with auth-header injection, CSRF-token
// injection, a fixed timeout, and centralized status handling. It holds no
// session state of its own: the token is read through the injected
// TokenSource on every call.
type Client struct {
	cfg           Config
	httpClient    *http.Client
	tokens        TokenSource
	invalidator   SessionInvalidator
	navigator     Navigator
	notifier      Notifier
	correlationID CorrelationID
	logger        Logger
}

// NewClient returns an API client reading tokens from the given source.
// Construct the session Manager first and pass it here directly; share its
// HTTP client so both sides see the same cookie jar.
func NewClient(cfg Config, tokens TokenSource, correlationID CorrelationID) *Client {
	return &Client{
		cfg:           cfg,
		httpClient:    newCookieClient(),
		tokens:        tokens,
		invalidator:   InvalidatorFunc(nil),
		navigator:     noopNavigator{},
		notifier:      noopNotifier{},
		correlationID: correlationID,
		logger:        defLogger{},
	}
}

// WithInvalidator sets the handler invoked exactly once per intercepted 401.
func (c *Client) WithInvalidator(invalidator SessionInvalidator) *Client {
	if invalidator != nil {
		c.invalidator = invalidator
	}
	return c
}

// WithNavigator sets the redirect surface for 401/403 handling.
func (c *Client) WithNavigator(navigator Navigator) *Client {
	c.navigator = normalizeNavigator(navigator)
	return c
}

// WithNotifier sets the error-toast handler for 5xx responses.
func (c *Client) WithNotifier(notifier Notifier) *Client {
	c.notifier = normalizeNotifier(notifier)
	return c
}

// WithHTTPClient overrides the HTTP client, typically to share the session
// manager's cookie jar.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	if client != nil {
		c.httpClient = client
	}
	return c
}

// WithLogger overrides the diagnostic logger.
func (c *Client) WithLogger(logger Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Get issues a GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, payload, out any) error {
	return c.Do(ctx, http.MethodPost, path, payload, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, payload, out any) error {
	return c.Do(ctx, http.MethodPut, path, payload, out)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, payload, out any) error {
	return c.Do(ctx, http.MethodPatch, path, payload, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do performs one API call. Headers always carry the JSON content type and
// the correlation ID; a bearer header travels when a token is available and
// the CSRF cookie is echoed as a header on mutating verbs. Status handling:
// 401 clears the session and redirects to login, 403 redirects to the
// unauthorized surface, 5xx raises the generic toast, plain 4xx surfaces a
// structured error with the body message when parseable.
func (c *Client) Do(ctx context.Context, method, path string, payload, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to encode request body")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, joinURL(c.cfg.BaseURL, path), body)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to build request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderCorrelationID, c.correlationID.String())
	if token := c.tokens.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if isMutating(method) {
		if csrf := c.csrfToken(); csrf != "" {
			req.Header.Set(c.cfg.CSRFHeaderName, csrf)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrRequestTimeout
		}
		return goerrors.Wrap(err, goerrors.CategoryOperation, "network error, please try again")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, resp.Body)
		c.invalidator.Invalidate()
		c.navigator.Navigate(c.cfg.LoginRoute)
		return ErrSessionExpired

	case resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		c.navigator.Navigate(c.cfg.UnauthorizedRoute)
		return ErrAccessDenied

	case resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		c.notifier.Notify(serverErrorToast)
		return ErrServerError

	case resp.StatusCode >= 400:
		return apiError(resp.StatusCode, errorMessage(resp.Body))

	case resp.StatusCode == http.StatusNoContent || out == nil:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil

	default:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return ErrRequestTimeout
			}
			return goerrors.Wrap(err, goerrors.CategoryOperation, "network error, please try again")
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "unable to decode response")
		}
		return nil
	}
}

// csrfToken reads the same-site CSRF cookie from the shared jar, empty when
// absent.
func (c *Client) csrfToken() string {
	if c.httpClient.Jar == nil {
		return ""
	}
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return ""
	}
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == c.cfg.CSRFCookieName {
			return cookie.Value
		}
	}
	return ""
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// errorMessage extracts a user-actionable message from a 4xx body, falling
// back to generic text when the body is not parseable.
func errorMessage(body io.Reader) string {
	const fallback = "The request could not be completed."

	data, err := io.ReadAll(io.LimitReader(body, 8<<10))
	if err != nil {
		return fallback
	}

	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fallback
	}
	if parsed.Message != "" {
		return parsed.Message
	}
	if parsed.Error != "" {
		return parsed.Error
	}
	return fallback
}
