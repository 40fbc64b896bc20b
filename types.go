package session

import "fmt"

// Logger is the minimal logging surface the core depends on.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// TokenSource exposes the current access token to the API client. The
// session Manager is the canonical implementation; an empty string means
// no session.
type TokenSource interface {
	AccessToken() string
}

// SessionInvalidator force-clears local session state. The API client calls
// it exactly once when it intercepts a 401.
type SessionInvalidator interface {
	Invalidate()
}

// Navigator moves the user to another surface (login, unauthorized). The
// host application supplies one; the default is a no-op.
type Navigator interface {
	Navigate(route string)
}

// Notifier surfaces a user-facing message, typically as a toast. Only fixed,
// non-leaking text is ever passed to it.
type Notifier interface {
	Notify(message string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(route string)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(route string) {
	if f != nil {
		f(route)
	}
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(message string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(message string) {
	if f != nil {
		f(message)
	}
}

// InvalidatorFunc adapts a function to the SessionInvalidator interface.
type InvalidatorFunc func()

// Invalidate implements SessionInvalidator.
func (f InvalidatorFunc) Invalidate() {
	if f != nil {
		f()
	}
}

type noopNavigator struct{}

func (noopNavigator) Navigate(string) {}

type noopNotifier struct{}

func (noopNotifier) Notify(string) {}

func normalizeNavigator(n Navigator) Navigator {
	if n == nil {
		return noopNavigator{}
	}
	return n
}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
