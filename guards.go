package session

// Decision is the outcome of evaluating a guarded route.
type Decision int

const (
	// Allow renders the guarded content.
	Allow Decision = iota
	// RedirectLogin sends an unauthenticated visitor to the login surface.
	RedirectLogin
	// RedirectUnauthorized sends an authenticated visitor lacking the
	// required role to the unauthorized surface.
	RedirectUnauthorized
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectUnauthorized:
		return "redirect_unauthorized"
	default:
		return "unknown"
	}
}

// Guard produces render-time decisions for protected routes. It keeps no
// state of its own: every Evaluate call reads the manager's current
// authentication and role state, so role or token changes mid-session are
// picked up on the next navigation. Guard decisions shape the UI only; the
// server independently authorizes every request.
type Guard struct {
	sessions  *Manager
	audit     *AuditLogger
	navigator Navigator
}

// NewGuard returns a guard over the given session manager.
func NewGuard(sessions *Manager, audit *AuditLogger) *Guard {
	return &Guard{
		sessions:  sessions,
		audit:     audit,
		navigator: noopNavigator{},
	}
}

// WithNavigator sets the navigator used by Require to perform redirects.
func (g *Guard) WithNavigator(navigator Navigator) *Guard {
	g.navigator = normalizeNavigator(navigator)
	return g
}

// Evaluate decides whether the route at path may render for the current
// session. Pass an empty required role (or RoleViewer) for routes that only
// need authentication. A role denial emits one access_denied audit event
// with the route as target.
func (g *Guard) Evaluate(path string, required Role) Decision {
	if !g.sessions.IsAuthenticated() {
		return RedirectLogin
	}

	if required == "" || required == RoleViewer {
		return Allow
	}

	if !g.sessions.HasRole(required) {
		g.audit.Record(ActionAccessDenied, path, map[string]any{
			"required_role": string(required),
		})
		return RedirectUnauthorized
	}

	return Allow
}

// Require evaluates the route and performs the redirect for non-Allow
// outcomes. It reports whether the guarded content may render.
func (g *Guard) Require(path string, required Role) bool {
	switch g.Evaluate(path, required) {
	case RedirectLogin:
		g.navigator.Navigate(g.sessions.cfg.LoginRoute)
		return false
	case RedirectUnauthorized:
		g.navigator.Navigate(g.sessions.cfg.UnauthorizedRoute)
		return false
	default:
		return true
	}
}
