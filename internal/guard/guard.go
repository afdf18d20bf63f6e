package guard

import "github.com/aqarlink/aqarlink/internal/session"

// Outcome is the navigation decision for a protected view.
type Outcome int

const (
	// ShowLoading renders a neutral indicator while the session hydrates.
	ShowLoading Outcome = iota
	// RedirectLogin sends an unauthenticated visitor to the login screen.
	RedirectLogin
	// RedirectRegister sends a verified-but-unregistered user to onboarding.
	RedirectRegister
	// Allow renders the protected content.
	Allow
)

func (o Outcome) String() string {
	switch o {
	case ShowLoading:
		return "loading"
	case RedirectLogin:
		return "login"
	case RedirectRegister:
		return "register"
	case Allow:
		return "allow"
	}
	return "unknown"
}

// Decide maps session state to a navigation outcome. The order of checks is
// significant: loading first, so hydration never flashes a redirect, then
// presence, then newness.
func Decide(s session.State) Outcome {
	if s.IsLoading {
		return ShowLoading
	}
	if s.User == nil {
		return RedirectLogin
	}
	if s.User.IsNewUser {
		return RedirectRegister
	}
	return Allow
}
