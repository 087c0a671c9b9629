package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// Outcome is the result of an access decision.
type Outcome int

const (
	// Allow lets the request through.
	Allow Outcome = iota
	// Unauthenticated denies an anonymous request that needs a login.
	Unauthenticated
	// Forbidden denies an authenticated request lacking the required role.
	Forbidden
)

func (o Outcome) String() string {
	switch o {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	default:
		return "allow"
	}
}

// Decision is an access decision and what led to it.
type Decision struct {
	Outcome     Outcome
	Requirement Requirement
	// Role is the effective role, empty for anonymous requests.
	Role string
}

// SessionState is what the gate asks of a session. *Session satisfies it.
type SessionState interface {
	IsLoggedIn() bool
	Role(ctx context.Context) (string, error)
}

// ActionKind tells the HTTP layer what to do with a decision.
type ActionKind int

const (
	// Proceed continues with the request.
	Proceed ActionKind = iota
	// Redirect sends the client to Action.Location.
	Redirect
	// Unauthorized responds with an unauthenticated error.
	Unauthorized
	// Deny responds with a forbidden error.
	Deny
)

// Action is a decision translated for the HTTP layer.
type Action struct {
	Kind     ActionKind
	Location string
}

// Gate enforces a Policy against session state. It is immutable and
// safe for concurrent use.
type Gate struct {
	policy    *Policy
	hierarchy *Hierarchy
	loginURL  string
}

// NewGate returns a gate. loginURL is the login base URL, "" disables redirects.
func NewGate(policy *Policy, hierarchy *Hierarchy, loginURL string) *Gate {
	return &Gate{policy: policy, hierarchy: hierarchy, loginURL: loginURL}
}

// Policy returns the enforced policy.
func (g *Gate) Policy() *Policy {
	return g.policy
}

// Decide runs the access decision for req.
func (g *Gate) Decide(ctx context.Context, req Request, s SessionState) (Decision, error) {
	d := Decision{Requirement: g.policy.RequiredRole(req)}

	d, err := g.decide(ctx, d, s)
	if err != nil {
		return d, err
	}

	decisionsTotal.WithLabelValues(d.Outcome.String()).Inc()

	return d, nil
}

func (g *Gate) decide(ctx context.Context, d Decision, s SessionState) (Decision, error) {
	if d.Requirement.Kind == NotRequired {
		d.Outcome = Allow

		return d, nil
	}

	if s == nil || !s.IsLoggedIn() {
		d.Outcome = Unauthenticated

		return d, nil
	}

	role, err := s.Role(ctx)
	if err != nil {
		return d, err
	}

	d.Role = role

	if d.Requirement.Kind == RequiredAny || g.hierarchy.Satisfies(role, d.Requirement.Role) {
		d.Outcome = Allow

		return d, nil
	}

	log.Debug().Str("role", role).Str("required", d.Requirement.Role).Msg("role does not satisfy requirement")

	d.Outcome = Forbidden

	return d, nil
}

// Resolve maps a decision onto an HTTP level action. Anonymous GET and HEAD
// requests are redirected to the login page when a login URL is set.
// Forbidden is never redirected.
func (g *Gate) Resolve(d Decision, req Request) Action {
	switch d.Outcome {
	case Allow:
		return Action{Kind: Proceed}
	case Forbidden:
		return Action{Kind: Deny}
	}

	method := req.Method()
	if g.loginURL == "" || (method != http.MethodGet && method != http.MethodHead) {
		return Action{Kind: Unauthorized}
	}

	return Action{Kind: Redirect, Location: LoginLocation(g.loginURL, req.Path(), req.Query())}
}

// LoginLocation returns the login page URL returning to path?query afterwards.
func LoginLocation(loginURL, path, query string) string {
	target := path
	if query != "" {
		target += "?" + query
	}

	return strings.TrimRight(loginURL, "/") + "/login?return=" + url.QueryEscape(target)
}
