package auth

import (
	"sort"
	"strings"
)

// RouteArgument is the route argument carrying a per route requirement.
const RouteArgument = "auth"

// RequirementKind classifies a requirement.
type RequirementKind int

const (
	// NotRequired lets anonymous requests through.
	NotRequired RequirementKind = iota
	// RequiredAny needs any authenticated user.
	RequiredAny
	// RequiredRole needs a user whose effective role satisfies Role.
	RequiredRole
)

// Requirement is what a request needs to be allowed.
type Requirement struct {
	Kind RequirementKind
	Role string
}

// ParseRequirement parses a marker: "true" needs a login, "false", "null"
// and "" need nothing, anything else names a role.
func ParseRequirement(marker string) Requirement {
	switch marker {
	case "true":
		return Requirement{Kind: RequiredAny}
	case "false", "null", "":
		return Requirement{Kind: NotRequired}
	default:
		return Requirement{Kind: RequiredRole, Role: marker}
	}
}

func (r Requirement) String() string {
	switch r.Kind {
	case RequiredAny:
		return "true"
	case RequiredRole:
		return r.Role
	default:
		return "false"
	}
}

// Request is the view of an incoming request the policy and gate need.
type Request interface {
	Method() string
	Path() string
	// Query is the raw query string without "?".
	Query() string
	// RouteArgument returns an argument attached to the matched route.
	RouteArgument(name string) (string, bool)
}

// Policy determines per request whether and which login is required.
type Policy struct {
	// Default applies to routes without an auth argument.
	Default string
	// Routes maps path prefixes to markers for frameworks that can not
	// attach arguments to routes. See MatchRoute.
	Routes map[string]string

	prefixes []string
}

// NewPolicy returns a policy with its route prefixes indexed.
func NewPolicy(def string, routes map[string]string) *Policy {
	p := &Policy{Default: def, Routes: routes}

	for prefix := range routes {
		p.prefixes = append(p.prefixes, prefix)
	}

	// longest first
	sort.Slice(p.prefixes, func(i, j int) bool {
		if len(p.prefixes[i]) != len(p.prefixes[j]) {
			return len(p.prefixes[i]) > len(p.prefixes[j])
		}

		return p.prefixes[i] < p.prefixes[j]
	})

	return p
}

// RequiredRole returns the requirement of req: the route argument when the
// matched route carries one, the process default otherwise.
func (p *Policy) RequiredRole(req Request) Requirement {
	if marker, ok := req.RouteArgument(RouteArgument); ok {
		return ParseRequirement(marker)
	}

	return ParseRequirement(p.Default)
}

// MatchRoute returns the marker of the longest Routes prefix covering path.
// A prefix covers itself and everything below it ("/admin" covers
// "/admin/users" but not "/administrator").
func (p *Policy) MatchRoute(path string) (string, bool) {
	for _, prefix := range p.prefixes {
		if covers(prefix, path) {
			return p.Routes[prefix], true
		}
	}

	return "", false
}

func covers(prefix, path string) bool {
	if prefix == path {
		return true
	}

	base := strings.TrimSuffix(prefix, "/")

	return strings.HasPrefix(path, base+"/")
}
