package auth

import (
	"slices"
	"strconv"

	"github.com/authgate/authgate/internal/apperr"
)

// Built in role names.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	RoleSuper = "super"
)

// Hierarchy orders roles so that a role satisfies every role it inherits
// from, directly or transitively. It is immutable after construction and
// safe for concurrent use.
type Hierarchy struct {
	// satisfies maps a role to itself and all of its ancestors.
	satisfies map[string]map[string]struct{}
}

// DefaultInheritance is user < admin < super.
func DefaultInheritance() map[string][]string {
	return map[string][]string{
		RoleUser:  {},
		RoleAdmin: {RoleUser},
		RoleSuper: {RoleAdmin},
	}
}

// DefaultHierarchy returns the hierarchy of DefaultInheritance.
func DefaultHierarchy() *Hierarchy {
	h, _ := NewHierarchy(DefaultInheritance()) //nolint:errcheck // static input

	return h
}

// NewHierarchy builds a hierarchy from role -> inherited roles.
// Every inherited role must itself be a key of inherits.
func NewHierarchy(inherits map[string][]string) (*Hierarchy, error) {
	for role, parents := range inherits {
		for _, parent := range parents {
			if _, ok := inherits[parent]; !ok {
				return nil, apperr.Config(
					"role "+strconv.Quote(role)+" inherits "+strconv.Quote(parent), ErrUnknownRole)
			}
		}
	}

	h := &Hierarchy{satisfies: make(map[string]map[string]struct{}, len(inherits))}

	for role := range inherits {
		seen := map[string]struct{}{}
		stack := []string{role}

		for len(stack) > 0 {
			r := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if _, ok := seen[r]; ok {
				continue
			}

			seen[r] = struct{}{}
			stack = append(stack, inherits[r]...)
		}

		h.satisfies[role] = seen
	}

	return h, nil
}

// Known reports whether role is part of the hierarchy.
func (h *Hierarchy) Known(role string) bool {
	_, ok := h.satisfies[role]

	return ok
}

// Satisfies reports whether a holder of have may access what need requires.
func (h *Hierarchy) Satisfies(have, need string) bool {
	if have == need {
		return true
	}

	_, ok := h.satisfies[have][need]

	return ok
}

// Roles returns all known roles in lexical order.
func (h *Hierarchy) Roles() []string {
	out := make([]string, 0, len(h.satisfies))
	for r := range h.satisfies {
		out = append(out, r)
	}

	slices.Sort(out)

	return out
}
