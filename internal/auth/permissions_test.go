package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/apperr"
)

func TestDefaultHierarchySatisfies(t *testing.T) {
	h := DefaultHierarchy()

	tests := []struct {
		have, need string
		want       bool
	}{
		{RoleUser, RoleUser, true},
		{RoleAdmin, RoleUser, true},
		{RoleSuper, RoleUser, true},
		{RoleSuper, RoleAdmin, true},
		{RoleUser, RoleAdmin, false},
		{RoleAdmin, RoleSuper, false},
		{"guest", RoleUser, false},
		{"guest", "guest", true},
	}

	for _, tt := range tests {
		t.Run(tt.have+">="+tt.need, func(t *testing.T) {
			assert.Equal(t, tt.want, h.Satisfies(tt.have, tt.need))
		})
	}
}

func TestHierarchyFromConfig(t *testing.T) {
	h, err := NewHierarchy(map[string][]string{
		"reader":  {},
		"writer":  {"reader"},
		"auditor": {"reader"},
		"owner":   {"writer", "auditor"},
	})
	require.NoError(t, err)

	assert.True(t, h.Satisfies("owner", "reader"))
	assert.True(t, h.Satisfies("owner", "auditor"))
	assert.False(t, h.Satisfies("writer", "auditor"))
	assert.True(t, h.Known("auditor"))
	assert.False(t, h.Known("admin"))
	assert.Equal(t, []string{"auditor", "owner", "reader", "writer"}, h.Roles())
}

func TestHierarchyToleratesCycles(t *testing.T) {
	h, err := NewHierarchy(map[string][]string{"a": {"b"}, "b": {"a"}})
	require.NoError(t, err)

	assert.True(t, h.Satisfies("a", "b"))
	assert.True(t, h.Satisfies("b", "a"))
}

func TestHierarchyRejectsUnknownParent(t *testing.T) {
	_, err := NewHierarchy(map[string][]string{"admin": {"ghost"}})
	assert.ErrorIs(t, err, apperr.ErrConfig)
	assert.ErrorIs(t, err, ErrUnknownRole)
}
