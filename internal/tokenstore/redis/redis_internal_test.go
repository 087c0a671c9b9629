package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	s := &Store{prefix: "ag"}

	assert.Equal(t, "ag:token:web:abc", s.tokenKey("web", "abc"))
	assert.Equal(t, "ag:token-owner:42:web", s.ownerKey(42, "web"))
}

func TestNewDefaultsPrefix(t *testing.T) {
	assert.Equal(t, DefaultPrefix, New(nil, "").prefix)
}
