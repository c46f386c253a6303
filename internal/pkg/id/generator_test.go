package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPlaceholder(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		p := NewPlaceholder()
		assert.True(t, strings.HasPrefix(p, "temp-"), "placeholder should carry temp- prefix: %s", p)
		assert.False(t, seen[p], "placeholder collided: %s", p)
		seen[p] = true
	}
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, IsPlaceholder(NewPlaceholder()))
	assert.False(t, IsPlaceholder("trace-123"))
	assert.False(t, IsPlaceholder("temp-"))
	assert.False(t, IsPlaceholder(""))
}
