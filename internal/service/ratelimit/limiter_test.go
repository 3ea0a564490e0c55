package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowDrainsBucket(t *testing.T) {
	l := New()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("client-a", 3, 0), "call %d should pass", i)
	}
	assert.False(t, l.Allow("client-a", 3, 0))
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := New()

	assert.True(t, l.Allow("client-a", 1, 0))
	assert.False(t, l.Allow("client-a", 1, 0))
	assert.True(t, l.Allow("client-b", 1, 0))
}

func TestAllowRefills(t *testing.T) {
	l := New()

	assert.True(t, l.Allow("client-a", 1, 1000))
	assert.False(t, l.Allow("client-a", 1, 1000))

	// Backdate the bucket instead of sleeping.
	l.mu.Lock()
	b := l.buckets["client-a"]
	b.last = b.last.Add(-time.Second)
	l.mu.Unlock()

	assert.True(t, l.Allow("client-a", 1, 1000))
}
