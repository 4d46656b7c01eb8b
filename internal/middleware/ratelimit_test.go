package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlidingWindowLimiter(t *testing.T) {
	l := NewSlidingWindowLimiter(3, time.Minute)
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	assert.True(t, l.AllowAt("a", now))
	assert.True(t, l.AllowAt("a", now.Add(time.Second)))
	assert.True(t, l.AllowAt("a", now.Add(2*time.Second)))
	assert.False(t, l.AllowAt("a", now.Add(3*time.Second)))

	// Separate keys have separate budgets.
	assert.True(t, l.AllowAt("b", now.Add(3*time.Second)))

	// The window slides: aged-out events free their slots.
	assert.True(t, l.AllowAt("a", now.Add(61*time.Second)))  // 0s and 1s aged out
	assert.True(t, l.AllowAt("a", now.Add(90*time.Second)))  // 2s aged out
	assert.True(t, l.AllowAt("a", now.Add(100*time.Second))) // fills the third slot
	assert.False(t, l.AllowAt("a", now.Add(101*time.Second)))
}

func TestSlidingWindowRejectionsDontExtend(t *testing.T) {
	l := NewSlidingWindowLimiter(1, time.Minute)
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	assert.True(t, l.AllowAt("a", now))
	for i := 1; i <= 30; i++ {
		assert.False(t, l.AllowAt("a", now.Add(time.Duration(i)*time.Second)))
	}
	// Rejected attempts never count toward the window.
	assert.True(t, l.AllowAt("a", now.Add(61*time.Second)))
}
