package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	// Karachi to Lahore is roughly 1020 km.
	d := HaversineKm(24.8607, 67.0011, 31.5204, 74.3587)
	assert.InDelta(t, 1020, d, 30)

	// Same point.
	assert.InDelta(t, 0, HaversineKm(24.8607, 67.0011, 24.8607, 67.0011), 0.001)

	// Symmetry.
	assert.InDelta(t,
		HaversineKm(24.8607, 67.0011, 31.5204, 74.3587),
		HaversineKm(31.5204, 74.3587, 24.8607, 67.0011),
		0.001)
}

func TestWithinKm(t *testing.T) {
	// Two points ~5 km apart within Karachi.
	assert.True(t, WithinKm(24.8607, 67.0011, 24.9056, 67.0822, 50))
	assert.False(t, WithinKm(24.8607, 67.0011, 31.5204, 74.3587, 50))

	// Non-positive radius disables the check.
	assert.True(t, WithinKm(24.8607, 67.0011, 31.5204, 74.3587, 0))
}
