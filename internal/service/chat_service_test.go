package service

import (
	"testing"
	"time"

	"humrah/internal/domain"
	"humrah/internal/models"
	"humrah/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The same gate covers text messages and attachment uploads.
func TestWritePolicy(t *testing.T) {
	now := time.Now()

	active := &models.Chat{Status: domain.ChatActive, ExpiresAt: now.Add(time.Hour)}
	assert.NoError(t, writePolicy(active, now))

	expired := &models.Chat{Status: domain.ChatActive, ExpiresAt: now.Add(-time.Minute)}
	err := writePolicy(expired, now)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeChatExpired, apperrors.CodeOf(err))

	frozen := &models.Chat{Status: domain.ChatUnderReview, ExpiresAt: domain.ReviewSentinel}
	err = writePolicy(frozen, now)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeChatUnderReview, apperrors.CodeOf(err))

	// A completed chat stays writable until its pulled-in horizon passes.
	completed := &models.Chat{Status: domain.ChatCompleted, ExpiresAt: now.Add(time.Hour)}
	assert.NoError(t, writePolicy(completed, now))
}

func TestEndOfDay(t *testing.T) {
	now := time.Date(2026, 8, 20, 9, 15, 0, 0, time.UTC)
	eod := EndOfDay(now)
	assert.Equal(t, 23, eod.Hour())
	assert.Equal(t, 59, eod.Minute())
	assert.Equal(t, 59, eod.Second())
	assert.Equal(t, now.Day(), eod.Day())
	assert.True(t, eod.After(now))

	// Already at end of day stays within the same day.
	late := time.Date(2026, 8, 20, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, late.Day(), EndOfDay(late).Day())
}
