package models

import (
	"testing"
	"time"

	"humrah/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestChatParticipants(t *testing.T) {
	c := &Chat{InitiatorID: 1, AccepterID: 2}

	assert.True(t, c.IsParticipant(1))
	assert.True(t, c.IsParticipant(2))
	assert.False(t, c.IsParticipant(3))

	assert.Equal(t, uint(2), c.PeerOf(1))
	assert.Equal(t, uint(1), c.PeerOf(2))
	assert.Equal(t, uint(0), c.PeerOf(3))

	assert.Equal(t, domain.RoleInitiator, c.RoleOf(1))
	assert.Equal(t, domain.RoleAccepter, c.RoleOf(2))
	assert.Equal(t, "", c.RoleOf(3))
}

func TestChatCanDelete(t *testing.T) {
	now := time.Now()
	expired := &Chat{Status: domain.ChatExpired, ExpiresAt: now.Add(-time.Hour)}
	assert.True(t, expired.CanDelete(now))

	live := &Chat{Status: domain.ChatActive, ExpiresAt: now.Add(time.Hour)}
	assert.False(t, live.CanDelete(now))

	// A report freezes deletion even past expiry.
	reported := &Chat{Status: domain.ChatExpired, ExpiresAt: now.Add(-time.Hour), HasReport: true}
	assert.False(t, reported.CanDelete(now))

	underReview := &Chat{Status: domain.ChatUnderReview, ExpiresAt: now.Add(-time.Hour)}
	assert.False(t, underReview.CanDelete(now))

	// The review sentinel keeps IsExpired false against any real clock.
	frozen := &Chat{Status: domain.ChatUnderReview, ExpiresAt: domain.ReviewSentinel}
	assert.False(t, frozen.IsExpired(now))
}

func TestChatExpiry(t *testing.T) {
	date := time.Date(2026, 8, 22, 18, 0, 0, 0, time.UTC)
	b := &RandomBooking{Date: date}
	assert.Equal(t, date.Add(24*time.Hour), b.ChatExpiry())
}

func TestVoiceCallComputeDuration(t *testing.T) {
	connected := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	ended := connected.Add(95 * time.Second)

	v := &VoiceCall{ConnectedAt: &connected, EndedAt: &ended}
	d := v.ComputeDuration()
	assert.NotNil(t, d)
	assert.Equal(t, int64(95), *d)

	// Never connected: no duration.
	assert.Nil(t, (&VoiceCall{EndedAt: &ended}).ComputeDuration())
	assert.Nil(t, (&VoiceCall{ConnectedAt: &connected}).ComputeDuration())

	// Clock skew never yields negative durations.
	before := connected.Add(-time.Second)
	v = &VoiceCall{ConnectedAt: &connected, EndedAt: &before}
	assert.Equal(t, int64(0), *v.ComputeDuration())
}

func TestVoiceCallRecordingRejected(t *testing.T) {
	v := &VoiceCall{AudioRecorded: true}
	assert.Error(t, v.BeforeSave(nil))

	v.AudioRecorded = false
	assert.NoError(t, v.BeforeSave(nil))
}

func TestVoiceCallIsActive(t *testing.T) {
	assert.True(t, (&VoiceCall{Status: domain.CallRinging}).IsActive())
	assert.True(t, (&VoiceCall{Status: domain.CallConnected}).IsActive())
	assert.False(t, (&VoiceCall{Status: domain.CallEnded}).IsActive())
}

func TestUserAge(t *testing.T) {
	dob := time.Date(1999, 6, 15, 0, 0, 0, 0, time.UTC)
	u := &User{DateOfBirth: &dob}

	assert.Equal(t, 27, u.Age(time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 26, u.Age(time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 27, u.Age(time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, 0, (&User{}).Age(time.Now()))
}
