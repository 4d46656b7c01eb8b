package rtctoken

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUIDFromUserID(t *testing.T) {
	// Stable across calls.
	assert.Equal(t, UIDFromUserID(42), UIDFromUserID(42))
	assert.NotEqual(t, UIDFromUserID(42), UIDFromUserID(43))

	// Always fits a signed 32-bit client.
	for _, id := range []uint{0, 1, 42, 1 << 20, 1<<32 - 1} {
		assert.LessOrEqual(t, UIDFromUserID(id), uint32(0x7fffffff))
	}
}

func TestHMACIssuerRoundTrip(t *testing.T) {
	issuer := NewHMACIssuer("app-id", "app-cert")
	tok, err := issuer.Issue(context.Background(), Request{
		Channel: "voice_10_1755600000000",
		UID:     12345,
		Role:    RolePublisher,
		TTL:     30 * time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, "voice_10_1755600000000", tok.Channel)
	assert.Equal(t, uint32(12345), tok.UID)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), tok.ExpiresAt, 5*time.Second)

	ok, err := issuer.Verify(tok.Value, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	// Expired token verifies the signature but fails the clock.
	ok, err = issuer.Verify(tok.Value, time.Now().Add(31*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsTampering(t *testing.T) {
	issuer := NewHMACIssuer("app-id", "app-cert")
	tok, err := issuer.Issue(context.Background(), Request{
		Channel: "voice_1_1", UID: 1, Role: RoleSubscriber, TTL: time.Minute,
	})
	require.NoError(t, err)

	// Wrong certificate.
	other := NewHMACIssuer("app-id", "other-cert")
	ok, err := other.Verify(tok.Value, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	// Garbage.
	_, err = issuer.Verify("not-a-token", time.Now())
	assert.Error(t, err)
}

func TestIssueValidation(t *testing.T) {
	issuer := NewHMACIssuer("app-id", "app-cert")

	_, err := issuer.Issue(context.Background(), Request{UID: 1, Role: RolePublisher, TTL: time.Minute})
	assert.Error(t, err, "empty channel")

	_, err = issuer.Issue(context.Background(), Request{Channel: "c", UID: 1, Role: "ADMIN", TTL: time.Minute})
	assert.Error(t, err, "unknown role")
}

func TestStubIssuer(t *testing.T) {
	tok, err := StubIssuer{}.Issue(context.Background(), Request{Channel: "c", UID: 7, Role: RolePublisher, TTL: time.Minute})
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Value)
	assert.Equal(t, uint32(7), tok.UID)
}
