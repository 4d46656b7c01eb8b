package auth

import (
	"testing"
	"time"

	"humrah/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "test-secret", AccessExpiry: time.Minute, Issuer: "humrah"}

	token, err := GenerateAccessToken(cfg, 42, "user@example.com", "user")
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "test-secret", AccessExpiry: time.Minute, Issuer: "humrah"}
	token, err := GenerateAccessToken(cfg, 1, "a@b.c", "user")
	require.NoError(t, err)

	other := &config.JWTConfig{AccessSecret: "other-secret"}
	_, err = ParseAccessToken(other, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "test-secret", AccessExpiry: -time.Minute, Issuer: "humrah"}
	token, err := GenerateAccessToken(cfg, 1, "a@b.c", "user")
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "test-secret"}
	_, err := ParseAccessToken(cfg, "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
