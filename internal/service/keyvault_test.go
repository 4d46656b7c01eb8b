package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultSealOpen(t *testing.T) {
	v, err := NewKeyVault("master-key-material", nil)
	require.NoError(t, err)

	secret := []byte("0123456789abcdef0123456789abcdef")
	sealed, err := v.seal(secret)
	require.NoError(t, err)
	assert.NotEqual(t, secret, sealed)

	opened, err := v.open(sealed)
	require.NoError(t, err)
	assert.Equal(t, secret, opened)
}

func TestVaultOpenRejectsTampering(t *testing.T) {
	v, err := NewKeyVault("master-key-material", nil)
	require.NoError(t, err)

	sealed, err := v.seal([]byte("secret"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0x01
	_, err = v.open(sealed)
	assert.Error(t, err)
}

func TestVaultKeysDontCrossMasters(t *testing.T) {
	a, err := NewKeyVault("master-a", nil)
	require.NoError(t, err)
	b, err := NewKeyVault("master-b", nil)
	require.NoError(t, err)

	sealed, err := a.seal([]byte("secret"))
	require.NoError(t, err)
	_, err = b.open(sealed)
	assert.Error(t, err)
}

func TestVaultOpenRejectsTruncated(t *testing.T) {
	v, err := NewKeyVault("master-key-material", nil)
	require.NoError(t, err)
	_, err = v.open([]byte("short"))
	assert.Error(t, err)
}

func TestNonceVaries(t *testing.T) {
	v, err := NewKeyVault("master-key-material", nil)
	require.NoError(t, err)

	a, err := v.seal([]byte("same plaintext"))
	require.NoError(t, err)
	b, err := v.seal([]byte("same plaintext"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
