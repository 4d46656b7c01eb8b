package service

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"strings"
	"time"

	"humrah/internal/domain"
	"humrah/internal/models"
	"humrah/internal/repository"
	"humrah/pkg/apperrors"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
)

// KeyVault issues and guards the symmetric chat keys. Key rows live apart
// from chats so a chat can be preserved for review while its secret is
// independently destroyed. Secrets are sealed at rest under the vault
// master key.
type KeyVault struct {
	keys *repository.KeyRepository
	aead cipher.AEAD
}

// NewKeyVault derives the sealing key from the configured master key
// material (any length; hashed to 32 bytes).
func NewKeyVault(masterKey string, keys *repository.KeyRepository) (*KeyVault, error) {
	sum := sha256.Sum256([]byte(masterKey))
	aead, err := chacha20poly1305.NewX(sum[:])
	if err != nil {
		return nil, err
	}
	return &KeyVault{keys: keys, aead: aead}, nil
}

func (v *KeyVault) seal(secret []byte) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return v.aead.Seal(nonce, nonce, secret, nil), nil
}

func (v *KeyVault) open(sealed []byte) ([]byte, error) {
	ns := v.aead.NonceSize()
	if len(sealed) < ns {
		return nil, apperrors.Internal("sealed secret truncated", nil)
	}
	return v.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
}

// Create generates a 256-bit secret and key id, grants WRITE to each
// participant, and returns the key id.
func (v *KeyVault) Create(purpose string, expiresAt time.Time, participants []uint) (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", apperrors.Internal("key generation failed", err)
	}
	sealed, err := v.seal(secret)
	if err != nil {
		return "", apperrors.Internal("key sealing failed", err)
	}
	keyID := strings.ReplaceAll(uuid.New().String(), "-", "")
	row := &models.EncryptionKey{
		KeyID:        keyID,
		SealedSecret: sealed,
		Purpose:      purpose,
		ExpiresAt:    expiresAt,
	}
	now := time.Now()
	grants := make([]models.KeyGrant, 0, len(participants))
	for _, uid := range participants {
		grants = append(grants, models.KeyGrant{UserID: uid, Level: domain.AccessWrite, GrantedAt: now})
	}
	if err := v.keys.Create(row, grants); err != nil {
		return "", apperrors.Internal("key persist failed", err)
	}
	return keyID, nil
}

// Get returns the secret when the caller's acl level covers the requested
// level. Access is recorded; failures are not.
func (v *KeyVault) Get(keyID string, callerID uint, level string) ([]byte, error) {
	row, err := v.keys.GetByKeyID(keyID)
	if err != nil {
		return nil, apperrors.Internal("key lookup failed", err)
	}
	if row == nil || row.Deleted || row.SealedSecret == nil {
		return nil, apperrors.NotFound("key not found")
	}
	if row.ExpiresAt.Before(time.Now()) {
		return nil, apperrors.New(apperrors.CodeAccessDenied, "key expired")
	}
	granted := -1
	for _, g := range row.Grants {
		if g.UserID == callerID && domain.AccessRank(g.Level) > granted {
			granted = domain.AccessRank(g.Level)
		}
	}
	if granted < domain.AccessRank(level) {
		return nil, apperrors.New(apperrors.CodeAccessDenied, "insufficient key access")
	}
	secret, err := v.open(row.SealedSecret)
	if err != nil {
		return nil, apperrors.Internal("key unsealing failed", err)
	}
	// Access bookkeeping is best-effort; losing it never blocks the read.
	_ = v.keys.RecordAccess(keyID, time.Now())
	return secret, nil
}

// Destroy soft-deletes the key and nulls its secret.
func (v *KeyVault) Destroy(keyID string) error {
	if err := v.keys.Destroy(keyID, time.Now()); err != nil {
		return apperrors.Internal("key destroy failed", err)
	}
	return nil
}

// SweepExpired destroys every live key past its expiry; returns the count.
func (v *KeyVault) SweepExpired(now time.Time) (int64, error) {
	return v.keys.DestroyExpired(now)
}
