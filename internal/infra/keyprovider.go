// Package infra holds OS-facing adapters: key material, process inspection,
// desktop notifications.
package infra

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
	"golang.org/x/crypto/scrypt"

	"github.com/mindwell/companion/internal/domain"
)

const (
	keyringService = "mindwell-companion"
	keyringUser    = "settings-db"
	keyFileName    = ".settings.key"
	secretBytes    = 32
)

// scrypt cost parameters; interactive-login grade is plenty for a local
// database key.
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// keySalt is a fixed application salt. The secret itself is random, so the
// salt only needs to domain-separate this use of scrypt.
var keySalt = []byte("mindwell-companion/settings-db/v1")

// KeyringProvider stores a random secret in the OS keyring and stretches it
// with scrypt into the database key. When no keyring is available (headless
// session, stripped-down desktop) it falls back to a key file in the data
// directory, so the settings database still works — just with weaker
// at-rest protection.
type KeyringProvider struct {
	dataDir string
	logger  *zap.Logger
}

// NewKeyringProvider creates a provider rooted at dataDir.
func NewKeyringProvider(dataDir string, logger *zap.Logger) *KeyringProvider {
	return &KeyringProvider{dataDir: dataDir, logger: logger}
}

// GetKey returns the 32-byte settings-database key, generating and storing
// the underlying secret on first use.
func (p *KeyringProvider) GetKey() ([]byte, error) {
	secret, err := p.loadOrCreateSecret()
	if err != nil {
		return nil, err
	}
	key, err := scrypt.Key(secret, keySalt, scryptN, scryptR, scryptP, secretBytes)
	if err != nil {
		return nil, fmt.Errorf("derive settings key: %w", err)
	}
	return key, nil
}

func (p *KeyringProvider) loadOrCreateSecret() ([]byte, error) {
	if hexSecret, err := keyring.Get(keyringService, keyringUser); err == nil {
		secret, decErr := hex.DecodeString(hexSecret)
		if decErr == nil && len(secret) == secretBytes {
			return secret, nil
		}
		p.logger.Warn("keyring secret malformed, regenerating")
	} else if err != keyring.ErrNotFound {
		p.logger.Warn("keyring unavailable, using key file fallback", zap.Error(err))
		return p.fileSecret()
	}

	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate settings secret: %w", err)
	}
	if err := keyring.Set(keyringService, keyringUser, hex.EncodeToString(secret)); err != nil {
		p.logger.Warn("keyring write failed, using key file fallback", zap.Error(err))
		return p.fileSecret()
	}
	return secret, nil
}

// fileSecret is the no-keyring fallback: a random secret in a 0600 file.
func (p *KeyringProvider) fileSecret() ([]byte, error) {
	path := filepath.Join(p.dataDir, keyFileName)

	if raw, err := os.ReadFile(path); err == nil {
		secret, decErr := hex.DecodeString(string(raw))
		if decErr == nil && len(secret) == secretBytes {
			return secret, nil
		}
		p.logger.Warn("key file malformed, regenerating", zap.String("path", path))
	}

	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate settings secret: %w", err)
	}
	if err := os.MkdirAll(p.dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(secret)), 0o600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	return secret, nil
}

var _ domain.KeyProvider = (*KeyringProvider)(nil)
