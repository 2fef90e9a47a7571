package store

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mindwell/companion/internal/domain"
)

// FileStore keeps one JSON settings document per user under the data
// directory. Writes are atomic (temp file + rename); reads fall back to
// legacy-key migration and then to defaults.
type FileStore struct {
	dataDir string
	logger  *zap.Logger
}

// NewFileStore creates the store, ensuring the data directory exists.
func NewFileStore(dataDir string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileStore{dataDir: dataDir, logger: logger}, nil
}

// Path returns the settings file path for a user (exported for the watcher
// and for tests).
func (f *FileStore) Path(userID string) string {
	return filepath.Join(f.dataDir, "settings-"+sanitizeUserID(userID)+".json")
}

// sanitizeUserID keeps user-derived file names boring.
func sanitizeUserID(userID string) string {
	out := make([]rune, 0, len(userID))
	for _, r := range userID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "guest"
	}
	return string(out)
}

// Load returns the user's settings record. A missing file triggers legacy
// migration; anything unparseable or schema-invalid is logged and replaced
// by defaults. Load never returns a nil record alongside a nil error.
func (f *FileStore) Load(userID string) (*domain.SettingsRecord, error) {
	raw, err := os.ReadFile(f.Path(userID))
	if os.IsNotExist(err) {
		if rec := f.migrateLegacy(userID); rec != nil {
			f.logger.Info("migrated legacy per-key settings", zap.String("user", userID))
			if err := f.Save(userID, rec); err != nil {
				f.logger.Warn("could not persist migrated settings", zap.Error(err))
			}
			return rec, nil
		}
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		f.logger.Warn("settings read failed, using defaults",
			zap.String("user", userID), zap.Error(err))
		return domain.DefaultSettings(), nil
	}

	rec, err := decodeRecord(raw)
	if err != nil {
		f.logger.Warn("settings invalid, using defaults",
			zap.String("user", userID), zap.Error(err))
		return domain.DefaultSettings(), nil
	}
	return rec, nil
}

// Save atomically writes the user's full record. Last write wins.
func (f *FileStore) Save(userID string, rec *domain.SettingsRecord) error {
	raw, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dst := f.Path(userID)
	tmp, err := os.CreateTemp(f.dataDir, ".settings-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return fmt.Errorf("chmod settings: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("rename settings: %w", err)
	}
	return nil
}

var _ domain.SettingsStore = (*FileStore)(nil)
