package store

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"
	"go.uber.org/zap"

	"github.com/mindwell/companion/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ sqlcipher.SQLiteDriver

const settingsDBName = "settings.db"

// EncryptedStore implements domain.SettingsStore on a SQLCipher encrypted
// SQLite database, for installs where the settings (allow-list, usage
// habits) should not sit on disk in the clear.
type EncryptedStore struct {
	db     *sql.DB
	dbPath string
	logger *zap.Logger
}

// NewEncryptedStore opens (or creates) the encrypted settings database.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedStore(dataDir string, key []byte, logger *zap.Logger) (*EncryptedStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, settingsDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open encrypted settings database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to encrypted settings database: %w", err)
	}

	s := &EncryptedStore{db: db, dbPath: dbPath, logger: logger}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create settings tables: %w", err)
	}
	return s, nil
}

func (s *EncryptedStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS user_settings (
		user_id    TEXT PRIMARY KEY,
		record     TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load returns the user's record, or defaults when absent or invalid.
func (s *EncryptedStore) Load(userID string) (*domain.SettingsRecord, error) {
	var raw string
	err := s.db.QueryRow(
		`SELECT record FROM user_settings WHERE user_id = ?`, userID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		s.logger.Warn("settings query failed, using defaults",
			zap.String("user", userID), zap.Error(err))
		return domain.DefaultSettings(), nil
	}

	rec, err := decodeRecord([]byte(raw))
	if err != nil {
		s.logger.Warn("stored settings invalid, using defaults",
			zap.String("user", userID), zap.Error(err))
		return domain.DefaultSettings(), nil
	}
	return rec, nil
}

// Save upserts the user's full record.
func (s *EncryptedStore) Save(userID string, rec *domain.SettingsRecord) error {
	raw, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO user_settings (user_id, record, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			record = excluded.record,
			updated_at = excluded.updated_at`,
		userID, string(raw), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *EncryptedStore) Close() error {
	return s.db.Close()
}

var _ domain.SettingsStore = (*EncryptedStore)(nil)
