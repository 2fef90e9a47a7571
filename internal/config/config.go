// Package config loads the daemon configuration from a TOML file, falling
// back to sensible defaults when the file or individual keys are absent.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the daemon-level configuration. Per-user behavioral settings
// live in the settings store, not here.
type Config struct {
	// DataDir holds the per-user settings files and the encrypted database.
	DataDir string `toml:"data_dir"`

	// LogPath is the structured log destination. Empty logs to stderr.
	LogPath string `toml:"log_path"`

	// ShellSocket is the Unix socket the desktop shell dials in on. Empty
	// disables the shell bridge entirely (degraded mode).
	ShellSocket string `toml:"shell_socket"`

	// ListenAddr serves the local status API. Empty disables it.
	ListenAddr string `toml:"listen_addr"`

	// DefaultUser is the profile loaded at startup.
	DefaultUser string `toml:"default_user"`

	// EncryptSettings stores settings in the encrypted database instead of
	// plain JSON files.
	EncryptSettings bool `toml:"encrypt_settings"`

	// PollInterval is how long the window feed may stay silent before the
	// daemon polls the shell, e.g. "1s".
	PollInterval duration `toml:"poll_interval"`

	// WatchSettings reloads settings when the file changes on disk.
	WatchSettings bool `toml:"watch_settings"`
}

// duration lets TOML carry values like "1s" or "500ms".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration used when no file exists.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".mindwell")
	return Config{
		DataDir:      filepath.Join(base, "data"),
		LogPath:      filepath.Join(base, "mindwelld.log"),
		ShellSocket:  filepath.Join(base, "shell.sock"),
		ListenAddr:   "127.0.0.1:7569",
		DefaultUser:  "default",
		PollInterval: duration{time.Second},
	}
}

// Load reads path on top of the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	meta, err := toml.DecodeFile(path, &cfg)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
	}
	if cfg.PollInterval.Duration <= 0 {
		cfg.PollInterval = duration{time.Second}
	}
	return cfg, nil
}

// PollEvery is the effective poll interval.
func (c Config) PollEvery() time.Duration { return c.PollInterval.Duration }
