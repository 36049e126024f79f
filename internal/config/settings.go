package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"

	ioutils "github.com/handiism/gphotos-backup/internal/io"
)

// Settings holds all configuration options.
type Settings struct {
	// Directories
	BackupDir      string `json:"backup_dir"`
	StagingDir     string `json:"staging_dir"`
	CredentialsDir string `json:"credentials_dir"`

	// Download settings
	Workers         int     `json:"workers"`
	MaxAttempts     int     `json:"max_attempts"`
	RetryBaseDelay  float64 `json:"retry_base_delay"` // seconds
	RequestTimeout  float64 `json:"request_timeout"`  // seconds
	OriginalQuality bool    `json:"original_quality"`
	LocatorMaxAge   float64 `json:"locator_max_age"` // seconds, 0 disables refresh

	// Catalog settings
	PageSize int `json:"page_size"`

	// OAuth settings
	RedirectPort int `json:"redirect_port"`

	// Logging
	Log Logger `json:"log"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	home := ioutils.HomeDir()
	base := filepath.Join(home, "gphotos-backup")
	return &Settings{
		BackupDir:      filepath.Join(base, "backup"),
		StagingDir:     filepath.Join(base, "staging"),
		CredentialsDir: filepath.Join(base, "credentials"),

		Workers:         4,
		MaxAttempts:     3,
		RetryBaseDelay:  1,
		RequestTimeout:  60,
		OriginalQuality: true,
		LocatorMaxAge:   55 * 60,

		PageSize: 100,

		RedirectPort: 8080,

		Log: Logger{Level: "info"},
	}
}

// DefaultPath returns the default location of the settings file.
func DefaultPath() string {
	return filepath.Join(ioutils.HomeDir(), "gphotos-backup", "settings.json")
}

// Load reads settings from a JSON file. A missing file yields the defaults.
// Paths in the file may start with "~".
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, goerr.Wrap(err, "failed to read settings", goerr.V("path", path))
	}

	if err := json.Unmarshal(data, settings); err != nil {
		return nil, goerr.Wrap(err, "failed to parse settings", goerr.V("path", path))
	}

	if err := settings.Expand(); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return goerr.Wrap(err, "failed to create settings directory", goerr.V("dir", dir))
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to encode settings")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return goerr.Wrap(err, "failed to write settings", goerr.V("path", path))
	}
	return nil
}

// Expand resolves "~" in all directory settings.
func (s *Settings) Expand() error {
	for _, p := range []*string{&s.BackupDir, &s.StagingDir, &s.CredentialsDir, &s.Log.File} {
		if *p == "" {
			continue
		}
		expanded, err := ioutils.ExpandPath(*p)
		if err != nil {
			return goerr.Wrap(err, "failed to expand path", goerr.V("path", *p))
		}
		*p = expanded
	}
	return nil
}

// Validate checks that the settings are usable.
func (s *Settings) Validate() error {
	switch {
	case s.BackupDir == "":
		return goerr.New("backup_dir must be set")
	case s.StagingDir == "":
		return goerr.New("staging_dir must be set")
	case s.CredentialsDir == "":
		return goerr.New("credentials_dir must be set")
	case s.Workers < 1:
		return goerr.New("workers must be at least 1", goerr.V("workers", s.Workers))
	case s.MaxAttempts < 1:
		return goerr.New("max_attempts must be at least 1", goerr.V("max_attempts", s.MaxAttempts))
	case s.RetryBaseDelay < 0:
		return goerr.New("retry_base_delay must not be negative", goerr.V("retry_base_delay", s.RetryBaseDelay))
	case s.RequestTimeout < 0:
		return goerr.New("request_timeout must not be negative", goerr.V("request_timeout", s.RequestTimeout))
	case s.LocatorMaxAge < 0:
		return goerr.New("locator_max_age must not be negative", goerr.V("locator_max_age", s.LocatorMaxAge))
	case s.PageSize < 1 || s.PageSize > 100:
		return goerr.New("page_size must be between 1 and 100", goerr.V("page_size", s.PageSize))
	case s.RedirectPort < 1 || s.RedirectPort > 65535:
		return goerr.New("redirect_port is out of range", goerr.V("redirect_port", s.RedirectPort))
	}
	if _, err := s.Log.level(); err != nil {
		return err
	}
	return nil
}

// RetryBaseDelayDuration returns the backoff unit.
func (s *Settings) RetryBaseDelayDuration() time.Duration {
	return seconds(s.RetryBaseDelay)
}

// RequestTimeoutDuration returns the per-request timeout.
func (s *Settings) RequestTimeoutDuration() time.Duration {
	return seconds(s.RequestTimeout)
}

// LocatorMaxAgeDuration returns the age after which locators are refreshed.
func (s *Settings) LocatorMaxAgeDuration() time.Duration {
	return seconds(s.LocatorMaxAge)
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
