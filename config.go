package chronolog

import (
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/hyperengineering/chronolog/internal/profile"
	"github.com/hyperengineering/chronolog/internal/storage"
)

// Config configures the Chronolog client.
type Config struct {
	// Profile names the local database set to use.
	// If empty, resolved using profile resolution (explicit > CHRONOLOG_PROFILE env > "default").
	Profile string

	// LocalPath is the directory holding the profile's database.
	// Derived from Profile when empty.
	LocalPath string

	// Backend selects the local storage engine: "auto", "sql" or "document".
	// Auto keeps whichever engine already holds data in LocalPath.
	Backend string

	// ServerURL is the sync server. If empty, operates in offline-only mode.
	ServerURL string

	// Token is the bearer token presented to the server.
	Token string

	// SyncInterval is how often the background sync runs.
	// Defaults to 30 seconds.
	SyncInterval time.Duration

	// DebounceDelay is how long after the last local write a sync starts.
	// Defaults to 2 seconds.
	DebounceDelay time.Duration

	// AutoSync enables background syncing after Initialize.
	AutoSync bool

	// Debug enables verbose logging of sync traffic.
	Debug bool

	// DebugLogPath is the path to write debug logs, rotated by size.
	// Defaults to stderr if empty.
	DebugLogPath string

	// Clock overrides the wall clock used for timestamps, ids and timers.
	Clock func() time.Time
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Profile:       profile.Default,
		LocalPath:     profile.Dir("", profile.Default),
		Backend:       string(storage.BackendAuto),
		SyncInterval:  30 * time.Second,
		DebounceDelay: 2 * time.Second,
		AutoSync:      true,
		Clock:         time.Now,
	}
}

// ConfigFromEnv reads configuration from environment variables.
//
//	CHRONOLOG_PROFILE        → Profile
//	CHRONOLOG_DB_DIR         → LocalPath
//	CHRONOLOG_BACKEND        → Backend
//	CHRONOLOG_SERVER_URL     → ServerURL
//	CHRONOLOG_TOKEN          → Token
//	CHRONOLOG_SYNC_INTERVAL  → SyncInterval (Go duration)
//	CHRONOLOG_AUTO_SYNC      → AutoSync (strconv.ParseBool; default true)
//	CHRONOLOG_DEBUG          → Debug (any non-empty value enables)
//	CHRONOLOG_DEBUG_LOG      → DebugLogPath
func ConfigFromEnv() Config {
	cfg := Config{
		Profile:      os.Getenv(profile.EnvVar),
		LocalPath:    os.Getenv("CHRONOLOG_DB_DIR"),
		Backend:      os.Getenv("CHRONOLOG_BACKEND"),
		ServerURL:    os.Getenv("CHRONOLOG_SERVER_URL"),
		Token:        os.Getenv("CHRONOLOG_TOKEN"),
		AutoSync:     true,
		Debug:        os.Getenv("CHRONOLOG_DEBUG") != "",
		DebugLogPath: os.Getenv("CHRONOLOG_DEBUG_LOG"),
	}
	if d, err := time.ParseDuration(os.Getenv("CHRONOLOG_SYNC_INTERVAL")); err == nil {
		cfg.SyncInterval = d
	}
	if b, err := strconv.ParseBool(os.Getenv("CHRONOLOG_AUTO_SYNC")); err == nil {
		cfg.AutoSync = b
	}
	return cfg
}

// Validate checks the configuration for errors.
// Returns *ValidationError for invalid fields.
func (c *Config) Validate() error {
	if c.LocalPath == "" {
		return &ValidationError{Field: "LocalPath", Message: "required: directory for the local database"}
	}

	if c.Profile != "" {
		if err := profile.Validate(c.Profile); err != nil {
			return &ValidationError{Field: "Profile", Message: err.Error()}
		}
	}

	if _, err := storage.ParseBackend(c.Backend); err != nil {
		return &ValidationError{Field: "Backend", Message: err.Error()}
	}

	if c.ServerURL != "" {
		u, err := url.Parse(c.ServerURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ValidationError{Field: "ServerURL", Message: "must be an http or https URL"}
		}
		if c.Token == "" {
			return &ValidationError{Field: "Token", Message: "required when ServerURL is set"}
		}
	}

	if c.SyncInterval < 0 {
		return &ValidationError{Field: "SyncInterval", Message: "must be non-negative"}
	}
	if c.DebounceDelay < 0 {
		return &ValidationError{Field: "DebounceDelay", Message: "must be non-negative"}
	}

	return nil
}

// IsOffline returns true if the client operates in offline-only mode.
// Offline mode is determined by ServerURL being empty.
func (c *Config) IsOffline() bool {
	return c.ServerURL == ""
}

// WithDefaults fills in default values for unset fields.
// Profile resolution: explicit Profile field > CHRONOLOG_PROFILE env > "default".
// LocalPath is derived from the resolved profile if not explicitly set.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()

	if c.Profile == "" {
		resolved, err := profile.Resolve("")
		if err == nil {
			c.Profile = resolved
		} else {
			c.Profile = profile.Default
		}
	}
	if c.LocalPath == "" {
		c.LocalPath = profile.Dir("", c.Profile)
	}
	if c.Backend == "" {
		c.Backend = defaults.Backend
	}
	if c.SyncInterval == 0 {
		c.SyncInterval = defaults.SyncInterval
	}
	if c.DebounceDelay == 0 {
		c.DebounceDelay = defaults.DebounceDelay
	}
	if c.Clock == nil {
		c.Clock = defaults.Clock
	}
	return c
}
