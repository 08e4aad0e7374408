package chronolog_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperengineering/chronolog"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       chronolog.Config
		wantField string
	}{
		{"local only", chronolog.Config{LocalPath: "/tmp/chronolog"}, ""},
		{"with server", chronolog.Config{LocalPath: "/tmp/chronolog", ServerURL: "https://sync.example.com", Token: "t"}, ""},
		{"missing local path", chronolog.Config{}, "LocalPath"},
		{"bad profile", chronolog.Config{LocalPath: "/tmp/chronolog", Profile: "a--b"}, "Profile"},
		{"bad backend", chronolog.Config{LocalPath: "/tmp/chronolog", Backend: "indexeddb"}, "Backend"},
		{"bad scheme", chronolog.Config{LocalPath: "/tmp/chronolog", ServerURL: "ftp://host", Token: "t"}, "ServerURL"},
		{"server without token", chronolog.Config{LocalPath: "/tmp/chronolog", ServerURL: "http://localhost:8080"}, "Token"},
		{"negative interval", chronolog.Config{LocalPath: "/tmp/chronolog", SyncInterval: -time.Second}, "SyncInterval"},
		{"negative debounce", chronolog.Config{LocalPath: "/tmp/chronolog", DebounceDelay: -time.Second}, "DebounceDelay"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			var ve *chronolog.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("ValidationError.Field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := chronolog.DefaultConfig()
	if cfg.SyncInterval != 30*time.Second {
		t.Errorf("SyncInterval = %v, want 30s", cfg.SyncInterval)
	}
	if cfg.DebounceDelay != 2*time.Second {
		t.Errorf("DebounceDelay = %v, want 2s", cfg.DebounceDelay)
	}
	if !cfg.AutoSync {
		t.Error("AutoSync = false, want true")
	}
	if cfg.Backend != "auto" {
		t.Errorf("Backend = %q, want auto", cfg.Backend)
	}
	if !strings.HasSuffix(cfg.LocalPath, filepath.Join(".chronolog", "profiles", "default")) {
		t.Errorf("LocalPath = %q", cfg.LocalPath)
	}
	if !cfg.IsOffline() {
		t.Error("IsOffline() = false for default config")
	}
}

func TestConfigFromEnv_ReadsVars(t *testing.T) {
	t.Setenv("CHRONOLOG_PROFILE", "work")
	t.Setenv("CHRONOLOG_DB_DIR", "/tmp/env-db")
	t.Setenv("CHRONOLOG_BACKEND", "document")
	t.Setenv("CHRONOLOG_SERVER_URL", "http://sync:8080")
	t.Setenv("CHRONOLOG_TOKEN", "env-token")
	t.Setenv("CHRONOLOG_SYNC_INTERVAL", "1m")
	t.Setenv("CHRONOLOG_AUTO_SYNC", "false")
	t.Setenv("CHRONOLOG_DEBUG", "1")
	t.Setenv("CHRONOLOG_DEBUG_LOG", "/tmp/chronolog.log")

	cfg := chronolog.ConfigFromEnv()

	want := chronolog.Config{
		Profile:      "work",
		LocalPath:    "/tmp/env-db",
		Backend:      "document",
		ServerURL:    "http://sync:8080",
		Token:        "env-token",
		SyncInterval: time.Minute,
		AutoSync:     false,
		Debug:        true,
		DebugLogPath: "/tmp/chronolog.log",
	}
	if cfg.Profile != want.Profile || cfg.LocalPath != want.LocalPath || cfg.Backend != want.Backend ||
		cfg.ServerURL != want.ServerURL || cfg.Token != want.Token || cfg.SyncInterval != want.SyncInterval ||
		cfg.AutoSync != want.AutoSync || cfg.Debug != want.Debug || cfg.DebugLogPath != want.DebugLogPath {
		t.Errorf("ConfigFromEnv() = %+v, want %+v", cfg, want)
	}
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("CHRONOLOG_AUTO_SYNC", "")
	t.Setenv("CHRONOLOG_SYNC_INTERVAL", "soon")
	t.Setenv("CHRONOLOG_DEBUG", "")

	cfg := chronolog.ConfigFromEnv()
	if !cfg.AutoSync {
		t.Error("AutoSync = false, want true when unset")
	}
	if cfg.SyncInterval != 0 {
		t.Errorf("SyncInterval = %v, want 0 for unparseable value", cfg.SyncInterval)
	}
	if cfg.Debug {
		t.Error("Debug = true, want false when unset")
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CHRONOLOG_PROFILE", "client/acme")

	cfg := chronolog.Config{}.WithDefaults()

	if cfg.Profile != "client/acme" {
		t.Errorf("Profile = %q, want client/acme", cfg.Profile)
	}
	if want := filepath.Join(home, ".chronolog", "profiles", "client__acme"); cfg.LocalPath != want {
		t.Errorf("LocalPath = %q, want %q", cfg.LocalPath, want)
	}
	if cfg.SyncInterval != 30*time.Second || cfg.DebounceDelay != 2*time.Second {
		t.Errorf("durations = %v/%v", cfg.SyncInterval, cfg.DebounceDelay)
	}
	if cfg.Clock == nil {
		t.Error("Clock = nil after WithDefaults")
	}
}

func TestConfig_WithDefaults_KeepsExplicit(t *testing.T) {
	cfg := chronolog.Config{
		Profile:      "explicit",
		LocalPath:    "/data/chronolog",
		SyncInterval: 5 * time.Second,
	}.WithDefaults()
	if cfg.Profile != "explicit" || cfg.LocalPath != "/data/chronolog" || cfg.SyncInterval != 5*time.Second {
		t.Errorf("WithDefaults() overwrote explicit fields: %+v", cfg)
	}
}
