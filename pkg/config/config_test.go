package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Targets = []string{"targetuser"}
	cfg.Identities = []IdentityConfig{
		{ID: "bot1", SessionSecret: "secret-1"},
	}
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Scan.MaxRetries != 3 {
		t.Errorf("Expected default max retries to be 3, got %d", config.Scan.MaxRetries)
	}

	if config.Scan.MaxFollowSize != 5000 {
		t.Errorf("Expected default max follow size to be 5000, got %d", config.Scan.MaxFollowSize)
	}

	if config.Diff.MinFollowCount != 10 {
		t.Errorf("Expected default min follow count to be 10, got %d", config.Diff.MinFollowCount)
	}

	if config.RateLimit.BackoffBase != 30*time.Second {
		t.Errorf("Expected default backoff base to be 30s, got %s", config.RateLimit.BackoffBase)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("FOLLOWSCOUT_TARGETS", "alice, bob")
	os.Setenv("FOLLOWSCOUT_SESSION_SECRET", "env-secret")
	os.Setenv("FOLLOWSCOUT_IDENTITY_ID", "envbot")
	os.Setenv("FOLLOWSCOUT_PROXY", "http://127.0.0.1:8080")
	os.Setenv("FOLLOWSCOUT_STATE_DIR", "/tmp/followscout-state")
	os.Setenv("FOLLOWSCOUT_LOG_LEVEL", "debug")
	os.Setenv("FOLLOWSCOUT_CONCURRENCY", "2")
	os.Setenv("FOLLOWSCOUT_NOTIFICATIONS_ENABLED", "false")

	defer func() {
		os.Unsetenv("FOLLOWSCOUT_TARGETS")
		os.Unsetenv("FOLLOWSCOUT_SESSION_SECRET")
		os.Unsetenv("FOLLOWSCOUT_IDENTITY_ID")
		os.Unsetenv("FOLLOWSCOUT_PROXY")
		os.Unsetenv("FOLLOWSCOUT_STATE_DIR")
		os.Unsetenv("FOLLOWSCOUT_LOG_LEVEL")
		os.Unsetenv("FOLLOWSCOUT_CONCURRENCY")
		os.Unsetenv("FOLLOWSCOUT_NOTIFICATIONS_ENABLED")
	}()

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if len(config.Targets) != 2 || config.Targets[0] != "alice" || config.Targets[1] != "bob" {
		t.Errorf("Expected targets [alice bob], got %v", config.Targets)
	}

	if len(config.Identities) != 1 {
		t.Fatalf("Expected 1 identity from env, got %d", len(config.Identities))
	}
	if config.Identities[0].ID != "envbot" {
		t.Errorf("Expected identity id envbot, got %s", config.Identities[0].ID)
	}
	if config.Identities[0].Proxy != "http://127.0.0.1:8080" {
		t.Errorf("Unexpected proxy: %s", config.Identities[0].Proxy)
	}

	if config.State.Directory != "/tmp/followscout-state" {
		t.Errorf("Expected state dir /tmp/followscout-state, got %s", config.State.Directory)
	}

	if config.Scan.Concurrency != 2 {
		t.Errorf("Expected concurrency 2, got %d", config.Scan.Concurrency)
	}

	if config.Notifications.Enabled {
		t.Error("Expected notifications to be disabled")
	}

	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromEnvRejectsBadNumbers(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric retries", "FOLLOWSCOUT_MAX_RETRIES", "three"},
		{"zero retries", "FOLLOWSCOUT_MAX_RETRIES", "0"},
		{"non-numeric concurrency", "FOLLOWSCOUT_CONCURRENCY", "lots"},
		{"negative concurrency", "FOLLOWSCOUT_CONCURRENCY", "-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			config := DefaultConfig()
			if err := config.LoadFromEnv(); err == nil {
				t.Errorf("Expected error for %s=%q, got nil", tt.key, tt.value)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
	}{
		{
			name:      "valid config",
			mutate:    func(c *Config) {},
			wantError: false,
		},
		{
			name:      "no targets",
			mutate:    func(c *Config) { c.Targets = nil },
			wantError: true,
		},
		{
			name:      "no identities",
			mutate:    func(c *Config) { c.Identities = nil },
			wantError: true,
		},
		{
			name: "identity missing secret",
			mutate: func(c *Config) {
				c.Identities = []IdentityConfig{{ID: "bot1"}}
			},
			wantError: true,
		},
		{
			name: "duplicate identity id",
			mutate: func(c *Config) {
				c.Identities = []IdentityConfig{
					{ID: "bot1", SessionSecret: "a"},
					{ID: "bot1", SessionSecret: "b"},
				}
			},
			wantError: true,
		},
		{
			name:      "zero request timeout",
			mutate:    func(c *Config) { c.Scan.RequestTimeout = 0 },
			wantError: true,
		},
		{
			name:      "excessive concurrency",
			mutate:    func(c *Config) { c.Scan.Concurrency = 50 },
			wantError: true,
		},
		{
			name:      "inverted global interval",
			mutate:    func(c *Config) { c.RateLimit.GlobalIntervalMax = c.RateLimit.GlobalIntervalMin - time.Second },
			wantError: true,
		},
		{
			name:      "backoff multiplier below one",
			mutate:    func(c *Config) { c.RateLimit.BackoffMultiplier = 0.5 },
			wantError: true,
		},
		{
			name:      "removal ratio above one",
			mutate:    func(c *Config) { c.Diff.MaxRemovalRatio = 1.5 },
			wantError: true,
		},
		{
			name:      "empty state directory",
			mutate:    func(c *Config) { c.State.Directory = "" },
			wantError: true,
		},
		{
			name:      "bad log level",
			mutate:    func(c *Config) { c.Logging.Level = "loud" },
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantError && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestSaveAndLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := validConfig()
	cfg.Targets = []string{"carol"}
	cfg.Identities = []IdentityConfig{
		{ID: "bot2", SessionSecret: "s", Proxy: "socks5://10.0.0.1:1080"},
	}
	cfg.Scan.MaxRetries = 5

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded := DefaultConfig()
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if len(loaded.Targets) != 1 || loaded.Targets[0] != "carol" {
		t.Errorf("Expected targets [carol], got %v", loaded.Targets)
	}
	if loaded.Scan.MaxRetries != 5 {
		t.Errorf("Expected max retries 5, got %d", loaded.Scan.MaxRetries)
	}
	if loaded.Identities[0].Proxy != "socks5://10.0.0.1:1080" {
		t.Errorf("Unexpected proxy: %s", loaded.Identities[0].Proxy)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing explicit config path")
	}
}
