package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the follow scout
type Config struct {
	// Targets are the accounts whose follow lists are watched
	Targets []string `yaml:"targets" json:"targets"`

	// Identities are the scanning identities used to make requests
	Identities []IdentityConfig `yaml:"identities" json:"identities"`

	// Scan settings
	Scan ScanConfig `yaml:"scan" json:"scan"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Diff guard settings
	Diff DiffConfig `yaml:"diff" json:"diff"`

	// State persistence settings
	State StateConfig `yaml:"state" json:"state"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// IdentityConfig describes one scanning identity: a session secret plus an
// optional proxy the identity's requests egress through.
//
// SessionSecret may be a literal value or a reference of the form
// "keyring:<account>", resolved against the system keychain at startup.
type IdentityConfig struct {
	ID            string `yaml:"id" json:"id"`
	SessionSecret string `yaml:"session_secret" json:"session_secret"`
	Proxy         string `yaml:"proxy,omitempty" json:"proxy,omitempty"`
}

// ScanConfig holds per-target scan configuration
type ScanConfig struct {
	MaxRetries     int           `yaml:"max_retries" json:"max_retries"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	MaxFollowSize  int           `yaml:"max_follow_size" json:"max_follow_size"`
	Concurrency    int           `yaml:"concurrency" json:"concurrency"`
	PassTimeout    time.Duration `yaml:"pass_timeout" json:"pass_timeout"`
}

// RateLimitConfig holds request pacing configuration
type RateLimitConfig struct {
	// PerIdentityInterval is the minimum spacing between two requests
	// made with the same identity.
	PerIdentityInterval time.Duration `yaml:"per_identity_interval" json:"per_identity_interval"`
	// GlobalIntervalMin/Max bound the randomized delay between targets.
	GlobalIntervalMin time.Duration `yaml:"global_interval_min" json:"global_interval_min"`
	GlobalIntervalMax time.Duration `yaml:"global_interval_max" json:"global_interval_max"`
	// BackoffBase and BackoffMax bound the exponential cooldown applied
	// after a rate-limited failure.
	BackoffBase       time.Duration `yaml:"backoff_base" json:"backoff_base"`
	BackoffMax        time.Duration `yaml:"backoff_max" json:"backoff_max"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" json:"backoff_multiplier"`
}

// DiffConfig holds thresholds for the suspicious-result guard
type DiffConfig struct {
	// MinFollowCount is the smallest follow-set considered trustworthy.
	MinFollowCount int `yaml:"min_follow_count" json:"min_follow_count"`
	// MaxRemovalRatio is the fraction of the previous snapshot that may
	// disappear in one scan before the result is treated as a glitch.
	MaxRemovalRatio float64 `yaml:"max_removal_ratio" json:"max_removal_ratio"`
}

// StateConfig holds state store configuration
type StateConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled      bool `yaml:"enabled" json:"enabled"`
	OnError      bool `yaml:"on_error" json:"on_error"`
	OnSuspicious bool `yaml:"on_suspicious" json:"on_suspicious"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			MaxRetries:     3,
			RequestTimeout: 30 * time.Second,
			MaxFollowSize:  5000,
			Concurrency:    1,
			PassTimeout:    30 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			PerIdentityInterval: 5 * time.Second,
			GlobalIntervalMin:   10 * time.Second,
			GlobalIntervalMax:   20 * time.Second,
			BackoffBase:         30 * time.Second,
			BackoffMax:          5 * time.Minute,
			BackoffMultiplier:   2.0,
		},
		Diff: DiffConfig{
			MinFollowCount:  10,
			MaxRemovalRatio: 0.5,
		},
		State: StateConfig{
			Directory: "./state",
		},
		Notifications: NotificationConfig{
			Enabled:      true,
			OnError:      true,
			OnSuspicious: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if targets := os.Getenv("FOLLOWSCOUT_TARGETS"); targets != "" {
		c.Targets = splitList(targets)
	}

	if dir := os.Getenv("FOLLOWSCOUT_STATE_DIR"); dir != "" {
		c.State.Directory = dir
	}

	if level := os.Getenv("FOLLOWSCOUT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	if retries := os.Getenv("FOLLOWSCOUT_MAX_RETRIES"); retries != "" {
		val, err := strconv.Atoi(retries)
		if err != nil || val <= 0 {
			return fmt.Errorf("invalid FOLLOWSCOUT_MAX_RETRIES value %q", retries)
		}
		c.Scan.MaxRetries = val
	}

	if conc := os.Getenv("FOLLOWSCOUT_CONCURRENCY"); conc != "" {
		val, err := strconv.Atoi(conc)
		if err != nil || val <= 0 {
			return fmt.Errorf("invalid FOLLOWSCOUT_CONCURRENCY value %q", conc)
		}
		c.Scan.Concurrency = val
	}

	if enabled := os.Getenv("FOLLOWSCOUT_NOTIFICATIONS_ENABLED"); enabled != "" {
		c.Notifications.Enabled = strings.ToLower(enabled) == "true"
	}

	// A single identity can be supplied entirely through the environment,
	// which is how containerized deployments typically run.
	if secret := os.Getenv("FOLLOWSCOUT_SESSION_SECRET"); secret != "" {
		id := os.Getenv("FOLLOWSCOUT_IDENTITY_ID")
		if id == "" {
			id = "env"
		}
		c.Identities = append(c.Identities, IdentityConfig{
			ID:            id,
			SessionSecret: secret,
			Proxy:         os.Getenv("FOLLOWSCOUT_PROXY"),
		})
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".followscout.yaml",
		".followscout.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "followscout", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "followscout", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".followscout.yaml"),
		filepath.Join(os.Getenv("HOME"), ".followscout.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if len(c.Targets) == 0 {
		errs = append(errs, errors.New("at least one target is required"))
	}
	if len(c.Identities) == 0 {
		errs = append(errs, errors.New("at least one identity is required"))
	}

	seen := make(map[string]bool)
	for i, ident := range c.Identities {
		if ident.ID == "" {
			errs = append(errs, fmt.Errorf("identity %d: id is required", i))
			continue
		}
		if seen[ident.ID] {
			errs = append(errs, fmt.Errorf("identity %q: duplicate id", ident.ID))
		}
		seen[ident.ID] = true
		if ident.SessionSecret == "" {
			errs = append(errs, fmt.Errorf("identity %q: session secret is required", ident.ID))
		}
	}

	if c.Scan.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Scan.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.Scan.Concurrency <= 0 {
		errs = append(errs, errors.New("concurrency must be positive"))
	}
	if c.Scan.Concurrency > 10 {
		errs = append(errs, errors.New("concurrency should not exceed 10"))
	}

	if c.RateLimit.PerIdentityInterval <= 0 {
		errs = append(errs, errors.New("per-identity interval must be positive"))
	}
	if c.RateLimit.GlobalIntervalMax < c.RateLimit.GlobalIntervalMin {
		errs = append(errs, errors.New("global interval max must not be below min"))
	}
	if c.RateLimit.BackoffBase <= 0 {
		errs = append(errs, errors.New("backoff base must be positive"))
	}
	if c.RateLimit.BackoffMultiplier < 1.0 {
		errs = append(errs, errors.New("backoff multiplier must be at least 1.0"))
	}

	if c.Diff.MinFollowCount < 0 {
		errs = append(errs, errors.New("min follow count cannot be negative"))
	}
	if c.Diff.MaxRemovalRatio <= 0 || c.Diff.MaxRemovalRatio > 1.0 {
		errs = append(errs, errors.New("max removal ratio must be in (0, 1]"))
	}

	if c.State.Directory == "" {
		errs = append(errs, errors.New("state directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Identities carry session secrets, so the file is private.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if targets, ok := flags["targets"].([]string); ok && len(targets) > 0 {
		c.Targets = targets
	}
	if stateDir, ok := flags["state-dir"].(string); ok && stateDir != "" {
		c.State.Directory = stateDir
	}
	if concurrency, ok := flags["concurrency"].(int); ok && concurrency > 0 {
		c.Scan.Concurrency = concurrency
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".followscout.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
