// Package config provides configuration management for the sync worker.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrNoJurisdictions          = errors.New("at least one jurisdiction is required")
	ErrJurisdictionMissingID    = errors.New("jurisdiction id is required")
	ErrJurisdictionMissingURL   = errors.New("jurisdiction url is required")
	ErrJurisdictionMissingAcct  = errors.New("jurisdiction account_id is required")
	ErrDuplicateJurisdiction    = errors.New("duplicate jurisdiction id")
	ErrNoEnabledJurisdictions   = errors.New("at least one jurisdiction must be enabled")
	ErrMissingInstanceURL       = errors.New("record_store.instance_url is required")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("retry.timeout_sec must be at least 1")
	ErrInvalidMaxParallel       = errors.New("run.max_parallel must be at least 1")
	ErrInvalidPageTimeout       = errors.New("run.page_timeout_sec must be at least 1")
	ErrInvalidSafetyMargin      = errors.New("record_store.token_safety_margin_min must be shorter than token_lifetime_min")
	ErrInvalidSchedule          = errors.New("schedule.cron is not a valid cron expression")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'text' or 'json'")
)

// Config represents the complete worker configuration.
type Config struct {
	RecordStore   RecordStoreConfig    `yaml:"record_store"`
	Jurisdictions []JurisdictionConfig `yaml:"jurisdictions"`
	Run           RunConfig            `yaml:"run"`
	Server        ServerConfig         `yaml:"server"`
	Schedule      ScheduleConfig       `yaml:"schedule"`
	Logging       LoggingConfig        `yaml:"logging"`
}

// RecordStoreConfig describes the downstream CRM connection. Secrets are
// referenced by environment variable name and resolved at use time.
type RecordStoreConfig struct {
	InstanceURL          string     `yaml:"instance_url"`
	APIVersion           string     `yaml:"api_version"`
	TokenURL             string     `yaml:"token_url"`
	Auth                 AuthConfig `yaml:"auth"`
	TokenLifetimeMin     int        `yaml:"token_lifetime_min"`
	TokenSafetyMarginMin int        `yaml:"token_safety_margin_min"`
	RequestTimeoutSec    int        `yaml:"request_timeout_sec"`
}

// GetTokenLifetime returns the assumed bearer token lifetime.
func (r *RecordStoreConfig) GetTokenLifetime() time.Duration {
	return time.Duration(r.TokenLifetimeMin) * time.Minute
}

// GetTokenSafetyMargin returns how long before expiry a refresh happens.
func (r *RecordStoreConfig) GetTokenSafetyMargin() time.Duration {
	return time.Duration(r.TokenSafetyMarginMin) * time.Minute
}

// GetRequestTimeout returns the per-request timeout for store calls.
func (r *RecordStoreConfig) GetRequestTimeout() time.Duration {
	return time.Duration(r.RequestTimeoutSec) * time.Second
}

// AuthConfig names the environment variables holding store credentials.
type AuthConfig struct {
	ConsumerKeyEnv    string `yaml:"consumer_key_env"`
	ConsumerSecretEnv string `yaml:"consumer_secret_env"`
	RefreshTokenEnv   string `yaml:"refresh_token_env"`
	LegacyKeyEnv      string `yaml:"legacy_key_env"`
}

// ResolvedAuth holds credential values read from the environment.
type ResolvedAuth struct {
	ConsumerKey    string
	ConsumerSecret string
	RefreshToken   string
	LegacyKey      string
}

// Resolve reads the referenced environment variables.
func (a *AuthConfig) Resolve() ResolvedAuth {
	return ResolvedAuth{
		ConsumerKey:    getenv(a.ConsumerKeyEnv),
		ConsumerSecret: getenv(a.ConsumerSecretEnv),
		RefreshToken:   getenv(a.RefreshTokenEnv),
		LegacyKey:      getenv(a.LegacyKeyEnv),
	}
}

// HasOAuth reports whether a full refresh-token credential set is present.
func (r ResolvedAuth) HasOAuth() bool {
	return r.ConsumerKey != "" && r.ConsumerSecret != "" && r.RefreshToken != ""
}

// HasLegacyKey reports whether the static-key fallback is present.
func (r ResolvedAuth) HasLegacyKey() bool {
	return r.LegacyKey != ""
}

// JurisdictionConfig describes one portal. Immutable after load.
type JurisdictionConfig struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	URL         string         `yaml:"url"`
	BackupURLs  []string       `yaml:"backup_urls"`
	AccountID   string         `yaml:"account_id"`
	Credentials CredentialRefs `yaml:"credentials"`
	Enabled     bool           `yaml:"enabled"`
}

// CredentialRefs names the environment variables holding portal credentials.
// Both are empty for guest-accessible portals.
type CredentialRefs struct {
	UsernameEnv string `yaml:"username_env"`
	PasswordEnv string `yaml:"password_env"`
}

// RequiresLogin reports whether this portal needs authentication.
func (j *JurisdictionConfig) RequiresLogin() bool {
	return j.Credentials.UsernameEnv != "" || j.Credentials.PasswordEnv != ""
}

// GetAllURLs returns all entry URLs (primary + backups) for the portal.
func (j *JurisdictionConfig) GetAllURLs() []string {
	urls := []string{j.URL}
	urls = append(urls, j.BackupURLs...)

	return urls
}

// Resolve reads the referenced environment variables. The third return is
// false when a referenced variable is unset or empty.
func (c *CredentialRefs) Resolve() (username, password string, ok bool) {
	username = getenv(c.UsernameEnv)
	password = getenv(c.PasswordEnv)
	ok = (c.UsernameEnv == "" || username != "") && (c.PasswordEnv == "" || password != "")

	return username, password, ok
}

// RunConfig controls run behavior shared by all jurisdictions.
type RunConfig struct {
	MaxParallel    int         `yaml:"max_parallel"`
	PageTimeoutSec int         `yaml:"page_timeout_sec"`
	Retry          RetryPolicy `yaml:"retry"`
}

// GetPageTimeout returns the bounded wait for listing containers.
func (r *RunConfig) GetPageTimeout() time.Duration {
	return time.Duration(r.PageTimeoutSec) * time.Second
}

// RetryPolicy defines retry behavior for portal fetches.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// ServerConfig controls the trigger HTTP API.
type ServerConfig struct {
	Addr               string `yaml:"addr"`
	APIKeyEnv          string `yaml:"api_key_env"`
	MetricsAddr        string `yaml:"metrics_addr"`
	ShutdownTimeoutSec int    `yaml:"shutdown_timeout_sec"`
}

// APIKey resolves the configured API key, or "" when auth is disabled.
func (s *ServerConfig) APIKey() string {
	return getenv(s.APIKeyEnv)
}

// GetShutdownTimeout returns the graceful shutdown window.
func (s *ServerConfig) GetShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSec) * time.Second
}

// ScheduleConfig controls the optional in-process cron.
type ScheduleConfig struct {
	Cron string `yaml:"cron"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	File           string `yaml:"file"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
}

// LoadConfig loads configuration from a YAML file, applies defaults, and
// validates the result.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RecordStore.APIVersion == "" {
		c.RecordStore.APIVersion = "v65.0"
	}
	if c.RecordStore.TokenURL == "" {
		c.RecordStore.TokenURL = "https://login.salesforce.com/services/oauth2/token"
	}
	if c.RecordStore.TokenLifetimeMin == 0 {
		c.RecordStore.TokenLifetimeMin = 120
	}
	if c.RecordStore.TokenSafetyMarginMin == 0 {
		c.RecordStore.TokenSafetyMarginMin = 30
	}
	if c.RecordStore.RequestTimeoutSec == 0 {
		c.RecordStore.RequestTimeoutSec = 30
	}

	if c.Run.MaxParallel == 0 {
		c.Run.MaxParallel = 1
	}
	if c.Run.PageTimeoutSec == 0 {
		c.Run.PageTimeoutSec = 15
	}
	if c.Run.Retry.MaxAttempts == 0 {
		c.Run.Retry.MaxAttempts = 3
	}
	if c.Run.Retry.InitialDelayMs == 0 {
		c.Run.Retry.InitialDelayMs = 1000
	}
	if c.Run.Retry.MaxDelayMs == 0 {
		c.Run.Retry.MaxDelayMs = 15000
	}
	if c.Run.Retry.BackoffMultiplier == 0 {
		c.Run.Retry.BackoffMultiplier = 2.0
	}
	if c.Run.Retry.TimeoutSec == 0 {
		c.Run.Retry.TimeoutSec = 30
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeoutSec == 0 {
		c.Server.ShutdownTimeoutSec = 10
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.RecordStore.InstanceURL == "" {
		return ErrMissingInstanceURL
	}

	if c.RecordStore.TokenSafetyMarginMin >= c.RecordStore.TokenLifetimeMin {
		return ErrInvalidSafetyMargin
	}

	if len(c.Jurisdictions) == 0 {
		return ErrNoJurisdictions
	}

	enabledCount := 0
	seen := make(map[string]bool, len(c.Jurisdictions))

	for i, j := range c.Jurisdictions {
		if j.ID == "" {
			return fmt.Errorf("%w: jurisdiction[%d]", ErrJurisdictionMissingID, i)
		}

		if seen[j.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateJurisdiction, j.ID)
		}
		seen[j.ID] = true

		if j.URL == "" {
			return fmt.Errorf("%w: jurisdiction[%d]", ErrJurisdictionMissingURL, i)
		}

		if j.AccountID == "" {
			return fmt.Errorf("%w: jurisdiction[%d]", ErrJurisdictionMissingAcct, i)
		}

		if j.Enabled {
			enabledCount++
		}
	}

	if enabledCount == 0 {
		return ErrNoEnabledJurisdictions
	}

	// Validate retry policy
	if c.Run.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Run.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Run.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if c.Run.Retry.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Run.MaxParallel < 1 {
		return ErrInvalidMaxParallel
	}

	if c.Run.PageTimeoutSec < 1 {
		return ErrInvalidPageTimeout
	}

	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// GetEnabledJurisdictions returns only enabled jurisdictions.
func (c *Config) GetEnabledJurisdictions() []JurisdictionConfig {
	var enabled []JurisdictionConfig

	for _, j := range c.Jurisdictions {
		if j.Enabled {
			enabled = append(enabled, j)
		}
	}

	return enabled
}

// GetJurisdiction looks up a jurisdiction by id.
func (c *Config) GetJurisdiction(id string) (JurisdictionConfig, bool) {
	for _, j := range c.Jurisdictions {
		if j.ID == id {
			return j, true
		}
	}

	return JurisdictionConfig{}, false
}

// EnabledIDs returns the ids of enabled jurisdictions in config order.
func (c *Config) EnabledIDs() []string {
	var ids []string

	for _, j := range c.Jurisdictions {
		if j.Enabled {
			ids = append(ids, j.ID)
		}
	}

	return ids
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the per-request timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Jurisdictions: %d, MaxParallel: %d, Store: %s}",
		len(c.Jurisdictions),
		c.Run.MaxParallel,
		c.RecordStore.InstanceURL,
	)
}

func getenv(name string) string {
	if name == "" {
		return ""
	}

	return os.Getenv(name)
}
