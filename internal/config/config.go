// Package config defines the top-level configuration for the draggable
// shares service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SHARESD_* environment
// variables.
type Config struct {
	Owner       OwnerConfig       `toml:"owner"`
	Equity      EquityConfig      `toml:"equity"`
	Wrapper     WrapperConfig     `toml:"wrapper"`
	Currencies  []CurrencyConfig  `toml:"currency"`
	Claims      ClaimsConfig      `toml:"claims"`
	Acquisition AcquisitionConfig `toml:"acquisition"`
	Database    DatabaseConfig    `toml:"database"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Archive     ArchiveConfig     `toml:"archive"`
	Server      ServerConfig      `toml:"server"`
	Notify      NotifyConfig      `toml:"notify"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// OwnerConfig resolves the registry owner. Either a plain address, or a
// private key (raw or encrypted at rest) from which the address is derived.
type OwnerConfig struct {
	Address          string `toml:"address"`
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// EquityConfig describes the base share register.
type EquityConfig struct {
	Name        string            `toml:"name"`
	Symbol      string            `toml:"symbol"`
	Address     string            `toml:"address"`
	TotalShares string            `toml:"total_shares"` // decimal big integer
	Allocations []AllocationEntry `toml:"allocations"`
}

// AllocationEntry mints an initial balance at startup.
type AllocationEntry struct {
	Address string `toml:"address"`
	Amount  string `toml:"amount"` // decimal big integer
}

// WrapperConfig describes the draggable wrapper token.
type WrapperConfig struct {
	Name    string `toml:"name"`
	Symbol  string `toml:"symbol"`
	Address string `toml:"address"`
}

// CurrencyConfig describes one settlement currency and its collateral rate.
type CurrencyConfig struct {
	Name        string            `toml:"name"`
	Symbol      string            `toml:"symbol"`
	Address     string            `toml:"address"`
	Rate        string            `toml:"collateral_rate"` // collateral units per claimed unit
	Allocations []AllocationEntry `toml:"allocations"`
}

// ClaimsConfig holds the recovery policy windows.
type ClaimsConfig struct {
	ClaimPeriod      duration `toml:"claim_period"`
	PreclaimMinDelay duration `toml:"preclaim_min_delay"`
	PreclaimMaxDelay duration `toml:"preclaim_max_delay"`
}

// AcquisitionConfig holds the drag-along policy.
type AcquisitionConfig struct {
	MinEquityPercent          int64    `toml:"min_equity_percent"`
	MinStakePercent           int64    `toml:"min_stake_percent"`
	ReplacementPremiumPercent int64    `toml:"replacement_premium_percent"`
	VotingWindow              duration `toml:"voting_window"`
	OfferLifetime             duration `toml:"offer_lifetime"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds object storage parameters for journal archiving.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls journal export to cold storage.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled         bool     `toml:"enabled"`
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	APIKey          string   `toml:"api_key"`
	RateLimit       int      `toml:"rate_limit"` // requests per window per client; 0 disables
	RateLimitWindow duration `toml:"rate_limit_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "24h", "2160h").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "24h" or "30m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration, matching the observed
// production policy values.
func Defaults() Config {
	return Config{
		Equity: EquityConfig{
			Name:   "ServiceHunter AG Shares",
			Symbol: "SHS",
		},
		Wrapper: WrapperConfig{
			Name:   "Draggable ServiceHunter AG Shares",
			Symbol: "DSHS",
		},
		Claims: ClaimsConfig{
			ClaimPeriod:      duration{180 * 24 * time.Hour},
			PreclaimMinDelay: duration{24 * time.Hour},
			PreclaimMaxDelay: duration{48 * time.Hour},
		},
		Acquisition: AcquisitionConfig{
			MinEquityPercent:          30,
			MinStakePercent:           5,
			ReplacementPremiumPercent: 105,
			VotingWindow:              duration{60 * 24 * time.Hour},
			OfferLifetime:             duration{90 * 24 * time.Hour},
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "shares",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    true,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "shares-journal",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000"},
			RateLimit:       100,
			RateLimitWindow: duration{time.Second},
		},
		Notify: NotifyConfig{
			Events: []string{"offer_completed", "offer_failed", "claim_resolved", "announcement"},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":   true,
	"archive": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, archive)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Owner — exactly one resolution path must exist.
	if c.Owner.Address == "" && c.Owner.PrivateKey == "" && c.Owner.EncryptedKeyPath == "" {
		errs = append(errs, "owner: one of address, private_key, or encrypted_key_path must be set")
	}
	if c.Owner.EncryptedKeyPath != "" && c.Owner.KeyPassword == "" {
		errs = append(errs, "owner: key_password is required when encrypted_key_path is set")
	}

	if c.Equity.Address == "" {
		errs = append(errs, "equity: address must not be empty")
	}
	if c.Wrapper.Address == "" {
		errs = append(errs, "wrapper: address must not be empty")
	}
	if len(c.Currencies) == 0 {
		errs = append(errs, "currency: at least one settlement currency must be configured")
	}
	for i, cur := range c.Currencies {
		if cur.Address == "" {
			errs = append(errs, fmt.Sprintf("currency[%d]: address must not be empty", i))
		}
	}

	if c.Claims.ClaimPeriod.Duration < 90*24*time.Hour {
		errs = append(errs, "claims: claim_period must be at least 2160h (90 days)")
	}
	if c.Claims.PreclaimMinDelay.Duration <= 0 ||
		c.Claims.PreclaimMaxDelay.Duration <= c.Claims.PreclaimMinDelay.Duration {
		errs = append(errs, "claims: preclaim window is invalid (min must be positive and below max)")
	}

	if c.Acquisition.MinEquityPercent < 1 || c.Acquisition.MinEquityPercent > 100 {
		errs = append(errs, "acquisition: min_equity_percent must be 1-100")
	}
	if c.Acquisition.MinStakePercent < 1 || c.Acquisition.MinStakePercent > 100 {
		errs = append(errs, "acquisition: min_stake_percent must be 1-100")
	}
	if c.Acquisition.ReplacementPremiumPercent <= 100 {
		errs = append(errs, "acquisition: replacement_premium_percent must exceed 100")
	}
	if c.Acquisition.VotingWindow.Duration <= 0 || c.Acquisition.OfferLifetime.Duration < c.Acquisition.VotingWindow.Duration {
		errs = append(errs, "acquisition: offer_lifetime must be at least voting_window")
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if c.Archive.Enabled {
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "archive: s3 bucket must be configured when archiving is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
