package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SHARESD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SHARESD_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Owner ──
	setStr(&cfg.Owner.Address, "SHARESD_OWNER_ADDRESS")
	setStr(&cfg.Owner.PrivateKey, "SHARESD_OWNER_PRIVATE_KEY")
	setStr(&cfg.Owner.EncryptedKeyPath, "SHARESD_OWNER_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Owner.KeyPassword, "SHARESD_OWNER_KEY_PASSWORD")

	// ── Claims / acquisition policy ──
	setDuration(&cfg.Claims.ClaimPeriod, "SHARESD_CLAIMS_CLAIM_PERIOD")
	setDuration(&cfg.Claims.PreclaimMinDelay, "SHARESD_CLAIMS_PRECLAIM_MIN_DELAY")
	setDuration(&cfg.Claims.PreclaimMaxDelay, "SHARESD_CLAIMS_PRECLAIM_MAX_DELAY")
	setInt64(&cfg.Acquisition.MinEquityPercent, "SHARESD_ACQUISITION_MIN_EQUITY_PERCENT")
	setInt64(&cfg.Acquisition.MinStakePercent, "SHARESD_ACQUISITION_MIN_STAKE_PERCENT")
	setInt64(&cfg.Acquisition.ReplacementPremiumPercent, "SHARESD_ACQUISITION_REPLACEMENT_PREMIUM_PERCENT")
	setDuration(&cfg.Acquisition.VotingWindow, "SHARESD_ACQUISITION_VOTING_WINDOW")
	setDuration(&cfg.Acquisition.OfferLifetime, "SHARESD_ACQUISITION_OFFER_LIFETIME")

	// ── Database ──
	setStr(&cfg.Database.DSN, "SHARESD_DATABASE_DSN")
	setStr(&cfg.Database.Host, "SHARESD_DATABASE_HOST")
	setInt(&cfg.Database.Port, "SHARESD_DATABASE_PORT")
	setStr(&cfg.Database.Database, "SHARESD_DATABASE_NAME")
	setStr(&cfg.Database.User, "SHARESD_DATABASE_USER")
	setStr(&cfg.Database.Password, "SHARESD_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "SHARESD_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "SHARESD_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "SHARESD_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "SHARESD_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SHARESD_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SHARESD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SHARESD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SHARESD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SHARESD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SHARESD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SHARESD_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "SHARESD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SHARESD_S3_REGION")
	setStr(&cfg.S3.Bucket, "SHARESD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SHARESD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SHARESD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SHARESD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SHARESD_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "SHARESD_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "SHARESD_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "SHARESD_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SHARESD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SHARESD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SHARESD_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SHARESD_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "SHARESD_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWindow, "SHARESD_SERVER_RATE_LIMIT_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SHARESD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SHARESD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SHARESD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SHARESD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SHARESD_MODE")
	setStr(&cfg.LogLevel, "SHARESD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
