package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// validConfig returns defaults completed with the fields Validate requires.
func validConfig() Config {
	cfg := Defaults()
	cfg.Owner.Address = "0x0000000000000000000000000000000000000a11"
	cfg.Equity.Address = "0x00000000000000000000000000000000000000e9"
	cfg.Wrapper.Address = "0x00000000000000000000000000000000000000dd"
	cfg.Currencies = []CurrencyConfig{{
		Name:    "CryptoFranc",
		Symbol:  "XCHF",
		Address: "0x00000000000000000000000000000000000000c4",
		Rate:    "1",
	}}
	return cfg
}

func TestDefaults(t *testing.T) {
	require := require.New(t)
	cfg := Defaults()

	require.Equal("serve", cfg.Mode)
	require.Equal("info", cfg.LogLevel)
	require.Equal(180*24*time.Hour, cfg.Claims.ClaimPeriod.Duration)
	require.Equal(24*time.Hour, cfg.Claims.PreclaimMinDelay.Duration)
	require.Equal(48*time.Hour, cfg.Claims.PreclaimMaxDelay.Duration)
	require.EqualValues(30, cfg.Acquisition.MinEquityPercent)
	require.EqualValues(5, cfg.Acquisition.MinStakePercent)
	require.EqualValues(105, cfg.Acquisition.ReplacementPremiumPercent)
	require.Equal(60*24*time.Hour, cfg.Acquisition.VotingWindow.Duration)
	require.Equal(90*24*time.Hour, cfg.Acquisition.OfferLifetime.Duration)
	require.Equal(8000, cfg.Server.Port)
	require.True(cfg.Database.RunMigrations)
}

func TestLoadTOML(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	err := os.WriteFile(path, []byte(`
mode = "archive"
log_level = "debug"

[owner]
address = "0x0000000000000000000000000000000000000a11"

[equity]
name = "ServiceHunter AG Shares"
symbol = "SHS"
address = "0x00000000000000000000000000000000000000e9"
total_shares = "10000000"

[[equity.allocations]]
address = "0x0000000000000000000000000000000000000001"
amount = "5000"

[wrapper]
address = "0x00000000000000000000000000000000000000dd"

[[currency]]
symbol = "XCHF"
address = "0x00000000000000000000000000000000000000c4"
collateral_rate = "2"

[claims]
claim_period = "2400h"
preclaim_min_delay = "12h"

[server]
port = 9100
rate_limit_window = "2s"
`), 0o600)
	require.NoError(err)

	cfg, err := Load(path)
	require.NoError(err)

	require.Equal("archive", cfg.Mode)
	require.Equal("debug", cfg.LogLevel)
	require.Equal("10000000", cfg.Equity.TotalShares)
	require.Len(cfg.Equity.Allocations, 1)
	require.Equal("5000", cfg.Equity.Allocations[0].Amount)
	require.Len(cfg.Currencies, 1)
	require.Equal("2", cfg.Currencies[0].Rate)

	// Duration strings decode; unset fields keep their defaults.
	require.Equal(2400*time.Hour, cfg.Claims.ClaimPeriod.Duration)
	require.Equal(12*time.Hour, cfg.Claims.PreclaimMinDelay.Duration)
	require.Equal(48*time.Hour, cfg.Claims.PreclaimMaxDelay.Duration)
	require.Equal(9100, cfg.Server.Port)
	require.Equal(2*time.Second, cfg.Server.RateLimitWindow.Duration)
	require.Equal("localhost", cfg.Database.Host)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	require := require.New(t)

	t.Setenv("SHARESD_MODE", "archive")
	t.Setenv("SHARESD_OWNER_ADDRESS", "0x0000000000000000000000000000000000000042")
	t.Setenv("SHARESD_DATABASE_PASSWORD", "hunter2")
	t.Setenv("SHARESD_DATABASE_PORT", "5433")
	t.Setenv("SHARESD_REDIS_ENABLED", "false")
	t.Setenv("SHARESD_CLAIMS_CLAIM_PERIOD", "2160h")
	t.Setenv("SHARESD_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	require.Equal("archive", cfg.Mode)
	require.Equal("0x0000000000000000000000000000000000000042", cfg.Owner.Address)
	require.Equal("hunter2", cfg.Database.Password)
	require.Equal(5433, cfg.Database.Port)
	require.False(cfg.Redis.Enabled)
	require.Equal(90*24*time.Hour, cfg.Claims.ClaimPeriod.Duration)
	require.Equal([]string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestEnvOverridesIgnoreMalformed(t *testing.T) {
	require := require.New(t)

	t.Setenv("SHARESD_DATABASE_PORT", "not-a-port")
	t.Setenv("SHARESD_CLAIMS_CLAIM_PERIOD", "ninety days")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	require.Equal(5432, cfg.Database.Port)
	require.Equal(180*24*time.Hour, cfg.Claims.ClaimPeriod.Duration)
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown mode", func(c *Config) { c.Mode = "daemon" }, "unknown mode"},
		{"unknown log level", func(c *Config) { c.LogLevel = "trace" }, "unknown log_level"},
		{"no owner", func(c *Config) { c.Owner = OwnerConfig{} }, "owner:"},
		{"encrypted key without password", func(c *Config) {
			c.Owner = OwnerConfig{EncryptedKeyPath: "/etc/key.enc"}
		}, "key_password"},
		{"no equity address", func(c *Config) { c.Equity.Address = "" }, "equity:"},
		{"no currencies", func(c *Config) { c.Currencies = nil }, "currency:"},
		{"short claim period", func(c *Config) {
			c.Claims.ClaimPeriod = duration{89 * 24 * time.Hour}
		}, "claim_period"},
		{"inverted preclaim window", func(c *Config) {
			c.Claims.PreclaimMinDelay = duration{48 * time.Hour}
			c.Claims.PreclaimMaxDelay = duration{24 * time.Hour}
		}, "preclaim window"},
		{"premium at par", func(c *Config) {
			c.Acquisition.ReplacementPremiumPercent = 100
		}, "replacement_premium_percent"},
		{"offer shorter than vote", func(c *Config) {
			c.Acquisition.OfferLifetime = duration{30 * 24 * time.Hour}
		}, "offer_lifetime"},
		{"bad server port", func(c *Config) { c.Server.Port = 70000 }, "server: port"},
		{"archive without bucket", func(c *Config) {
			c.Archive.Enabled = true
			c.S3.Bucket = ""
		}, "s3 bucket"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}
