package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path (skipped when path is empty),
// merges it on top of the built-in defaults, applies HUSKYBIDS_* environment
// variable overrides, and returns the final Config. The caller should invoke
// Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known HUSKYBIDS_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Server.Port, "HUSKYBIDS_PORT")
	setStr(&cfg.Server.Port, "PORT") // platform-injected alias

	setStr(&cfg.Database.URL, "HUSKYBIDS_DATABASE_URL")
	setStr(&cfg.Database.URL, "DATABASE_URL")

	setStr(&cfg.Redis.URL, "HUSKYBIDS_REDIS_URL")
	setStr(&cfg.Redis.URL, "REDIS_URL")
	setInt(&cfg.Redis.CacheTTLSecs, "HUSKYBIDS_REDIS_CACHE_TTL_SECS")

	setInt64(&cfg.Betting.MinStake, "HUSKYBIDS_MIN_STAKE")
	setInt64(&cfg.Betting.MaxStake, "HUSKYBIDS_MAX_STAKE")
	setInt64(&cfg.Betting.StartingBalance, "HUSKYBIDS_STARTING_BALANCE")
	setInt(&cfg.Betting.GraceWindowSecs, "HUSKYBIDS_GRACE_WINDOW_SECS")
	setInt64(&cfg.Betting.MaxPendingPerMarket, "HUSKYBIDS_MAX_PENDING_PER_MARKET")
	setInt64(&cfg.Betting.MaxPendingTotal, "HUSKYBIDS_MAX_PENDING_TOTAL")
	setInt(&cfg.Betting.PlacementRetries, "HUSKYBIDS_PLACEMENT_RETRIES")

	setBool(&cfg.Settlement.Enabled, "HUSKYBIDS_SETTLEMENT_ENABLED")
	setInt(&cfg.Settlement.PollIntervalSecs, "HUSKYBIDS_SETTLEMENT_POLL_SECS")
}

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
