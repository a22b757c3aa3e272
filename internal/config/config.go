// Package config holds the service configuration: a TOML file merged over
// built-in defaults, with HUSKYBIDS_* environment variable overrides applied
// last so operators can inject connection strings at deploy time.
package config

import (
	"fmt"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Server     Server     `toml:"server"`
	Database   Database   `toml:"database"`
	Redis      Redis      `toml:"redis"`
	Betting    Betting    `toml:"betting"`
	Settlement Settlement `toml:"settlement"`
}

// Server configures the HTTP listener.
type Server struct {
	Port string `toml:"port"`
}

// Database configures the PostgreSQL connection. An empty URL selects the
// in-memory store (development only).
type Database struct {
	URL string `toml:"url"`
}

// Redis configures the optional read-through cache.
type Redis struct {
	URL          string `toml:"url"`
	CacheTTLSecs int    `toml:"cache_ttl_secs"`
}

// Betting configures placement rules.
type Betting struct {
	MinStake        int64 `toml:"min_stake"`
	MaxStake        int64 `toml:"max_stake"`
	StartingBalance int64 `toml:"starting_balance"`
	// GraceWindowSecs is the tolerance past a market's start time during
	// which a placement is still accepted, absorbing clock skew between
	// caller and server. Once elapsed the market is permanently closed.
	GraceWindowSecs     int   `toml:"grace_window_secs"`
	MaxPendingPerMarket int64 `toml:"max_pending_per_market"`
	MaxPendingTotal     int64 `toml:"max_pending_total"`
	// PlacementRetries bounds automatic retries on a concurrent write
	// conflict. Validation failures are never retried.
	PlacementRetries int `toml:"placement_retries"`
}

// Settlement configures the background settlement runner.
type Settlement struct {
	Enabled          bool `toml:"enabled"`
	PollIntervalSecs int  `toml:"poll_interval_secs"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: Server{Port: "8080"},
		Redis:  Redis{CacheTTLSecs: 30},
		Betting: Betting{
			MinStake:            10,
			MaxStake:            10000,
			StartingBalance:     1000,
			GraceWindowSecs:     5,
			MaxPendingPerMarket: 5000,
			MaxPendingTotal:     20000,
			PlacementRetries:    3,
		},
		Settlement: Settlement{
			Enabled:          true,
			PollIntervalSecs: 60,
		},
	}
}

// CacheTTL returns the Redis cache TTL as a duration.
func (r Redis) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLSecs) * time.Second
}

// GraceWindow returns the placement grace window as a duration.
func (b Betting) GraceWindow() time.Duration {
	return time.Duration(b.GraceWindowSecs) * time.Second
}

// PollInterval returns the settlement poll interval as a duration.
func (s Settlement) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSecs) * time.Second
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Betting.MinStake <= 0 {
		return fmt.Errorf("config: min_stake must be positive, got %d", c.Betting.MinStake)
	}
	if c.Betting.MaxStake < c.Betting.MinStake {
		return fmt.Errorf("config: max_stake %d below min_stake %d",
			c.Betting.MaxStake, c.Betting.MinStake)
	}
	if c.Betting.StartingBalance < 0 {
		return fmt.Errorf("config: starting_balance must not be negative")
	}
	if c.Betting.PlacementRetries < 0 {
		return fmt.Errorf("config: placement_retries must not be negative")
	}
	if c.Settlement.Enabled && c.Settlement.PollIntervalSecs <= 0 {
		return fmt.Errorf("config: poll_interval_secs must be positive when settlement runner is enabled")
	}
	return nil
}
