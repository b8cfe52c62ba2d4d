package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
)

// Config holds all configurable server parameters.
type Config struct {
	DefaultGridSize  int `json:"default_grid_size"`
	MaxGridSize      int `json:"max_grid_size"`
	SettleDelayMS    int `json:"settle_delay_ms"`
	MaxNameLength    int `json:"max_name_length"`
	WSPort           int `json:"ws_port"`
	LeaderboardLimit int `json:"leaderboard_limit"`

	// DatabaseURL enables the Postgres leaderboard store; empty keeps the
	// in-memory store.
	DatabaseURL string `json:"database_url"`

	// AuthBaseURL enables JWT verification on websocket upgrades; empty
	// disables auth entirely.
	AuthBaseURL string `json:"auth_base_url"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		DefaultGridSize:  6,
		MaxGridSize:      8,
		SettleDelayMS:    1000,
		MaxNameLength:    24,
		WSPort:           8765,
		LeaderboardLimit: 50,
	}
}

// ValidGridSize reports whether n is an acceptable grid dimension: even,
// at least 2, and no larger than MaxGridSize.
func (c *Config) ValidGridSize(n int) bool {
	return n >= 2 && n <= c.MaxGridSize && n%2 == 0
}

// Load reads configuration from an optional config.json file,
// then applies environment variable overrides. Fields not set
// in either source retain their default values.
func Load() *Config {
	cfg := Defaults()

	// Try to load from config.json
	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			log.Printf("Warning: failed to parse config.json: %v", err)
		}
	}

	// Environment variable overrides
	overrideInt(&cfg.DefaultGridSize, "DEFAULT_GRID_SIZE")
	overrideInt(&cfg.MaxGridSize, "MAX_GRID_SIZE")
	overrideInt(&cfg.SettleDelayMS, "SETTLE_DELAY_MS")
	overrideInt(&cfg.MaxNameLength, "MAX_NAME_LENGTH")
	overrideInt(&cfg.WSPort, "WS_PORT")
	overrideInt(&cfg.LeaderboardLimit, "LEADERBOARD_LIMIT")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.AuthBaseURL, "AUTH_BASE_URL")

	return cfg
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
