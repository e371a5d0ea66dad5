// Package config loads runtime settings from a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultRPCEndpoint     = "https://api.devnet.solana.com"
	DefaultCluster         = "devnet"
	DefaultHTTPAddr        = ":8080"
	DefaultLogLevel        = "info"
	DefaultBalanceCacheTTL = 5 * time.Minute
	DefaultConfirmTimeout  = 60 * time.Second
)

// Config holds runtime settings.
type Config struct {
	RPCEndpoint  string  // SOLANA_RPC_ENDPOINT
	WSEndpoint   string  // SOLANA_WS_ENDPOINT, optional; polling confirmation when empty
	Cluster      string  // SOLANA_CLUSTER, used for explorer links
	RPCRateLimit float64 // RPC_RATE_LIMIT requests per second, 0 disables

	PostgresDSN   string // POSTGRES_DSN
	ClickHouseDSN string // CLICKHOUSE_DSN, optional analytics mirror
	UseMemory     bool   // USE_MEMORY

	HTTPAddr string // HTTP_ADDR
	LogLevel string // LOG_LEVEL

	WalletKeypair string // WALLET_KEYPAIR, path to a keypair JSON file
	WalletTrusted bool   // WALLET_TRUSTED

	BalanceCacheTTL time.Duration // BALANCE_CACHE_TTL
	ConfirmTimeout  time.Duration // CONFIRM_TIMEOUT
}

// Load reads the given .env files (".env" when none are named) without
// overriding variables already set, then builds a Config from the environment.
// Missing files are ignored.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables.
func FromEnv() (*Config, error) {
	cfg := &Config{
		RPCEndpoint:   getString("SOLANA_RPC_ENDPOINT", DefaultRPCEndpoint),
		WSEndpoint:    os.Getenv("SOLANA_WS_ENDPOINT"),
		Cluster:       getString("SOLANA_CLUSTER", DefaultCluster),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		ClickHouseDSN: os.Getenv("CLICKHOUSE_DSN"),
		HTTPAddr:      getString("HTTP_ADDR", DefaultHTTPAddr),
		LogLevel:      getString("LOG_LEVEL", DefaultLogLevel),
		WalletKeypair: os.Getenv("WALLET_KEYPAIR"),
	}

	var err error
	if cfg.UseMemory, err = getBool("USE_MEMORY", false); err != nil {
		return nil, err
	}
	if cfg.WalletTrusted, err = getBool("WALLET_TRUSTED", false); err != nil {
		return nil, err
	}
	if cfg.RPCRateLimit, err = getFloat("RPC_RATE_LIMIT", 0); err != nil {
		return nil, err
	}
	if cfg.BalanceCacheTTL, err = getDuration("BALANCE_CACHE_TTL", DefaultBalanceCacheTTL); err != nil {
		return nil, err
	}
	if cfg.ConfirmTimeout, err = getDuration("CONFIRM_TIMEOUT", DefaultConfirmTimeout); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.RPCEndpoint == "" {
		return errors.New("SOLANA_RPC_ENDPOINT is required")
	}
	if !c.UseMemory && c.PostgresDSN == "" {
		return errors.New("POSTGRES_DSN is required (set USE_MEMORY=true for in-memory storage)")
	}
	if c.RPCRateLimit < 0 {
		return errors.New("RPC_RATE_LIMIT must not be negative")
	}
	return nil
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
