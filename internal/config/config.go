package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"

	"github.com/screa/solana-mint-miner/internal/crypto"
	"github.com/screa/solana-mint-miner/pkg/types"
)

// Suffix types selectable from the command line
const (
	SuffixPump = "pump"
	SuffixBonk = "bonk"
)

// Store backends
const (
	StoreREST     = "rest"
	StorePostgres = "postgres"
)

// Environment variables holding credentials
const (
	EnvSupabaseURL = "SUPABASE_URL"
	EnvSupabaseKey = "SUPABASE_ANON_KEY"
	EnvDatabaseURL = "DATABASE_URL"
)

// Errors
var (
	ErrEmptySuffix   = errors.New("suffix must not be empty")
	ErrInvalidSuffix = errors.New("suffix contains characters outside the base58 alphabet")
	ErrInvalidCount  = errors.New("count must be at least 1")
	ErrInvalidBatch  = errors.New("batch size must not be negative")
	ErrUnknownStore  = errors.New("unknown store backend")
)

// Config holds the application configuration
type Config struct {
	Workers     int
	Count       int
	BatchSize   int // 0 defers every upload to the end of the session
	SaveLocal   bool
	BackupDir   string
	Verbose     bool
	LogFile     string
	LogInterval int // Logging interval in seconds

	MaxAttempts uint64        // per-worker trial budget for one search, 0 = unbounded
	Timeout     time.Duration // per-search timeout, 0 = none

	Store          string
	Table          string
	RequestsPerSec float64 // REST request pacing, 0 = unlimited
	RequestTimeout time.Duration

	SupabaseURL string
	SupabaseKey string
	DatabaseURL string
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Workers:        runtime.NumCPU(),
		Count:          1,
		BatchSize:      10,
		BackupDir:      ".",
		LogInterval:    5, // Default 5 seconds
		Store:          StoreREST,
		Table:          "mint_addresses",
		RequestTimeout: 30 * time.Second,
	}
}

// LoadEnv reads credentials from the environment, after loading envFile if it exists.
// A missing env file is not an error; values already set in the environment win.
func (c *Config) LoadEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	c.SupabaseURL = os.Getenv(EnvSupabaseURL)
	c.SupabaseKey = os.Getenv(EnvSupabaseKey)
	c.DatabaseURL = os.Getenv(EnvDatabaseURL)
	return nil
}

// Validate validates the search and persistence settings
func (c *Config) Validate() error {
	if c.Count < 1 {
		return ErrInvalidCount
	}
	if c.BatchSize < 0 {
		return ErrInvalidBatch
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	return c.ValidateStore()
}

// ValidateStore checks that the selected backend has its credentials
func (c *Config) ValidateStore() error {
	switch c.Store {
	case StoreREST:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("%w: %s and %s must be set", types.ErrConfiguration, EnvSupabaseURL, EnvSupabaseKey)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: %s must be set", types.ErrConfiguration, EnvDatabaseURL)
		}
	default:
		return fmt.Errorf("%w: %w %q", types.ErrConfiguration, ErrUnknownStore, c.Store)
	}
	if c.Table == "" {
		return fmt.Errorf("%w: table name must not be empty", types.ErrConfiguration)
	}
	return nil
}

// ValidateSuffix rejects suffixes that no base58 address can end with
func ValidateSuffix(suffix string) error {
	if suffix == "" {
		return ErrEmptySuffix
	}
	if !crypto.IsBase58(suffix) {
		return fmt.Errorf("%w: %q", ErrInvalidSuffix, suffix)
	}
	return nil
}

// LogEvery returns the progress logging interval
func (c *Config) LogEvery() time.Duration {
	if c.LogInterval <= 0 {
		return 0
	}
	return time.Duration(c.LogInterval) * time.Second
}

// GetUploadStrategy returns a human-readable description of the batching policy
func (c *Config) GetUploadStrategy() string {
	if c.BatchSize == 0 {
		return "save all addresses at the end"
	}
	return fmt.Sprintf("batch upload every %d addresses", c.BatchSize)
}
