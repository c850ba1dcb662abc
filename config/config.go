package config

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"wagerledger/address"
	"wagerledger/database"
	"wagerledger/service"
)

// DefaultProgramID identifies the ledger when PROGRAM_ID is not set
var DefaultProgramID = address.Address(sha256.Sum256([]byte("wagerledger")))

// Config holds all application configuration
type Config struct {
	// Database configuration. An empty DatabaseURL selects the in-memory store.
	DatabaseURL  string
	DatabaseName string

	// Redis read cache, disabled when empty
	RedisURL string
	CacheTTL time.Duration

	// NATS server addresses (comma-separated), event publishing disabled when empty
	NATSServers string

	// HTTP listen address
	HTTPAddr string

	// Ledger identity every derived address is seeded with
	ProgramID address.Address

	// Airdrop configuration
	AirdropEnabled     bool
	MaxAirdropLamports uint64

	LogLevel log.Level

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// UseMemoryStore reports whether the ledger runs without Postgres
func (c *Config) UseMemoryStore() bool {
	return c.DatabaseURL == ""
}

// IsProduction reports whether logs should be machine readable
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// NATSServerList splits NATSServers into individual URLs
func (c *Config) NATSServerList() []string {
	var servers []string
	for _, server := range strings.Split(c.NATSServers, ",") {
		if server = strings.TrimSpace(server); server != "" {
			servers = append(servers, server)
		}
	}
	return servers
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// Cache
		RedisURL: os.Getenv("REDIS_URL"),
		CacheTTL: 30 * time.Second,

		// NATS
		NATSServers: os.Getenv("NATS_SERVERS"),

		// HTTP
		HTTPAddr: getEnvWithDefault("HTTP_ADDR", ":8080"),

		ProgramID: DefaultProgramID,

		// Airdrops default to 1000 units per request
		AirdropEnabled:     os.Getenv("AIRDROP_ENABLED") == "true",
		MaxAirdropLamports: 1_000 * service.LamportsPerUnit,

		LogLevel: log.InfoLevel,

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	if programID := os.Getenv("PROGRAM_ID"); programID != "" {
		parsed, err := address.Parse(programID)
		if err != nil {
			return nil, fmt.Errorf("invalid PROGRAM_ID: %w", err)
		}
		config.ProgramID = parsed
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		config.LogLevel = parsed
	}

	// Override defaults if environment variables are set
	if maxAirdrop := os.Getenv("MAX_AIRDROP_LAMPORTS"); maxAirdrop != "" {
		if parsed, err := strconv.ParseUint(maxAirdrop, 10, 64); err == nil {
			config.MaxAirdropLamports = parsed
		}
	}
	if ttl := os.Getenv("CACHE_TTL_SECONDS"); ttl != "" {
		if seconds, err := strconv.Atoi(ttl); err == nil && seconds > 0 {
			config.CacheTTL = time.Duration(seconds) * time.Second
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment == "production" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required in production")
		}
		if config.AirdropEnabled {
			return nil, fmt.Errorf("AIRDROP_ENABLED must not be set in production")
		}
	}
	// If DatabaseName is provided, ensure it's not empty
	if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
		return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		HTTPAddr:           ":0",
		CacheTTL:           time.Second,
		ProgramID:          DefaultProgramID,
		AirdropEnabled:     true,
		MaxAirdropLamports: 1_000 * service.LamportsPerUnit,
		LogLevel:           log.DebugLevel,
		Environment:        "test",
	}
}
