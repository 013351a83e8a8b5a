package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"optio-backend/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// Logging
	LogLevel string `yaml:"log_level"`

	Chain         ChainConfig         `yaml:"chain"`
	Narrative     NarrativeConfig     `yaml:"narrative"`
	Refresh       RefreshConfig       `yaml:"refresh"`
	HTTP          HTTPConfig          `yaml:"http"`
	Observability ObservabilityConfig `yaml:"observability"`

	// ConfigFile is the YAML file the configuration was read from, if any
	ConfigFile string `yaml:"-"`
}

// ChainConfig describes the contract and how to reach it
type ChainConfig struct {
	RPCURL          string `yaml:"rpc_url"`
	EventsURL       string `yaml:"events_url"`
	ContractAddress string `yaml:"contract_address"`
	ChainID         int64  `yaml:"chain_id"`

	// PrivateKey signs transactions. Without it the service is read-only.
	// Only read from the environment.
	PrivateKey string `yaml:"-"`

	CallTimeout        time.Duration `yaml:"call_timeout"`
	TxTimeout          time.Duration `yaml:"tx_timeout"`
	ResubscribeDelay   time.Duration `yaml:"resubscribe_delay"`
	BreakerMaxFailures uint32        `yaml:"breaker_max_failures"`
	BreakerTimeout     time.Duration `yaml:"breaker_timeout"`
}

// NarrativeConfig holds the rules of the story
type NarrativeConfig struct {
	StartNexus       uint64 `yaml:"start_nexus"`
	ContributionFee  string `yaml:"contribution_fee"`
	MaxContentLength int    `yaml:"max_content_length"`
	MaxNameLength    int    `yaml:"max_name_length"`
}

// RefreshConfig controls the periodic refresh of stale views
type RefreshConfig struct {
	UpdateInterval time.Duration `yaml:"update_interval"`
	CacheDuration  time.Duration `yaml:"cache_duration"`
	SessionIdle    time.Duration `yaml:"session_idle"`
}

// HTTPConfig controls the HTTP surface
type HTTPConfig struct {
	CORSOrigins    []string      `yaml:"cors_origins"`
	WriteRateLimit float64       `yaml:"write_rate_limit"`
	WriteBurst     int           `yaml:"write_burst"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ObservabilityConfig holds the metrics and tracing switches
type ObservabilityConfig struct {
	EnableMetrics bool    `yaml:"enable_metrics"`
	EnableTracing bool    `yaml:"enable_tracing"`
	OTLPEndpoint  string  `yaml:"otlp_endpoint"`
	ServiceName   string  `yaml:"service_name"`
	SampleRate    float64 `yaml:"trace_sample_rate"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ServerAddress: ":8080",
		Environment:   "development",
		LogLevel:      "info",
		Chain: ChainConfig{
			RPCURL:             "http://localhost:8545",
			ChainID:            1,
			CallTimeout:        15 * time.Second,
			TxTimeout:          5 * time.Minute,
			ResubscribeDelay:   5 * time.Second,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		Narrative: NarrativeConfig{
			StartNexus:       0,
			ContributionFee:  "0.00004",
			MaxContentLength: 2048,
			MaxNameLength:    32,
		},
		Refresh: RefreshConfig{
			UpdateInterval: 30 * time.Second,
			CacheDuration:  time.Minute,
			SessionIdle:    24 * time.Hour,
		},
		HTTP: HTTPConfig{
			CORSOrigins:    []string{"*"},
			WriteRateLimit: 1,
			WriteBurst:     5,
			RequestTimeout: 10 * time.Minute,
		},
		Observability: ObservabilityConfig{
			EnableMetrics: true,
			ServiceName:   "optio-backend",
		},
	}
}

// LoadConfig loads defaults, then CONFIG_FILE if set, then environment variables
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

func applyEnv(cfg *Config) {
	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	// Chain
	cfg.Chain.RPCURL = getEnv("RPC_URL", cfg.Chain.RPCURL)
	cfg.Chain.EventsURL = getEnv("EVENTS_URL", cfg.Chain.EventsURL)
	cfg.Chain.ContractAddress = getEnv("CONTRACT_ADDRESS", cfg.Chain.ContractAddress)
	cfg.Chain.ChainID = getEnvInt64("CHAIN_ID", cfg.Chain.ChainID)
	cfg.Chain.PrivateKey = getEnv("WALLET_PRIVATE_KEY", cfg.Chain.PrivateKey)
	cfg.Chain.CallTimeout = getEnvDuration("CALL_TIMEOUT", cfg.Chain.CallTimeout)
	cfg.Chain.TxTimeout = getEnvDuration("TX_TIMEOUT", cfg.Chain.TxTimeout)
	cfg.Chain.ResubscribeDelay = getEnvDuration("RESUBSCRIBE_DELAY", cfg.Chain.ResubscribeDelay)

	// Narrative
	cfg.Narrative.StartNexus = uint64(getEnvInt64("START_NEXUS", int64(cfg.Narrative.StartNexus)))
	cfg.Narrative.ContributionFee = getEnv("CONTRIBUTION_FEE", cfg.Narrative.ContributionFee)
	cfg.Narrative.MaxContentLength = getEnvInt("MAX_CONTENT_LENGTH", cfg.Narrative.MaxContentLength)
	cfg.Narrative.MaxNameLength = getEnvInt("MAX_NAME_LENGTH", cfg.Narrative.MaxNameLength)

	// Refresh
	cfg.Refresh.UpdateInterval = getEnvDuration("UPDATE_INTERVAL", cfg.Refresh.UpdateInterval)
	cfg.Refresh.CacheDuration = getEnvDuration("CACHE_DURATION", cfg.Refresh.CacheDuration)
	cfg.Refresh.SessionIdle = getEnvDuration("SESSION_IDLE", cfg.Refresh.SessionIdle)

	// HTTP
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.HTTP.CORSOrigins = splitList(origins)
	}
	cfg.HTTP.WriteRateLimit = getEnvFloat("WRITE_RATE_LIMIT", cfg.HTTP.WriteRateLimit)
	cfg.HTTP.WriteBurst = getEnvInt("WRITE_BURST", cfg.HTTP.WriteBurst)

	// Observability
	cfg.Observability.EnableMetrics = getEnvBool("ENABLE_METRICS", cfg.Observability.EnableMetrics)
	cfg.Observability.EnableTracing = getEnvBool("ENABLE_TRACING", cfg.Observability.EnableTracing)
	cfg.Observability.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Observability.OTLPEndpoint)
	cfg.Observability.ServiceName = getEnv("SERVICE_NAME", cfg.Observability.ServiceName)
	cfg.Observability.SampleRate = getEnvFloat("TRACE_SAMPLE_RATE", cfg.Observability.SampleRate)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}
	if !common.IsHexAddress(c.Chain.ContractAddress) {
		return fmt.Errorf("CONTRACT_ADDRESS must be a hex address, got %q", c.Chain.ContractAddress)
	}
	if c.Chain.ChainID <= 0 {
		return fmt.Errorf("CHAIN_ID must be positive")
	}
	if _, err := c.Fee(); err != nil {
		return fmt.Errorf("CONTRIBUTION_FEE: %w", err)
	}
	if c.Narrative.MaxContentLength <= 0 || c.Narrative.MaxNameLength <= 0 {
		return fmt.Errorf("content and name length limits must be positive")
	}
	if c.Refresh.CacheDuration < 0 || c.Refresh.UpdateInterval < 0 {
		return fmt.Errorf("refresh intervals cannot be negative")
	}
	if c.Observability.EnableTracing && c.Observability.OTLPEndpoint == "" {
		return fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT is required when tracing is enabled")
	}
	if c.Observability.SampleRate < 0 || c.Observability.SampleRate > 1 {
		return fmt.Errorf("TRACE_SAMPLE_RATE must be between 0 and 1")
	}
	if c.IsProduction() && len(c.HTTP.CORSOrigins) == 1 && c.HTTP.CORSOrigins[0] == "*" {
		return fmt.Errorf("CORS_ORIGINS must be restricted in production")
	}

	return nil
}

// Fee returns the contribution fee in wei
func (c *Config) Fee() (*big.Int, error) {
	return utils.ParseEther(c.Narrative.ContributionFee)
}

// HasWallet reports whether transactions can be signed
func (c *Config) HasWallet() bool {
	return c.Chain.PrivateKey != ""
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
