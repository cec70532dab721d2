package config

import (
	"fmt"
	"os"
	"strconv"
)

// Default upstream endpoints. All of them can be overridden per environment,
// which is also how tests point the service at local fakes.
const (
	DefaultQuoteURL    = "https://lite-api.jup.ag/swap/v1/quote"
	DefaultSwapURL     = "https://lite-api.jup.ag/swap/v1/swap"
	DefaultTokenURL    = "https://lite-api.jup.ag/tokens/v2"
	DefaultSNSProxyURL = "https://sns-sdk-proxy.bonfida.workers.dev"
)

// Config holds all application configuration loaded from environment
// variables. All required fields are validated at startup to ensure
// fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Chain RPC configuration
	SolanaRPCURL string

	// Jupiter API configuration
	JupiterQuoteURL string
	JupiterSwapURL  string
	JupiterTokenURL string

	// Name-service providers
	SNSProxyURL   string
	AllDomainsURL string // empty disables the generic provider

	// Quote defaults
	DefaultSlippageBps int

	// Optional side channels; empty values disable them
	DatabaseURL string
	NATSURL     string
}

// Load reads configuration from environment variables and validates all
// required fields. Returns an error if any required configuration is missing
// or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}

	cfg.JupiterQuoteURL = getEnvOrDefault("JUPITER_QUOTE_URL", DefaultQuoteURL)
	cfg.JupiterSwapURL = getEnvOrDefault("JUPITER_SWAP_URL", DefaultSwapURL)
	cfg.JupiterTokenURL = getEnvOrDefault("JUPITER_TOKEN_URL", DefaultTokenURL)

	cfg.SNSProxyURL = getEnvOrDefault("SNS_PROXY_URL", DefaultSNSProxyURL)
	cfg.AllDomainsURL = os.Getenv("ALLDOMAINS_URL")

	slippage, err := parseInt("DEFAULT_SLIPPAGE_BPS", 50)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.DefaultSlippageBps = slippage
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.NATSURL = os.Getenv("NATS_URL")

	if err := cfg.validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}
	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid. Useful for
// server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid. Useful for testing
// configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}
	if c.JupiterQuoteURL == "" {
		errs = append(errs, fmt.Errorf("JupiterQuoteURL is required"))
	}
	if c.JupiterSwapURL == "" {
		errs = append(errs, fmt.Errorf("JupiterSwapURL is required"))
	}
	if c.JupiterTokenURL == "" {
		errs = append(errs, fmt.Errorf("JupiterTokenURL is required"))
	}
	if err := c.validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}
	return nil
}

// validate holds the checks shared by Load and Validate.
func (c *Config) validate() error {
	if c.DefaultSlippageBps < 0 || c.DefaultSlippageBps > 10_000 {
		return fmt.Errorf("DEFAULT_SLIPPAGE_BPS must be in [0, 10000], got %d", c.DefaultSlippageBps)
	}
	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not
// set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
