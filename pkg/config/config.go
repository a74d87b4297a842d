// Copyright 2025 Certen Protocol
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the bridge service, loaded once at
// startup from the environment. There is no hot reload: a config change
// requires a restart.
type Config struct {
	// Network Configuration
	TendermintRPCURL string
	EthereumRPCURL   string
	EthChainID       int64

	// Server Configuration
	ListenAddr  string
	MetricsAddr string
	HealthAddr  string

	// Settlement Configuration
	ContractAddress string
	EthPrivateKey   string
	GasLimit        uint64

	// External signer mode: when set, EthPrivateKey is ignored and
	// transactions are signed by whatever service this URL points at.
	ExternalSignerURL string
	ExternalSignerFrom string

	// Proving Configuration
	DevMode              bool
	ProvingKeyDir        string
	MaxConcurrentProofs  int64
	BatchSize            uint64

	LogLevel string
}

// Load reads Config from the process environment, applying the same
// fixed defaults used across development and production; Validate (or
// ValidateForDevelopment) enforces which fields are actually required.
func Load() (*Config, error) {
	cfg := &Config{
		TendermintRPCURL: getEnv("TENDERMINT_RPC_URL", ""),
		EthereumRPCURL:   getEnv("ETHEREUM_RPC_URL", ""),
		EthChainID:       getEnvInt64("ETH_CHAIN_ID", 11155111),

		ListenAddr:  getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("API_PORT", "8080"),
		MetricsAddr: getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("METRICS_PORT", "9090"),
		HealthAddr:  getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("HEALTH_CHECK_PORT", "8081"),

		ContractAddress: getEnv("SETTLEMENT_CONTRACT_ADDRESS", ""),
		EthPrivateKey:   getEnv("ETH_PRIVATE_KEY", ""),
		GasLimit:        uint64(getEnvInt64("SETTLEMENT_GAS_LIMIT", 500_000)),

		ExternalSignerURL:  getEnv("EXTERNAL_SIGNER_URL", ""),
		ExternalSignerFrom: getEnv("EXTERNAL_SIGNER_FROM", ""),

		DevMode:             getEnvBool("DEV_MODE", false),
		ProvingKeyDir:       getEnv("PROVING_KEY_DIR", "./proving-keys"),
		MaxConcurrentProofs: getEnvInt64("MAX_CONCURRENT_PROOFS", 4),
		BatchSize:           uint64(getEnvInt64("BATCH_SIZE", 1024)),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// Validate checks that all configuration required for production
// operation is present and internally consistent.
func (c *Config) Validate() error {
	var errs []string

	if c.TendermintRPCURL == "" {
		errs = append(errs, "TENDERMINT_RPC_URL is required but not set")
	}
	if c.EthereumRPCURL == "" {
		errs = append(errs, "ETHEREUM_RPC_URL is required but not set")
	}
	if c.ContractAddress == "" {
		errs = append(errs, "SETTLEMENT_CONTRACT_ADDRESS is required but not set")
	}
	if c.ExternalSignerURL == "" && c.EthPrivateKey == "" {
		errs = append(errs, "either ETH_PRIVATE_KEY or EXTERNAL_SIGNER_URL/EXTERNAL_SIGNER_FROM must be set")
	}
	if c.ExternalSignerURL != "" && c.ExternalSignerFrom == "" {
		errs = append(errs, "EXTERNAL_SIGNER_FROM is required when EXTERNAL_SIGNER_URL is set")
	}
	if !c.DevMode && c.ProvingKeyDir == "" {
		errs = append(errs, "PROVING_KEY_DIR is required when DEV_MODE is false")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ValidateForDevelopment performs relaxed validation suitable for a local
// devnet: it only insists on the two RPC endpoints. It leaves DevMode as
// loaded; cmd/blobstream0 calls it only when DevMode is already set.
func (c *Config) ValidateForDevelopment() error {
	if c.TendermintRPCURL == "" {
		return fmt.Errorf("TENDERMINT_RPC_URL is required even in development")
	}
	if c.EthereumRPCURL == "" {
		return fmt.Errorf("ETHEREUM_RPC_URL is required even in development")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
