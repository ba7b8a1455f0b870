// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backend names accepted in STORE_BACKEND.
const (
	StoreBackendMemory   = "memory"
	StoreBackendFile     = "file"
	StoreBackendVault    = "vault"
	StoreBackendPostgres = "postgres"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// ProviderBaseURL is the identity provider's API base URL.
	ProviderBaseURL string `mapstructure:"PROVIDER_BASE_URL"`
	// RecoveryBaseURL is the verifier network's front-door base URL.
	RecoveryBaseURL string `mapstructure:"RECOVERY_BASE_URL"`
	// SignInScopes is a comma-separated list of claim scopes to request
	// during interactive sign-in (e.g. "full_name,email").
	SignInScopes string `mapstructure:"SIGNIN_SCOPES"`
	// HTTPTimeout is the per-request timeout for provider and recovery
	// calls (e.g. "30s"). The orchestrator itself imposes no timeouts.
	HTTPTimeout string `mapstructure:"HTTP_TIMEOUT"`

	// StoreBackend selects the credential store: memory, file, vault, or postgres.
	StoreBackend string `mapstructure:"STORE_BACKEND"`
	// StoreFilePath is the encrypted store file location (file backend).
	StoreFilePath string `mapstructure:"STORE_FILE_PATH"`
	// StorePassphrase seals the file backend. Required for STORE_BACKEND=file.
	StorePassphrase string `mapstructure:"STORE_PASSPHRASE"`
	// VaultAddr is the Vault server address (vault backend).
	VaultAddr string `mapstructure:"VAULT_ADDR"`
	// VaultToken authenticates against Vault (vault backend).
	VaultToken string `mapstructure:"VAULT_TOKEN"`
	// VaultMount is the KV v2 mount path; default "secret".
	VaultMount string `mapstructure:"VAULT_MOUNT"`
	// VaultPath is the path within the mount; default "keyshare-agent".
	VaultPath string `mapstructure:"VAULT_PATH"`
	// DatabaseURL is the Postgres DSN (postgres backend and cmd/migrate).
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables telemetry export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("PROVIDER_BASE_URL", "")
	v.SetDefault("RECOVERY_BASE_URL", "")
	v.SetDefault("SIGNIN_SCOPES", "full_name,email")
	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("STORE_BACKEND", StoreBackendFile)
	v.SetDefault("STORE_FILE_PATH", "credstore.bin")
	v.SetDefault("STORE_PASSPHRASE", "")
	v.SetDefault("VAULT_ADDR", "")
	v.SetDefault("VAULT_TOKEN", "")
	v.SetDefault("VAULT_MOUNT", "secret")
	v.SetDefault("VAULT_PATH", "keyshare-agent")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.ProviderBaseURL == "" {
		return nil, errors.New("config: PROVIDER_BASE_URL must be set")
	}
	if cfg.RecoveryBaseURL == "" {
		return nil, errors.New("config: RECOVERY_BASE_URL must be set")
	}

	switch cfg.StoreBackend {
	case StoreBackendMemory:
		if cfg.Env == "production" {
			return nil, errors.New("config: STORE_BACKEND=memory must not be used when APP_ENV=production")
		}
	case StoreBackendFile:
		if cfg.StorePassphrase == "" {
			return nil, errors.New("config: STORE_PASSPHRASE must be set when STORE_BACKEND=file")
		}
	case StoreBackendVault:
		if cfg.VaultAddr == "" {
			return nil, errors.New("config: VAULT_ADDR must be set when STORE_BACKEND=vault")
		}
	case StoreBackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("config: DATABASE_URL must be set when STORE_BACKEND=postgres")
		}
	default:
		return nil, errors.New("config: STORE_BACKEND must be one of memory, file, vault, postgres")
	}

	return &cfg, nil
}

// Timeout parses HTTPTimeout as a time.Duration. Returns 30s if unset or invalid.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.HTTPTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Scopes splits SignInScopes into its individual scope names, dropping
// empty entries.
func (c *Config) Scopes() []string {
	parts := strings.Split(c.SignInScopes, ",")
	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}
