package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "CARBONLEDGER"
	defaultHTTPAddress     = "0.0.0.0:8080"
	defaultDatabasePath    = "carbonledger.db"
	defaultLogLevel        = "info"
	defaultAuthIssuer      = "carbonledger-auth"
	defaultCacheTTLMinutes = 60
	defaultFactorStandard  = "GHG_PROTOCOL"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress    string
	DatabasePath   string
	LogLevel       string
	SigningSecret  string
	AuthIssuer     string
	FactorCacheTTL time.Duration
	FactorStandard string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("auth.issuer", defaultAuthIssuer)
	configViper.SetDefault("factors.cache_ttl_minutes", defaultCacheTTLMinutes)
	configViper.SetDefault("factors.default_standard", defaultFactorStandard)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		DatabasePath:   configViper.GetString("database.path"),
		LogLevel:       configViper.GetString("log.level"),
		SigningSecret:  configViper.GetString("auth.signing_secret"),
		AuthIssuer:     configViper.GetString("auth.issuer"),
		FactorCacheTTL: time.Duration(configViper.GetInt("factors.cache_ttl_minutes")) * time.Minute,
		FactorStandard: configViper.GetString("factors.default_standard"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.AuthIssuer) == "" {
		return fmt.Errorf("auth.issuer is required")
	}
	if c.FactorCacheTTL < time.Minute {
		return fmt.Errorf("factors.cache_ttl_minutes must be at least 1")
	}
	if strings.TrimSpace(c.FactorStandard) == "" {
		return fmt.Errorf("factors.default_standard is required")
	}
	return nil
}
