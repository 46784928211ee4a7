// Package config loads service configuration from environment variables and
// an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the service needs to run.
type Config struct {
	// BaseURL is the storefront base URL, trailing slash included.
	BaseURL string `mapstructure:"base_url"`

	// Env selects the provider environment: "test" or "prod".
	Env string `mapstructure:"env"`

	// Token is the provider API token.
	Token string `mapstructure:"token"`

	// UX selects "modal" or "redirect" checkout.
	UX string `mapstructure:"ux"`

	// PendingOrderStatus is applied to orders before invoice creation.
	PendingOrderStatus string `mapstructure:"pending_order_status"`

	// ListenAddr is the webhook server bind address.
	ListenAddr string `mapstructure:"listen_addr"`

	// DatabaseURL is the Postgres DSN for the transaction store. Empty
	// selects the in-memory store.
	DatabaseURL string `mapstructure:"database_url"`

	// GatewayTimeout bounds provider API calls.
	GatewayTimeout time.Duration `mapstructure:"gateway_timeout"`

	// DedupTTL bounds the duplicate-delivery window. Zero disables the
	// delivery cache.
	DedupTTL time.Duration `mapstructure:"dedup_ttl"`
}

// Modal reports whether the modal checkout UX is configured.
func (c *Config) Modal() bool {
	return c.UX == "modal"
}

// Load reads configuration from BPCHECKOUT_* environment variables and, when
// path is non-empty, a config file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("bpcheckout")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so AutomaticEnv exposes it to Unmarshal.
	v.SetDefault("base_url", "")
	v.SetDefault("token", "")
	v.SetDefault("database_url", "")
	v.SetDefault("env", "prod")
	v.SetDefault("ux", "redirect")
	v.SetDefault("pending_order_status", "pending")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("gateway_timeout", 30*time.Second)
	v.SetDefault("dedup_ttl", 10*time.Minute)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Token == "" {
		return errors.New("provider token is required")
	}
	if c.BaseURL == "" {
		return errors.New("base url is required")
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	if c.UX != "modal" && c.UX != "redirect" {
		return fmt.Errorf("invalid ux %q: must be modal or redirect", c.UX)
	}
	return nil
}
