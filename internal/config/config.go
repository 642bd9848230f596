// Package config loads all process configuration once, at startup, into an
// immutable value that is passed explicitly to each component. Business
// logic never reads the environment directly, so tests can inject fake
// credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Namecheap holds domain registry credentials.
type Namecheap struct {
	APIUser  string
	APIKey   string
	ClientIP string
	Sandbox  bool
}

// WHM holds hosting control-panel credentials.
type WHM struct {
	Host     string
	Username string
	APIToken string
}

// Stripe holds payment provider credentials.
type Stripe struct {
	SecretKey     string
	WebhookSecret string
}

// Config is the full, immutable process configuration.
type Config struct {
	Port            string
	DatabasePath    string
	ProviderTimeout time.Duration

	Namecheap Namecheap
	WHM       WHM
	Stripe    Stripe
}

// Load reads configuration from the environment with development defaults
// for everything except credentials, which have no default.
func Load() Config {
	return Config{
		Port:            envOrDefault("PORT", "8080"),
		DatabasePath:    envOrDefault("DATABASE_PATH", "orderflow.db"),
		ProviderTimeout: envDurationOrDefault("PROVIDER_TIMEOUT", 30*time.Second),
		Namecheap: Namecheap{
			APIUser:  os.Getenv("NAMECHEAP_USERNAME"),
			APIKey:   os.Getenv("NAMECHEAP_API_KEY"),
			ClientIP: os.Getenv("NAMECHEAP_CLIENT_IP"),
			Sandbox:  os.Getenv("NAMECHEAP_SANDBOX") == "true",
		},
		WHM: WHM{
			Host:     os.Getenv("WHM_HOST"),
			Username: os.Getenv("WHM_USERNAME"),
			APIToken: os.Getenv("WHM_API_TOKEN"),
		},
		Stripe: Stripe{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		},
	}
}

// Validate reports every missing credential at once. A service started
// without provider credentials would fail closed on its first request, so
// refuse to start instead.
func (c Config) Validate() error {
	var missing []string

	for _, v := range []struct{ name, value string }{
		{"NAMECHEAP_USERNAME", c.Namecheap.APIUser},
		{"NAMECHEAP_API_KEY", c.Namecheap.APIKey},
		{"NAMECHEAP_CLIENT_IP", c.Namecheap.ClientIP},
		{"WHM_HOST", c.WHM.Host},
		{"WHM_USERNAME", c.WHM.Username},
		{"WHM_API_TOKEN", c.WHM.APIToken},
		{"STRIPE_SECRET_KEY", c.Stripe.SecretKey},
		{"STRIPE_WEBHOOK_SECRET", c.Stripe.WebhookSecret},
	} {
		if v.value == "" {
			missing = append(missing, v.name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %v", missing)
	}
	if c.ProviderTimeout <= 0 {
		return errors.New("provider timeout must be positive")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOrDefault(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
