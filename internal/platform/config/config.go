// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. An optional '.env' file
is loaded first through 'joho/godotenv' for local development.

Usage:

	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (stores, token service, limiter) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// # Store Drivers

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// productionSecretMinLength is the shortest HS256 secret accepted in production.
const productionSecretMinLength = 32

// # Configuration Schema

// Config holds all runtime configuration for the collection API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// StoreDriver selects the account and todo storage ("memory" or "postgres").
	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`

	// Relational Database (PostgreSQL), required by the postgres driver.
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Redis backs the security event stream. Optional.
	RedisURL    string `env:"REDIS_URL"`
	AuditStream string `env:"AUDIT_STREAM" envDefault:"security:events"`

	// Crash reporting. Optional.
	SentryDSN string `env:"SENTRY_DSN"`

	// Token signing: HS256 secret, or an RS256 key pair when both paths are set.
	JWTSecret      string `env:"JWT_SECRET"`
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH"`

	// Token lifetimes
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL"  envDefault:"30m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// Account lockout
	LockoutThreshold int           `env:"LOCKOUT_THRESHOLD" envDefault:"10"`
	LockoutDuration  time.Duration `env:"LOCKOUT_DURATION"  envDefault:"5m"`

	// Password policy
	PasswordMinLength int `env:"PASSWORD_MIN_LENGTH" envDefault:"4"`
	BcryptCost        int `env:"BCRYPT_COST"         envDefault:"8"`

	// Per-route admission ceilings (requests per window per client)
	RateLimitRegister      int `env:"RATE_LIMIT_REGISTER"       envDefault:"5"`
	RateLimitLogin         int `env:"RATE_LIMIT_LOGIN"          envDefault:"10"`
	RateLimitRefresh       int `env:"RATE_LIMIT_REFRESH"        envDefault:"20"`
	RateLimitRead          int `env:"RATE_LIMIT_READ"           envDefault:"120"`
	RateLimitWrite         int `env:"RATE_LIMIT_WRITE"          envDefault:"60"`
	RateLimitWindowMinutes int `env:"RATE_LIMIT_WINDOW_MINUTES" envDefault:"1"`

	// SweepInterval is how often revocations and idle rate limit windows are compacted.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`

	// Bootstrap account created on an empty store. Skipped when the password is empty.
	BootstrapUsername string `env:"BOOTSTRAP_USERNAME" envDefault:"admin"`
	BootstrapPassword string `env:"BOOTSTRAP_PASSWORD"`

	// Cross-Origin Resource Sharing (comma-separated origins)
	ExtraOrigins string `env:"EXTRA_ORIGINS"`

	// TrustedProxyList names the reverse proxies (comma-separated IPs or CIDRs) whose
	// X-Forwarded-For and X-Real-IP headers are honored. Empty trusts no one.
	TrustedProxyList string `env:"TRUSTED_PROXIES"`
}

// # Configuration Loading

// LoadDotEnv loads variables from the given files (default ".env") into the process
// environment. Missing files are ignored and existing variables are never overridden.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}

	for _, filename := range filenames {
		if err := godotenv.Load(filename); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: failed to load %s: %w", filename, err)
		}
	}
	return nil
}

// Load parses environment variables into a validated [Config] struct.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(environment map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(options env.Options) (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	if err := env.ParseWithOptions(cfg, options); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// # Validation

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var problems []string

	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required for the postgres store")
		}
	default:
		problems = append(problems, fmt.Sprintf("STORE_DRIVER must be %q or %q", StoreMemory, StorePostgres))
	}

	if !c.HasKeyPair() {
		if c.JWTSecret == "" {
			problems = append(problems, "JWT_SECRET or JWT_PRIVATE_KEY_PATH/JWT_PUBLIC_KEY_PATH is required")
		} else if c.IsProduction() && len(c.JWTSecret) < productionSecretMinLength {
			problems = append(problems, fmt.Sprintf("JWT_SECRET must be at least %d characters in production", productionSecretMinLength))
		}
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		problems = append(problems, "token TTLs must be positive")
	}
	if c.LockoutThreshold < 1 || c.LockoutDuration <= 0 {
		problems = append(problems, "lockout threshold and duration must be positive")
	}
	if c.RateLimitWindowMinutes < 1 {
		problems = append(problems, "RATE_LIMIT_WINDOW_MINUTES must be at least 1")
	}
	if c.SweepInterval <= 0 {
		problems = append(problems, "SWEEP_INTERVAL must be positive")
	}
	if _, err := c.parseTrustedProxies(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// # Accessors

// HasKeyPair reports whether RS256 signing is configured.
func (c *Config) HasKeyPair() bool {
	return c.JWTPrivKeyPath != "" && c.JWTPubKeyPath != ""
}

// RateLimitWindow returns the admission window as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMinutes) * time.Minute
}

// AllowedOrigins returns the trimmed, non-empty EXTRA_ORIGINS entries.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.ExtraOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// TrustedProxies returns the parsed TRUSTED_PROXIES entries. Single addresses
// become host prefixes. [Config.Validate] has already rejected malformed entries.
func (c *Config) TrustedProxies() []netip.Prefix {
	prefixes, _ := c.parseTrustedProxies()
	return prefixes
}

func (c *Config) parseTrustedProxies() ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, entry := range strings.Split(c.TrustedProxyList, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES entry %q is not a valid CIDR", entry)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES entry %q is not a valid IP", entry)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
