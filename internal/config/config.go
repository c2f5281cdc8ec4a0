// Package config resolves runtime settings for the API server from defaults,
// then the environment, then command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DevSecret signs tokens when JWT_SECRET is unset. It is public and must not
// be used outside local development.
const DevSecret = "dev-secret-change-me"

// Config holds runtime settings for the API server.
type Config struct {
	Port            int
	DatabaseURL     string
	PGSSL           bool
	JWTSecret       string
	BcryptCost      int
	GRPCAddr        string
	RateLimitPerSec float64
	RateLimitBurst  int
	TrustedProxies  string
	HashConcurrency int64
	ShutdownTimeout time.Duration
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Port = 4000
	c.DatabaseURL = ""
	c.PGSSL = false
	c.JWTSecret = DevSecret
	c.BcryptCost = bcrypt.DefaultCost
	c.GRPCAddr = ""
	c.RateLimitPerSec = 5
	c.RateLimitBurst = 10
	c.HashConcurrency = 0
	c.ShutdownTimeout = 10 * time.Second
}

// Load builds a Config from defaults, the environment read through getenv
// and the given command-line arguments (without the program name).
func Load(args []string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.parseFlags(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	var errs []error
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, parse func(string) error) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		if err := parse(v); err != nil {
			errs = append(errs, fmt.Errorf("config: %s=%q: %w", key, v, err))
		}
	}

	num("PORT", func(v string) (err error) { c.Port, err = strconv.Atoi(v); return })
	str("DATABASE_URL", &c.DatabaseURL)
	num("PGSSL", func(v string) (err error) { c.PGSSL, err = strconv.ParseBool(v); return })
	str("JWT_SECRET", &c.JWTSecret)
	num("BCRYPT_COST", func(v string) (err error) { c.BcryptCost, err = strconv.Atoi(v); return })
	str("GRPC_ADDR", &c.GRPCAddr)
	num("RATE_LIMIT_PER_SEC", func(v string) (err error) { c.RateLimitPerSec, err = strconv.ParseFloat(v, 64); return })
	num("RATE_LIMIT_BURST", func(v string) (err error) { c.RateLimitBurst, err = strconv.Atoi(v); return })
	str("TRUSTED_PROXIES", &c.TrustedProxies)
	num("HASH_CONCURRENCY", func(v string) (err error) { c.HashConcurrency, err = strconv.ParseInt(v, 10, 64); return })
	num("SHUTDOWN_TIMEOUT", func(v string) (err error) { c.ShutdownTimeout, err = time.ParseDuration(v); return })

	return errors.Join(errs...)
}

func (c *Config) parseFlags(args []string) error {
	fs := flag.NewFlagSet("api", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.IntVar(&c.Port, "port", c.Port, "HTTP listen port")
	fs.StringVar(&c.DatabaseURL, "database-url", c.DatabaseURL, "PostgreSQL DSN; empty selects in-memory stores")
	fs.BoolVar(&c.PGSSL, "pgssl", c.PGSSL, "require TLS for PostgreSQL")
	fs.StringVar(&c.JWTSecret, "jwt-secret", c.JWTSecret, "HMAC secret for signing tokens")
	fs.IntVar(&c.BcryptCost, "bcrypt-cost", c.BcryptCost, "bcrypt work factor")
	fs.StringVar(&c.GRPCAddr, "grpc-addr", c.GRPCAddr, "gRPC listen address; empty disables gRPC")
	fs.Float64Var(&c.RateLimitPerSec, "rate-limit-per-sec", c.RateLimitPerSec, "auth requests per second per client")
	fs.IntVar(&c.RateLimitBurst, "rate-limit-burst", c.RateLimitBurst, "auth request burst per client")
	fs.StringVar(&c.TrustedProxies, "trusted-proxies", c.TrustedProxies, "comma-separated proxy IPs or CIDRs allowed to set X-Forwarded-For")
	fs.Int64Var(&c.HashConcurrency, "hash-concurrency", c.HashConcurrency, "max concurrent password hashes; 0 is unbounded")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.ShutdownTimeout, "graceful shutdown deadline")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: port %d out of range", c.Port))
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("config: JWT secret must not be empty"))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("config: bcrypt cost %d out of range [%d,%d]", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.RateLimitPerSec <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("config: rate limit must be positive"))
	}
	if c.HashConcurrency < 0 {
		errs = append(errs, errors.New("config: hash concurrency must not be negative"))
	}
	if c.GRPCAddr != "" {
		if _, _, err := net.SplitHostPort(c.GRPCAddr); err != nil {
			errs = append(errs, fmt.Errorf("config: grpc addr: %w", err))
		}
	}
	if _, err := c.ProxyPrefixes(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ProxyPrefixes parses TrustedProxies. Bare addresses become single-host
// prefixes.
func (c *Config) ProxyPrefixes() ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, field := range strings.Split(c.TrustedProxies, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if strings.Contains(field, "/") {
			p, err := netip.ParsePrefix(field)
			if err != nil {
				return nil, fmt.Errorf("config: trusted proxy %q: %w", field, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(field)
		if err != nil {
			return nil, fmt.Errorf("config: trusted proxy %q: %w", field, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// HTTPAddr is the listen address for the HTTP server.
func (c *Config) HTTPAddr() string {
	return ":" + strconv.Itoa(c.Port)
}

// UsingDevSecret reports whether tokens are signed with the public development secret.
func (c *Config) UsingDevSecret() bool {
	return c.JWTSecret == DevSecret
}

// DSN returns DatabaseURL with sslmode=require added when PGSSL is set and
// the DSN does not choose an sslmode itself.
func (c *Config) DSN() string {
	dsn := c.DatabaseURL
	if dsn == "" || !c.PGSSL || strings.Contains(dsn, "sslmode=") {
		return dsn
	}
	if strings.Contains(dsn, "://") {
		if strings.Contains(dsn, "?") {
			return dsn + "&sslmode=require"
		}
		return dsn + "?sslmode=require"
	}
	return dsn + " sslmode=require"
}
