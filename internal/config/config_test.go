package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, 4000, c.Port)
	assert.Equal(t, "", c.DatabaseURL)
	assert.Equal(t, DevSecret, c.JWTSecret)
	assert.Equal(t, 10, c.BcryptCost)
	assert.Equal(t, "", c.GRPCAddr)
	assert.Equal(t, 10*time.Second, c.ShutdownTimeout)
	assert.True(t, c.UsingDevSecret())
	assert.Equal(t, ":4000", c.HTTPAddr())
}

func TestLoadFromEnv(t *testing.T) {
	c, err := Load(nil, env(map[string]string{
		"PORT":             "8080",
		"DATABASE_URL":     "postgres://app@db:5432/dash",
		"PGSSL":            "true",
		"JWT_SECRET":       "s3cret",
		"BCRYPT_COST":      "12",
		"GRPC_ADDR":        ":9090",
		"RATE_LIMIT_BURST": "3",
		"HASH_CONCURRENCY": "4",
	}))
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, "postgres://app@db:5432/dash?sslmode=require", c.DSN())
	assert.Equal(t, 12, c.BcryptCost)
	assert.Equal(t, ":9090", c.GRPCAddr)
	assert.Equal(t, 3, c.RateLimitBurst)
	assert.Equal(t, int64(4), c.HashConcurrency)
	assert.False(t, c.UsingDevSecret())
}

func TestFlagsOverrideEnv(t *testing.T) {
	c, err := Load(
		[]string{"-port", "5000", "-jwt-secret", "from-flag", "-grpc-addr", "127.0.0.1:7000"},
		env(map[string]string{"PORT": "8080", "JWT_SECRET": "from-env"}),
	)
	require.NoError(t, err)

	assert.Equal(t, 5000, c.Port)
	assert.Equal(t, "from-flag", c.JWTSecret)
	assert.Equal(t, "127.0.0.1:7000", c.GRPCAddr)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{name: "non numeric port", env: map[string]string{"PORT": "http"}},
		{name: "port out of range", args: []string{"-port", "70000"}},
		{name: "bcrypt cost too high", env: map[string]string{"BCRYPT_COST": "40"}},
		{name: "empty secret flag", args: []string{"-jwt-secret", " "}},
		{name: "bad grpc addr", env: map[string]string{"GRPC_ADDR": "nonsense"}},
		{name: "zero burst", env: map[string]string{"RATE_LIMIT_BURST": "0"}},
		{name: "bad trusted proxy", env: map[string]string{"TRUSTED_PROXIES": "10.0.0.0/8, proxy.local"}},
		{name: "unknown flag", args: []string{"-verbose"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.args, env(tt.env))
			require.Error(t, err)
		})
	}
}

func TestProxyPrefixes(t *testing.T) {
	c, err := Load([]string{"-trusted-proxies", "10.0.0.0/8, 192.168.1.10 ,::1"}, env(nil))
	require.NoError(t, err)

	prefixes, err := c.ProxyPrefixes()
	require.NoError(t, err)
	require.Len(t, prefixes, 3)
	assert.Equal(t, "10.0.0.0/8", prefixes[0].String())
	assert.Equal(t, "192.168.1.10/32", prefixes[1].String())
	assert.Equal(t, "::1/128", prefixes[2].String())

	var none Config
	none.LoadDefaults()
	prefixes, err = none.ProxyPrefixes()
	require.NoError(t, err)
	assert.Empty(t, prefixes)
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		pgssl bool
		want  string
	}{
		{name: "ssl off", url: "postgres://db/dash", want: "postgres://db/dash"},
		{name: "url without query", url: "postgres://db/dash", pgssl: true, want: "postgres://db/dash?sslmode=require"},
		{name: "url with query", url: "postgres://db/dash?application_name=api", pgssl: true, want: "postgres://db/dash?application_name=api&sslmode=require"},
		{name: "explicit sslmode kept", url: "postgres://db/dash?sslmode=disable", pgssl: true, want: "postgres://db/dash?sslmode=disable"},
		{name: "keyword form", url: "host=db dbname=dash", pgssl: true, want: "host=db dbname=dash sslmode=require"},
		{name: "empty", url: "", pgssl: true, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{DatabaseURL: tt.url, PGSSL: tt.pgssl}
			assert.Equal(t, tt.want, c.DSN())
		})
	}
}
