package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[ServiceMode]bool
		wantErr bool
	}{
		{name: "http", input: "http", want: map[ServiceMode]bool{ServiceModeHTTP: true}},
		{name: "both with spaces", input: " http , janitor ", want: map[ServiceMode]bool{ServiceModeHTTP: true, ServiceModeJanitor: true}},
		{name: "trailing comma", input: "janitor,", want: map[ServiceMode]bool{ServiceModeJanitor: true}},
		{name: "empty", input: "", wantErr: true},
		{name: "only commas", input: ",,", wantErr: true},
		{name: "unknown", input: "http,scheduler", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidServiceModes(t *testing.T) {
	for _, mode := range ValidServiceModes() {
		_, err := ParseServices(string(mode))
		assert.NoError(t, err, mode)
	}
}

func TestAppConfig_Defaults(t *testing.T) {
	t.Setenv("NODE_ENV", "")
	var cfg AppConfig
	require.NoError(t, env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}))
	cfg.Sanitize()

	assert.False(t, cfg.IsDev)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.HTTP.CSRFEnabled)
	assert.Equal(t, BackendRedis, cfg.Session.Backend)
	assert.Equal(t, "session_id", cfg.Session.CookieName)
	assert.Equal(t, 720*time.Hour, cfg.Session.RecordTTL)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, "alumni:session:", cfg.Session.KeyPrefix)
	assert.Equal(t, 10*time.Second, cfg.Profile.Timeout)
	assert.False(t, cfg.Profile.IsConfigured())
	assert.True(t, cfg.Postgres.EnsureSchema)
	assert.Equal(t, "alumni", cfg.Observability.Metrics.Prefix)
	assert.True(t, cfg.IsHTTPServerEnabled())
	assert.False(t, cfg.IsJanitorEnabled())
	assert.True(t, cfg.NeedsRedis())
	assert.False(t, cfg.NeedsPostgres())
}

func TestAppConfig_ParsesEnvironment(t *testing.T) {
	var cfg AppConfig
	err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{
		"DEV":                       "true",
		"SESSION_BACKEND":           "Postgres",
		"SESSION_RECORD_TTL":        "24h",
		"SERVICES":                  "http,janitor",
		"DB_HOST":                   "db.internal",
		"DB_ENSURE_SCHEMA":          "false",
		"REDIS_DB":                  "3",
		"PROFILE_API_BASE_URL":      "https://api.example.edu/",
		"PROFILE_API_TOKEN":         " secret ",
		"PROFILE_API_RESPONSE_PATH": "data.user",
		"HTTP_COMPRESSION_LEVEL":    "12",
	}})
	require.NoError(t, err)
	cfg.Sanitize()

	assert.True(t, cfg.IsDev)
	assert.Equal(t, BackendPostgres, cfg.Session.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Session.RecordTTL)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.False(t, cfg.Postgres.EnsureSchema)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "https://api.example.edu", cfg.Profile.BaseURL)
	assert.Equal(t, "secret", cfg.Profile.Token)
	assert.Equal(t, "data.user", cfg.Profile.ResponsePath)
	assert.Equal(t, 9, cfg.HTTP.CompressionLevel)
	assert.True(t, cfg.IsJanitorEnabled())
	assert.True(t, cfg.NeedsPostgres())
}

func TestAppConfig_RejectsUnknownBackend(t *testing.T) {
	var cfg AppConfig
	err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{"SESSION_BACKEND": "sqlite"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session backend")
}

func TestAppConfig_DetectsNodeEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	var cfg AppConfig
	cfg.Sanitize()
	assert.True(t, cfg.IsDev)
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	low := HTTPConfig{CompressionLevel: 0, CompressionMinSize: -5}
	low.Sanitize()
	assert.Equal(t, 1, low.CompressionLevel)
	assert.Zero(t, low.CompressionMinSize)

	high := HTTPConfig{CompressionLevel: 99}
	high.Sanitize()
	assert.Equal(t, 9, high.CompressionLevel)
}

func TestSessionConfig_Sanitize(t *testing.T) {
	cfg := SessionConfig{
		CookieName:    "  ",
		RecordTTL:     -time.Hour,
		IdleTTL:       0,
		SweepInterval: time.Millisecond,
		RestoreWait:   -time.Second,
	}
	cfg.Sanitize()

	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.Equal(t, "session_id", cfg.CookieName)
	assert.Equal(t, "alumni:session:", cfg.KeyPrefix)
	assert.Zero(t, cfg.RecordTTL)
	assert.Equal(t, 30*time.Minute, cfg.IdleTTL)
	assert.Equal(t, time.Second, cfg.SweepInterval)
	assert.Zero(t, cfg.RestoreWait)
	assert.Equal(t, 15*time.Minute, cfg.PurgeInterval)
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "  ", Prefix: ".custom."}
	cfg.Sanitize()
	assert.False(t, cfg.IsEnabled())
	assert.Equal(t, "custom", cfg.Prefix)

	cfg = ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "statsd:8125"}
	cfg.Sanitize()
	assert.True(t, cfg.IsEnabled())
	assert.Equal(t, "alumni", cfg.Prefix)
}

func TestHTTPConfig_ValidateCookieDomain(t *testing.T) {
	tests := []struct {
		domain  string
		wantErr bool
	}{
		{domain: ""},
		{domain: "localhost"},
		{domain: "alumni.example.edu"},
		{domain: ".example.com"},
		{domain: "co.uk", wantErr: true},
		{domain: "com", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			cfg := HTTPConfig{CookieDomain: tt.domain}
			cfg.Sanitize()
			err := cfg.ValidateCookieDomain()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
