package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - session.go: Session backend and lifetime configuration
//   - database.go: Postgres and Redis configuration
//   - http.go: HTTP server configuration
//   - profile.go: Profile lookup API configuration
//   - services.go: Service mode configuration
type AppConfig struct {
	// IsDev controls development mode behavior (templates from disk, no asset caching).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Session SessionConfig

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP HTTPConfig

	Profile ProfileAPIConfig `envPrefix:"PROFILE_API_"`

	// Services is a comma-delimited list of service modes to run.
	Services string `env:"SERVICES" envDefault:"http"`

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Session.Sanitize()
	c.Profile.Sanitize()
	c.Observability.Sanitize()

	c.detectDevMode()
}

// detectDevMode falls back to NODE_ENV when DEV is unset.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}

// IsJanitorEnabled returns true if the expired-record janitor should run.
// It only has work to do on the postgres backend.
func (c *AppConfig) IsJanitorEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeJanitor] && c.Session.Backend == BackendPostgres
}

// NeedsPostgres reports whether a database connection is required.
func (c *AppConfig) NeedsPostgres() bool {
	return c.Session.Backend == BackendPostgres
}

// NeedsRedis reports whether a Redis connection is required.
func (c *AppConfig) NeedsRedis() bool {
	return c.Session.Backend == BackendRedis
}
