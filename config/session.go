package config

import (
	"fmt"
	"strings"
	"time"
)

// Backend selects where visitor session records are persisted.
type Backend string

const (
	BackendRedis    Backend = "redis"
	BackendPostgres Backend = "postgres"
	BackendMemory   Backend = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler so env parsing rejects unknown backends.
func (b *Backend) UnmarshalText(text []byte) error {
	switch v := Backend(strings.ToLower(strings.TrimSpace(string(text)))); v {
	case BackendRedis, BackendPostgres, BackendMemory:
		*b = v
		return nil
	default:
		return fmt.Errorf("invalid session backend %q (valid options: redis, postgres, memory)", string(text))
	}
}

const (
	defaultCookieName    = "session_id"
	defaultKeyPrefix     = "alumni:session:"
	minimumSweepInterval = time.Second
)

// SessionConfig controls visitor identification and session record lifetime.
type SessionConfig struct {
	Backend    Backend `env:"SESSION_BACKEND"     envDefault:"redis"`
	CookieName string  `env:"SESSION_COOKIE_NAME" envDefault:"session_id"`

	// RecordTTL is how long an untouched persisted record survives. It is
	// also the visitor cookie lifetime. Zero keeps records forever.
	RecordTTL time.Duration `env:"SESSION_RECORD_TTL" envDefault:"720h"`

	// IdleTTL is how long a session machine stays in memory without requests.
	IdleTTL       time.Duration `env:"SESSION_IDLE_TTL"       envDefault:"30m"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`

	// RestoreWait bounds how long a request waits for a session to restore
	// before the loading placeholder is served. Zero waits for restore.
	RestoreWait time.Duration `env:"SESSION_RESTORE_WAIT" envDefault:"2s"`

	KeyPrefix string `env:"SESSION_KEY_PREFIX" envDefault:"alumni:session:"`

	// PurgeInterval is how often the janitor deletes expired Postgres records.
	PurgeInterval time.Duration `env:"SESSION_PURGE_INTERVAL" envDefault:"15m"`
}

// Sanitize applies guardrails to session configuration values.
func (c *SessionConfig) Sanitize() {
	if c.Backend == "" {
		c.Backend = BackendRedis
	}
	if c.CookieName = strings.TrimSpace(c.CookieName); c.CookieName == "" {
		c.CookieName = defaultCookieName
	}
	if c.KeyPrefix = strings.TrimSpace(c.KeyPrefix); c.KeyPrefix == "" {
		c.KeyPrefix = defaultKeyPrefix
	}
	if c.RecordTTL < 0 {
		c.RecordTTL = 0
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 30 * time.Minute
	}
	if c.SweepInterval < minimumSweepInterval {
		c.SweepInterval = minimumSweepInterval
	}
	if c.RestoreWait < 0 {
		c.RestoreWait = 0
	}
	if c.PurgeInterval < minimumSweepInterval {
		c.PurgeInterval = 15 * time.Minute
	}
}
