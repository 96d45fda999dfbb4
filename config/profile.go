package config

import (
	"strings"
	"time"
)

// ProfileAPIConfig configures the profile lookup used after a profile is completed.
type ProfileAPIConfig struct {
	// BaseURL is the API origin, e.g. https://api.example.edu. Required.
	BaseURL string `env:"BASE_URL"`
	// Token is sent as a bearer token when set.
	Token   string        `env:"TOKEN"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
	// ResponsePath is a JMESPath expression selecting the record inside a
	// response envelope, e.g. "data.user". Empty means the body is the record.
	ResponsePath string `env:"RESPONSE_PATH"`
}

// Sanitize trims values and enforces a positive timeout.
func (c *ProfileAPIConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.Token = strings.TrimSpace(c.Token)
	c.ResponsePath = strings.TrimSpace(c.ResponsePath)
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

// IsConfigured reports whether a profile API base URL is present.
func (c *ProfileAPIConfig) IsConfigured() bool {
	return c.BaseURL != ""
}
