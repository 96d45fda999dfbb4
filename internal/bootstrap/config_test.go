package bootstrap

import (
	"testing"

	"github.com/akmalstorm/stdcalumni/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateServiceConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.AppConfig)
		wantErr string
	}{
		{name: "dev without profile api", mutate: func(c *config.AppConfig) { c.IsDev = true }},
		{
			name:    "production requires profile api",
			mutate:  func(*config.AppConfig) {},
			wantErr: "PROFILE_API_BASE_URL",
		},
		{
			name:   "production with profile api",
			mutate: func(c *config.AppConfig) { c.Profile.BaseURL = "https://api.example.edu" },
		},
		{
			name: "janitor needs postgres",
			mutate: func(c *config.AppConfig) {
				c.IsDev = true
				c.Services = "http,janitor"
			},
			wantErr: "janitor",
		},
		{
			name: "janitor alone skips profile check",
			mutate: func(c *config.AppConfig) {
				c.Services = "janitor"
				c.Session.Backend = config.BackendPostgres
			},
		},
		{
			name: "public suffix cookie domain",
			mutate: func(c *config.AppConfig) {
				c.IsDev = true
				c.HTTP.CookieDomain = "co.uk"
			},
			wantErr: "APP_COOKIE_DOMAIN",
		},
		{
			name:    "unknown service",
			mutate:  func(c *config.AppConfig) { c.Services = "worker" },
			wantErr: "invalid service configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig("http")
			tt.mutate(cfg)

			err := ValidateServiceConfig(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateServiceConfig_Nil(t *testing.T) {
	require.Error(t, ValidateServiceConfig(nil))
}

func TestGetEnabledServices_Sorted(t *testing.T) {
	cfg := &config.AppConfig{Services: "janitor, http"}
	assert.Equal(t, []string{"http", "janitor"}, GetEnabledServices(cfg))
	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "bogus"}))
	assert.Empty(t, GetEnabledServices(nil))
}
