package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"relative api url", func(c *Config) { c.API.URL = "/api" }, "api.url"},
		{"ftp api url", func(c *Config) { c.API.URL = "ftp://drive.example.com" }, "api.url"},
		{"bad tenant", func(c *Config) { c.API.TenantID = "acme" }, "api.tenant_id"},
		{"empty api version", func(c *Config) { c.API.APIVersion = "" }, "api.api_version"},
		{"bad token url", func(c *Config) { c.Auth.TokenURL = "login" }, "auth.token_url"},
		{"bad timeout", func(c *Config) { c.Network.RequestTimeout = "soon" }, "network.request_timeout"},
		{"short timeout", func(c *Config) { c.Network.RequestTimeout = "10ms" }, "at least 1s"},
		{"old tls", func(c *Config) { c.Network.MinTLSVersion = "1.0" }, "network.min_tls_version"},
		{"bad level", func(c *Config) { c.Logging.LogLevel = "trace" }, "logging.log_level"},
		{"bad format", func(c *Config) { c.Logging.LogFormat = "xml" }, "logging.log_format"},
		{"too many attempts", func(c *Config) {
			c.Policy[DefaultPolicyName] = PolicyConfig{MaxAttempts: 50}
		}, "policy.default.max_attempts"},
		{"bad backoff", func(c *Config) {
			c.Policy["Move"] = PolicyConfig{InitialBackoff: "fast"}
		}, "policy.Move.initial_backoff"},
		{"bad status", func(c *Config) {
			c.Policy["Move"] = PolicyConfig{RetryStatuses: []int{42}}
		}, "policy.Move.retry_statuses"},
		{"negative breaker", func(c *Config) {
			c.Policy["Move"] = PolicyConfig{BreakerFailures: -1}
		}, "policy.Move.breaker_failures"},
		{"negative rate", func(c *Config) {
			c.Policy["Move"] = PolicyConfig{RateLimit: -1}
		}, "rate_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_AccumulatesAll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.URL = "nope"
	cfg.Logging.LogFormat = "xml"
	cfg.Network.MinTLSVersion = "1.1"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.url")
	assert.Contains(t, err.Error(), "logging.log_format")
	assert.Contains(t, err.Error(), "network.min_tls_version")
}

func TestValidate_AllOperationPolicyNames(t *testing.T) {
	cfg := DefaultConfig()
	for _, name := range []string{"DownloadContent", "UpsertFileMetadata", "ListPartitions"} {
		cfg.Policy[name] = PolicyConfig{MaxAttempts: 1}
	}

	assert.NoError(t, Validate(cfg))
}

func TestValidateResolved_AuthNeedsClient(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Auth.TokenURL = "https://login.example.com/token"

	err := ValidateResolved(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.client_id")
	assert.Contains(t, err.Error(), "auth.client_secret")

	cfg.Auth.ClientID = "cid"
	cfg.Auth.ClientSecret = "secret"
	assert.NoError(t, ValidateResolved(cfg))
}
