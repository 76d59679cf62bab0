package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeTestConfig(t, `
[api]
url = "https://drive.example.com/api"
api_version = "2020-01-01"
api_key = "k"
api_key_header = "X-Api-Key"
tenant_id = "6f1c2b3a-4d5e-4f60-8a7b-9c0d1e2f3a4b"

[auth]
token_url = "https://login.example.com/token"
client_id = "cid"
client_secret = "secret"
scopes = ["drive.read", "drive.write"]
token_file = "/tmp/drive-token.json"

[network]
request_timeout = "30s"
min_tls_version = "1.3"
user_agent = "custom/1.0"

[logging]
log_level = "debug"
log_format = "json"

[policy.default]
max_attempts = 5
initial_backoff = "1s"
max_backoff = "1m"
retry_statuses = [429, 503]

[policy.DownloadContent]
max_attempts = 1
breaker = true
breaker_failures = 3
breaker_timeout = "10s"
rate_limit = 5.5
rate_burst = 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://drive.example.com/api", cfg.API.URL)
	assert.Equal(t, "2020-01-01", cfg.API.APIVersion)
	assert.Equal(t, "X-Api-Key", cfg.API.APIKeyHeader)
	assert.Equal(t, []string{"drive.read", "drive.write"}, cfg.Auth.Scopes)
	assert.Equal(t, "30s", cfg.Network.RequestTimeout)
	assert.Equal(t, "1.3", cfg.Network.MinTLSVersion)
	assert.Equal(t, "json", cfg.Logging.LogFormat)

	require.Len(t, cfg.Policy, 2)
	assert.Equal(t, 5, cfg.Policy[DefaultPolicyName].MaxAttempts)
	assert.Equal(t, []int{429, 503}, cfg.Policy[DefaultPolicyName].RetryStatuses)

	dl := cfg.Policy["DownloadContent"]
	assert.Equal(t, 1, dl.MaxAttempts)
	assert.True(t, dl.Breaker)
	assert.Equal(t, 3, dl.BreakerFailures)
	assert.InDelta(t, 5.5, dl.RateLimit, 0)
	assert.Empty(t, dl.InitialBackoff, "operation sections replace the default section")
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	path := writeTestConfig(t, "[api]\nurl = \"https://drive.example.com\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://drive.example.com", cfg.API.URL)
	assert.Equal(t, "Subscription-Key", cfg.API.APIKeyHeader)
	assert.Equal(t, "100s", cfg.Network.RequestTimeout)
	assert.Contains(t, cfg.Policy, DefaultPolicyName)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeTestConfig(t, "[api\nurl = ")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_ValidationErrorsAccumulate(t *testing.T) {
	path := writeTestConfig(t, `
[api]
url = "not a url"

[logging]
log_level = "verbose"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.url")
	assert.Contains(t, err.Error(), "logging.log_level")
}

func TestLoadOrDefault_Missing(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolve_Precedence(t *testing.T) {
	path := writeTestConfig(t, `
[api]
url = "https://file.example.com"
tenant_id = "6f1c2b3a-4d5e-4f60-8a7b-9c0d1e2f3a4b"

[logging]
log_level = "warn"
`)

	cliTenant := "0a1b2c3d-4e5f-4a6b-8c7d-8e9f0a1b2c3d"
	cliLevel := "debug"

	cfg, err := Resolve(
		EnvOverrides{APIURL: "https://env.example.com", TenantID: "11111111-2222-4333-8444-555555555555"},
		CLIOverrides{ConfigPath: path, TenantID: &cliTenant, LogLevel: &cliLevel},
	)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.API.URL)
	assert.Equal(t, cliTenant, cfg.API.TenantID)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
}

func TestResolve_EnvConfigPath(t *testing.T) {
	path := writeTestConfig(t, "[api]\napi_key = \"from-file\"\n")

	cfg, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.API.APIKey)
}

func TestResolve_TokenFileDefaultsWhenAuthConfigured(t *testing.T) {
	path := writeTestConfig(t, `
[auth]
token_url = "https://login.example.com/token"
client_id = "cid"
`)

	cfg, err := Resolve(EnvOverrides{ClientSecret: "from-env"}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.ClientSecret)
	assert.Equal(t, DefaultTokenPath(), cfg.Auth.TokenFile)
}

func TestResolve_MissingSecret(t *testing.T) {
	path := writeTestConfig(t, `
[auth]
token_url = "https://login.example.com/token"
client_id = "cid"
`)

	_, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.client_secret")
}

func TestResolve_BadTenantFromFlag(t *testing.T) {
	bad := "tenant-one"

	_, err := Resolve(EnvOverrides{}, CLIOverrides{
		ConfigPath: filepath.Join(t.TempDir(), "none.toml"),
		TenantID:   &bad,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.tenant_id")
}
