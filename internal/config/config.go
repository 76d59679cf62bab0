// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for drive-go. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags).
// Per-operation policy sections completely replace the default policy
// section; individual fields are not merged.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	API     APIConfig               `toml:"api"`
	Auth    AuthConfig              `toml:"auth"`
	Network NetworkConfig           `toml:"network"`
	Logging LoggingConfig           `toml:"logging"`
	Policy  map[string]PolicyConfig `toml:"policy"`
}

// APIConfig locates the Drive service and the tenant calls act for.
type APIConfig struct {
	URL          string `toml:"url"`
	APIVersion   string `toml:"api_version"`
	APIKey       string `toml:"api_key"`
	APIKeyHeader string `toml:"api_key_header"`
	TenantID     string `toml:"tenant_id"`
}

// AuthConfig holds OAuth2 client-credentials settings. An empty TokenURL
// means the client sends no bearer token and relies on the API key alone.
type AuthConfig struct {
	TokenURL     string   `toml:"token_url"`
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	Scopes       []string `toml:"scopes"`
	TokenFile    string   `toml:"token_file"`
}

// NetworkConfig controls HTTP client behavior.
type NetworkConfig struct {
	RequestTimeout string `toml:"request_timeout"`
	MinTLSVersion  string `toml:"min_tls_version"`
	UserAgent      string `toml:"user_agent"`
}

// LoggingConfig controls log output: level and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// PolicyConfig describes the send policy for one operation, or for all
// operations when stored under DefaultPolicyName. Zero values take the
// client library defaults.
type PolicyConfig struct {
	MaxAttempts     int     `toml:"max_attempts"`
	InitialBackoff  string  `toml:"initial_backoff"`
	MaxBackoff      string  `toml:"max_backoff"`
	RetryStatuses   []int   `toml:"retry_statuses"`
	Breaker         bool    `toml:"breaker"`
	BreakerFailures int     `toml:"breaker_failures"`
	BreakerTimeout  string  `toml:"breaker_timeout"`
	RateLimit       float64 `toml:"rate_limit"`
	RateBurst       int     `toml:"rate_burst"`
}

// DefaultPolicyName is the policy section applied to operations without
// their own section.
const DefaultPolicyName = "default"

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value".
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	TenantID   *string // --tenant flag
	LogLevel   *string // derived from --verbose / --quiet
}
