package config

import "github.com/rixian/drive-go/pkg/drive"

// Default values for configuration options. These represent the "layer 0"
// of the four-layer override chain.
const (
	defaultRequestTimeout = "100s"
	defaultMinTLSVersion  = "1.2"
	defaultLogLevel       = "info"
	defaultLogFormat      = "auto"
	defaultInitialBackoff = "500ms"
	defaultMaxBackoff     = "30s"
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		API:     defaultAPIConfig(),
		Network: defaultNetworkConfig(),
		Logging: defaultLoggingConfig(),
		Policy: map[string]PolicyConfig{
			DefaultPolicyName: DefaultPolicy(),
		},
	}
}

func defaultAPIConfig() APIConfig {
	return APIConfig{
		APIVersion:   drive.DefaultAPIVersion,
		APIKeyHeader: drive.DefaultAPIKeyHeader,
	}
}

func defaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		RequestTimeout: defaultRequestTimeout,
		MinTLSVersion:  defaultMinTLSVersion,
		UserAgent:      drive.DefaultUserAgent,
	}
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}

// DefaultPolicy is the policy used when the config file has no
// [policy.default] section: retries with exponential backoff, no breaker
// and no rate limit.
func DefaultPolicy() PolicyConfig {
	return PolicyConfig{
		MaxAttempts:    drive.DefaultMaxAttempts,
		InitialBackoff: defaultInitialBackoff,
		MaxBackoff:     defaultMaxBackoff,
	}
}
