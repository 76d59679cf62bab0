package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix shared by all environment overrides.
const EnvPrefix = "DRIVE_GO"

// EnvOverrides holds values derived from environment variables. Empty
// fields were not set.
type EnvOverrides struct {
	ConfigPath   string `envconfig:"CONFIG"`
	APIURL       string `envconfig:"API_URL"`
	APIKey       string `envconfig:"API_KEY"`
	TenantID     string `envconfig:"TENANT_ID"`
	ClientID     string `envconfig:"CLIENT_ID"`
	ClientSecret string `envconfig:"CLIENT_SECRET"`
	LogLevel     string `envconfig:"LOG_LEVEL"`
}

// ReadEnvOverrides reads DRIVE_GO_* environment variables.
// This does not modify the Config; Resolve applies the fields.
func ReadEnvOverrides() (EnvOverrides, error) {
	var env EnvOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return EnvOverrides{}, fmt.Errorf("reading environment: %w", err)
	}

	return env, nil
}

// apply copies every set field onto cfg.
func (e EnvOverrides) apply(cfg *Config) {
	setIf(&cfg.API.URL, e.APIURL)
	setIf(&cfg.API.APIKey, e.APIKey)
	setIf(&cfg.API.TenantID, e.TenantID)
	setIf(&cfg.Auth.ClientID, e.ClientID)
	setIf(&cfg.Auth.ClientSecret, e.ClientSecret)
	setIf(&cfg.Logging.LogLevel, e.LogLevel)
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
