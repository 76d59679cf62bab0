package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/rixian/drive-go/pkg/drive"
)

// Validation range constants.
const (
	maxAttemptsLimit  = 10
	minRequestTimeout = 1 * time.Second
	minStatusCode     = 100
	maxStatusCode     = 599
)

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"auto": true, "text": true, "json": true}
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateAPI(&cfg.API)...)
	errs = append(errs, validateAuth(&cfg.Auth)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	for name, pc := range cfg.Policy {
		errs = append(errs, validatePolicy(name, &pc)...)
	}

	return errors.Join(errs...)
}

// ValidateResolved checks constraints on the merged result of all override
// layers. Values from the environment or flags are checked again here.
func ValidateResolved(cfg *Config) error {
	var errs []error

	errs = append(errs, validateAPI(&cfg.API)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if cfg.Auth.TokenURL != "" {
		if cfg.Auth.ClientID == "" {
			errs = append(errs, errors.New("auth.client_id: required when auth.token_url is set"))
		}

		if cfg.Auth.ClientSecret == "" {
			errs = append(errs, errors.New("auth.client_secret: required when auth.token_url is set"))
		}
	}

	return errors.Join(errs...)
}

func validateAPI(a *APIConfig) []error {
	var errs []error

	if a.URL != "" {
		if err := validateHTTPURL(a.URL); err != nil {
			errs = append(errs, fmt.Errorf("api.url: %w", err))
		}
	}

	if a.TenantID != "" {
		if _, err := uuid.Parse(a.TenantID); err != nil {
			errs = append(errs, fmt.Errorf("api.tenant_id: %w", err))
		}
	}

	if a.APIVersion == "" {
		errs = append(errs, errors.New("api.api_version: must not be empty"))
	}

	return errs
}

func validateAuth(a *AuthConfig) []error {
	if a.TokenURL == "" {
		return nil
	}

	if err := validateHTTPURL(a.TokenURL); err != nil {
		return []error{fmt.Errorf("auth.token_url: %w", err)}
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an absolute http(s) URL, got %q", raw)
	}

	return nil
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	if err := validateDurationMin(n.RequestTimeout, minRequestTimeout); err != nil {
		errs = append(errs, fmt.Errorf("network.request_timeout: %w", err))
	}

	if _, err := drive.ParseTLSVersion(n.MinTLSVersion); err != nil {
		errs = append(errs, fmt.Errorf("network.min_tls_version: %w", err))
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("logging.log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf("logging.log_format: must be one of auto, text, json; got %q", l.LogFormat))
	}

	return errs
}

func validatePolicy(name string, p *PolicyConfig) []error {
	var errs []error

	section := "policy." + name

	if name != DefaultPolicyName {
		if _, ok := drive.LookupOperation(name); !ok {
			msg := fmt.Sprintf("[%s]: unknown operation %q", section, name)
			if s := closestMatch(name, drive.OperationNames()); s != "" {
				msg += fmt.Sprintf("; did you mean %q?", s)
			}

			errs = append(errs, errors.New(msg))
		}
	}

	if p.MaxAttempts < 0 || p.MaxAttempts > maxAttemptsLimit {
		errs = append(errs, fmt.Errorf("%s.max_attempts: must be between 0 and %d, got %d",
			section, maxAttemptsLimit, p.MaxAttempts))
	}

	for key, v := range map[string]string{
		"initial_backoff": p.InitialBackoff,
		"max_backoff":     p.MaxBackoff,
		"breaker_timeout": p.BreakerTimeout,
	} {
		if v == "" {
			continue
		}

		if err := validateDurationMin(v, 0); err != nil {
			errs = append(errs, fmt.Errorf("%s.%s: %w", section, key, err))
		}
	}

	for _, code := range p.RetryStatuses {
		if code < minStatusCode || code > maxStatusCode {
			errs = append(errs, fmt.Errorf("%s.retry_statuses: %d is not an HTTP status", section, code))
		}
	}

	if p.BreakerFailures < 0 {
		errs = append(errs, fmt.Errorf("%s.breaker_failures: must not be negative", section))
	}

	if p.RateLimit < 0 || p.RateBurst < 0 {
		errs = append(errs, fmt.Errorf("%s: rate_limit and rate_burst must not be negative", section))
	}

	return errs
}

func validateDurationMin(s string, lowest time.Duration) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	if d < lowest {
		return fmt.Errorf("must be at least %s, got %s", lowest, d)
	}

	return nil
}
