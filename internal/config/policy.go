package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rixian/drive-go/pkg/drive"
)

// BuildPolicies turns the [policy.*] sections into one policy per
// operation. Operations without their own section get a fresh policy built
// from [policy.default], so breaker and limiter state is never shared
// between operations.
//
// Each policy is composed as retry, then breaker, then rate limit, so every
// retried attempt passes through the breaker and waits for a token.
func BuildPolicies(cfg *Config, logger *slog.Logger) (map[string]drive.Policy, error) {
	def, ok := cfg.Policy[DefaultPolicyName]
	if !ok {
		def = DefaultPolicy()
	}

	names := drive.OperationNames()
	policies := make(map[string]drive.Policy, len(names))

	for _, name := range names {
		section := name

		pc, ok := cfg.Policy[name]
		if !ok {
			section, pc = DefaultPolicyName, def
		}

		p, err := buildPolicy(section, name, &pc, logger)
		if err != nil {
			return nil, err
		}

		policies[name] = p
	}

	return policies, nil
}

// buildPolicy builds the policy for operation op from a section; errors name
// the section.
func buildPolicy(section, op string, pc *PolicyConfig, logger *slog.Logger) (drive.Policy, error) {
	initial, err := optionalDuration(pc.InitialBackoff)
	if err != nil {
		return nil, fmt.Errorf("policy.%s.initial_backoff: %w", section, err)
	}

	maxBackoff, err := optionalDuration(pc.MaxBackoff)
	if err != nil {
		return nil, fmt.Errorf("policy.%s.max_backoff: %w", section, err)
	}

	breakerTimeout, err := optionalDuration(pc.BreakerTimeout)
	if err != nil {
		return nil, fmt.Errorf("policy.%s.breaker_timeout: %w", section, err)
	}

	layers := []drive.Policy{
		&drive.RetryPolicy{
			MaxAttempts:     pc.MaxAttempts,
			InitialInterval: initial,
			MaxInterval:     maxBackoff,
			RetryStatuses:   pc.RetryStatuses,
			Logger:          logger,
		},
	}

	if pc.Breaker {
		layers = append(layers, drive.NewBreakerPolicy(drive.BreakerConfig{
			Name:                op,
			ConsecutiveFailures: uint32(pc.BreakerFailures), //nolint:gosec // validated non-negative
			OpenTimeout:         breakerTimeout,
			Logger:              logger,
		}))
	}

	if pc.RateLimit > 0 {
		layers = append(layers, drive.NewRateLimitPolicy(pc.RateLimit, pc.RateBurst))
	}

	return drive.Chain(layers...), nil
}

func optionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	return time.ParseDuration(s)
}
