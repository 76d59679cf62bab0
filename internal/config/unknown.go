package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownSectionKeys lists the valid keys inside each fixed section.
var knownSectionKeys = map[string][]string{
	"api":     {"api_key", "api_key_header", "api_version", "tenant_id", "url"},
	"auth":    {"client_id", "client_secret", "scopes", "token_file", "token_url"},
	"network": {"min_tls_version", "request_timeout", "user_agent"},
	"logging": {"log_format", "log_level"},
}

// knownPolicyKeys are the valid keys inside any [policy.<name>] section.
var knownPolicyKeys = []string{
	"breaker", "breaker_failures", "breaker_timeout", "initial_backoff", "max_attempts",
	"max_backoff", "rate_burst", "rate_limit", "retry_statuses",
}

// knownSections is the sorted list of top-level tables.
var knownSections = func() []string {
	keys := make([]string, 0, len(knownSectionKeys)+1)
	for k := range knownSectionKeys {
		keys = append(keys, k)
	}

	keys = append(keys, "policy")
	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key. Children
// of a key that was already reported are skipped.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	reported := make(map[string]bool)

	for _, key := range md.Undecoded() {
		if _, known := knownSectionKeys[key[0]]; !known && key[0] != "policy" {
			key = key[:1]
		}

		if reported[key.String()] || hasReportedParent(key, reported) {
			continue
		}

		reported[key.String()] = true

		errs = append(errs, unknownKeyError(key))
	}

	return errors.Join(errs...)
}

func hasReportedParent(key toml.Key, reported map[string]bool) bool {
	for i := 1; i < len(key); i++ {
		if reported[strings.Join(key[:i], ".")] {
			return true
		}
	}

	return false
}

// unknownKeyError describes one undecoded key, suggesting the closest valid
// key for its position.
func unknownKeyError(key toml.Key) error {
	switch {
	case len(key) == 1:
		return withSuggestion(fmt.Sprintf("unknown config key %q", key[0]), key[0], knownSections)
	case key[0] == "policy" && len(key) >= 3:
		return withSuggestion(fmt.Sprintf("unknown key %q in [policy.%s]", key[2], key[1]), key[2], knownPolicyKeys)
	case key[0] == "policy":
		return fmt.Errorf("policy.%s: must be a table", key[1])
	}

	return withSuggestion(fmt.Sprintf("unknown key %q in [%s]", key[1], key[0]), key[1], knownSectionKeys[key[0]])
}

func withSuggestion(msg, unknown string, known []string) error {
	if s := closestMatch(unknown, known); s != "" {
		return fmt.Errorf("%s; did you mean %q?", msg, s)
	}

	return errors.New(msg)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
