package config

import (
	"fmt"
	"io"
	"maps"

	"github.com/BurntSushi/toml"
)

const redacted = "<redacted>"

// Redacted returns a copy of cfg with secrets replaced by a placeholder.
func Redacted(cfg *Config) *Config {
	out := *cfg
	out.Policy = maps.Clone(cfg.Policy)
	out.Auth.Scopes = append([]string(nil), cfg.Auth.Scopes...)

	if out.API.APIKey != "" {
		out.API.APIKey = redacted
	}

	if out.Auth.ClientSecret != "" {
		out.Auth.ClientSecret = redacted
	}

	return &out
}

// RenderEffective writes the resolved configuration as TOML to w. Secrets
// are replaced by a placeholder.
func RenderEffective(cfg *Config, w io.Writer) error {
	if _, err := fmt.Fprintln(w, "# Effective configuration"); err != nil {
		return err
	}

	if err := toml.NewEncoder(w).Encode(Redacted(cfg)); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return nil
}
