package drive

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
)

// TokenSource provides bearer tokens. Implementations must be safe for
// concurrent use.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a fixed bearer token.
type StaticToken string

// Token returns the token, or an error if it is empty.
func (s StaticToken) Token() (string, error) {
	if s == "" {
		return "", errors.New("drive: static token is empty")
	}

	return string(s), nil
}

// OAuth2TokenSource adapts an oauth2.TokenSource. Wrap src in
// oauth2.ReuseTokenSource to cache tokens until they expire.
func OAuth2TokenSource(src oauth2.TokenSource, logger *slog.Logger) TokenSource {
	if logger == nil {
		logger = slog.Default()
	}

	return &tokenBridge{src: src, logger: logger}
}

type tokenBridge struct {
	src    oauth2.TokenSource
	logger *slog.Logger
}

func (b *tokenBridge) Token() (string, error) {
	t, err := b.src.Token()
	if err != nil {
		b.logger.Warn("token acquisition failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("drive: obtaining token: %w", err)
	}

	return t.AccessToken, nil
}
