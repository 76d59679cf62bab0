// Package auth obtains bearer tokens for the Drive API with the OAuth2
// client-credentials grant and caches them on disk between runs.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/rixian/drive-go/internal/tokenfile"
	"github.com/rixian/drive-go/pkg/drive"
)

// ErrNoCredentials is returned when no token endpoint or client is configured.
var ErrNoCredentials = errors.New("auth: client credentials not configured")

// Credentials identify the client to the token endpoint.
type Credentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

func (c Credentials) validate() error {
	if c.TokenURL == "" || c.ClientID == "" || c.ClientSecret == "" {
		return ErrNoCredentials
	}

	return nil
}

func (c Credentials) config() *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
}

func (c Credentials) meta() map[string]string {
	return map[string]string{
		tokenfile.MetaClientID: c.ClientID,
		tokenfile.MetaTokenURL: c.TokenURL,
	}
}

// Login fetches a fresh token and saves it at tokenPath.
func Login(ctx context.Context, creds Credentials, tokenPath string, logger *slog.Logger) (*oauth2.Token, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}

	logger.Info("requesting client credentials token",
		slog.String("token_url", creds.TokenURL),
		slog.String("client_id", creds.ClientID),
	)

	tok, err := creds.config().Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: token request failed: %w", err)
	}

	if err := tokenfile.Save(tokenPath, tok, creds.meta()); err != nil {
		return nil, fmt.Errorf("auth: saving token: %w", err)
	}

	logger.Info("login successful",
		slog.String("path", tokenPath),
		slog.Time("expiry", tok.Expiry),
	)

	return tok, nil
}

// TokenSource returns a drive.TokenSource that serves the cached token
// until it expires, then fetches and persists a new one. A cached token
// issued to a different client or endpoint is ignored.
//
// ctx is used for every token request and must outlive the source.
func TokenSource(ctx context.Context, creds Credentials, tokenPath string, logger *slog.Logger) (drive.TokenSource, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}

	cached, meta, err := tokenfile.Load(tokenPath)
	if err != nil {
		logger.Warn("ignoring unreadable token cache",
			slog.String("path", tokenPath),
			slog.String("error", err.Error()),
		)

		cached = nil
	}

	if cached != nil && !sameClient(meta, creds) {
		logger.Info("token cache belongs to another client, ignoring", slog.String("path", tokenPath))

		cached = nil
	}

	if cached != nil {
		logger.Debug("loaded cached token",
			slog.String("path", tokenPath),
			slog.Time("expiry", cached.Expiry),
			slog.Bool("expired", !cached.Expiry.IsZero() && cached.Expiry.Before(time.Now())),
		)
	}

	src := &persistingSource{
		src:    creds.config().TokenSource(ctx),
		path:   tokenPath,
		meta:   creds.meta(),
		logger: logger,
	}

	return drive.OAuth2TokenSource(oauth2.ReuseTokenSource(cached, src), logger), nil
}

func sameClient(meta map[string]string, creds Credentials) bool {
	return meta[tokenfile.MetaClientID] == creds.ClientID && meta[tokenfile.MetaTokenURL] == creds.TokenURL
}

// Logout removes the cached token at tokenPath. A missing file is not an
// error.
func Logout(tokenPath string, logger *slog.Logger) error {
	removed, err := tokenfile.Remove(tokenPath)
	if err != nil {
		return err
	}

	if !removed {
		logger.Info("logout: no token file to remove", slog.String("path", tokenPath))
		return nil
	}

	logger.Info("logout: removed token file", slog.String("path", tokenPath))

	return nil
}

// persistingSource saves every token it fetches. It runs under the mutex
// of the wrapping oauth2.ReuseTokenSource.
type persistingSource struct {
	src    oauth2.TokenSource
	path   string
	meta   map[string]string
	logger *slog.Logger
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}

	p.logger.Info("fetched new token", slog.Time("expiry", tok.Expiry))

	if err := tokenfile.Save(p.path, tok, p.meta); err != nil {
		p.logger.Warn("failed to persist token",
			slog.String("path", p.path),
			slog.String("error", err.Error()),
		)
	}

	return tok, nil
}
