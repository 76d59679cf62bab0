package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/rixian/drive-go/internal/auth"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Fetch and cache a token with the configured client credentials",
		Args:  cobra.NoArgs,
		RunE:  runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the cached token",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

// loginOutput is the JSON schema for `login --json`.
type loginOutput struct {
	TokenFile string    `json:"token_file"`
	Expiry    time.Time `json:"expiry"`
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if cc.Cfg.Auth.TokenURL == "" {
		return errors.New("no token endpoint configured; set auth.token_url in the config file")
	}

	tok, err := auth.Login(cmd.Context(), credentials(cc.Cfg), cc.Cfg.Auth.TokenFile, cc.Logger)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Out, loginOutput{TokenFile: cc.Cfg.Auth.TokenFile, Expiry: tok.Expiry})
	}

	cc.Statusf("Login successful. Token expires %s.\n", formatTime(tok.Expiry))

	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if cc.Cfg.Auth.TokenFile == "" {
		cc.Statusf("No token cache configured.\n")
		return nil
	}

	if err := auth.Logout(cc.Cfg.Auth.TokenFile, cc.Logger); err != nil {
		return err
	}

	cc.Statusf("Logged out.\n")

	return nil
}
