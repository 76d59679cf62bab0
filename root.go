package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/rixian/drive-go/internal/auth"
	"github.com/rixian/drive-go/internal/config"
	"github.com/rixian/drive-go/pkg/drive"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath  string
	flagTenant      string
	flagJSON        bool
	flagVerbose     bool
	flagQuiet       bool
	flagMetricsFile string
)

// CLIFlags carries the output-related global flags.
type CLIFlags struct {
	JSON  bool
	Quiet bool
}

// CLIContext is built once per command in PersistentPreRunE and carried on
// the command context.
type CLIContext struct {
	Cfg    *config.Config
	Flags  CLIFlags
	Logger *slog.Logger
	Out    io.Writer
	Err    io.Writer

	registry *prometheus.Registry

	// stopInterrupts releases the signal handlers installed for the command.
	stopInterrupts func()

	clientOnce sync.Once
	client     *drive.Client
	clientErr  error
}

type cliContextKey struct{}

// mustCLIContext returns the CLIContext stored by the root pre-run.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("drive-go: command context has no CLIContext")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "drive-go",
		Short:   "Drive API command-line client",
		Long:    "A command-line client for browsing and managing files in a Drive tenant.",
		Version: version,
		// Errors are printed by main.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := newCLIContext(cmd)
			if err != nil {
				return err
			}

			ctx, stop := cancelOnInterrupt(cmd.Context(), cc.Logger, os.Exit)
			cc.stopInterrupts = stop

			cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return writeMetrics(mustCLIContext(cmd.Context()))
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagTenant, "tenant", "", "tenant ID to act for")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	cmd.PersistentFlags().StringVar(&flagMetricsFile, "metrics-file", "",
		"write request metrics in Prometheus text format to this file on exit")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newStatCmd())
	cmd.AddCommand(newExistsCmd())
	cmd.AddCommand(newStreamsCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newMkdirCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newCpCmd())
	cmd.AddCommand(newMvCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newMetaCmd())
	cmd.AddCommand(newDrivesCmd())
	cmd.AddCommand(newPartitionsCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// execute runs the root command and releases the per-command signal
// handlers whether or not the command succeeded.
func execute(ctx context.Context, root *cobra.Command) error {
	cmd, err := root.ExecuteContextC(ctx)

	if cmd != nil && cmd.Context() != nil {
		if cc, ok := cmd.Context().Value(cliContextKey{}).(*CLIContext); ok && cc.stopInterrupts != nil {
			cc.stopInterrupts()
		}
	}

	return err
}

// newCLIContext resolves the effective configuration from the four-layer
// override chain and builds the logger.
func newCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	cli := config.CLIOverrides{ConfigPath: flagConfigPath}

	if cmd.Flags().Changed("tenant") {
		cli.TenantID = &flagTenant
	}

	if level := flagLogLevel(); level != "" {
		cli.LogLevel = &level
	}

	env, err := config.ReadEnvOverrides()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Resolve(env, cli)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cc := &CLIContext{
		Cfg:    cfg,
		Flags:  CLIFlags{JSON: flagJSON, Quiet: flagQuiet},
		Logger: buildLogger(cfg.Logging, os.Stderr),
		Out:    cmd.OutOrStdout(),
		Err:    cmd.ErrOrStderr(),
	}

	if flagMetricsFile != "" {
		cc.registry = prometheus.NewRegistry()
	}

	return cc, nil
}

// flagLogLevel maps --verbose and --quiet to a log level. CLI flags win
// over the config file.
func flagLogLevel() string {
	switch {
	case flagVerbose:
		return "debug"
	case flagQuiet:
		return "error"
	default:
		return ""
	}
}

// buildLogger creates an slog.Logger from the logging config. The "auto"
// format writes text to a terminal and JSON otherwise.
func buildLogger(lc config.LoggingConfig, w *os.File) *slog.Logger {
	var level slog.Level

	switch lc.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	format := lc.LogFormat
	if format == "auto" || format == "" {
		format = "json"
		if isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd()) {
			format = "text"
		}
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// Client returns the Drive client for this invocation, building it on
// first use.
func (cc *CLIContext) Client(ctx context.Context) (*drive.Client, error) {
	cc.clientOnce.Do(func() {
		cc.client, cc.clientErr = cc.newClient(ctx)
	})

	return cc.client, cc.clientErr
}

func (cc *CLIContext) newClient(ctx context.Context) (*drive.Client, error) {
	cfg := cc.Cfg

	if cfg.API.URL == "" {
		return nil, errors.New("no API URL configured; set api.url in the config file or DRIVE_GO_API_URL")
	}

	timeout, err := time.ParseDuration(cfg.Network.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("network.request_timeout: %w", err)
	}

	minTLS, err := drive.ParseTLSVersion(cfg.Network.MinTLSVersion)
	if err != nil {
		return nil, err
	}

	policies, err := config.BuildPolicies(cfg, cc.Logger)
	if err != nil {
		return nil, err
	}

	opts := []drive.Option{
		drive.WithHTTPClient(drive.NewHTTPClient(timeout, minTLS)),
		drive.WithLogger(cc.Logger),
		drive.WithAPIVersion(cfg.API.APIVersion),
		drive.WithUserAgent(cfg.Network.UserAgent),
	}

	for name, p := range policies {
		opts = append(opts, drive.WithPolicy(name, p))
	}

	if cfg.API.APIKey != "" {
		opts = append(opts, drive.WithAPIKey(cfg.API.APIKeyHeader, cfg.API.APIKey))
	}

	if cfg.Auth.TokenURL != "" {
		ts, err := auth.TokenSource(context.WithoutCancel(ctx), credentials(cfg), cfg.Auth.TokenFile, cc.Logger)
		if err != nil {
			return nil, err
		}

		opts = append(opts, drive.WithTokenSource(ts))
	}

	if cc.registry != nil {
		opts = append(opts, drive.WithMetrics(cc.registry))
	}

	return drive.NewClient(cfg.API.URL, opts...)
}

// CallOptions returns per-call options derived from the config, currently
// the tenant to act for.
func (cc *CLIContext) CallOptions() []drive.CallOption {
	if cc.Cfg.API.TenantID == "" {
		return nil
	}

	// Validated by config.Resolve.
	return []drive.CallOption{drive.WithTenant(uuid.MustParse(cc.Cfg.API.TenantID))}
}

func credentials(cfg *config.Config) auth.Credentials {
	return auth.Credentials{
		TokenURL:     cfg.Auth.TokenURL,
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		Scopes:       cfg.Auth.Scopes,
	}
}

// writeMetrics dumps the request metrics gathered during the command when
// --metrics-file is set.
func writeMetrics(cc *CLIContext) error {
	if cc.registry == nil {
		return nil
	}

	if err := prometheus.WriteToTextfile(flagMetricsFile, cc.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}

	cc.Logger.Debug("wrote metrics", slog.String("path", flagMetricsFile))

	return nil
}

// parsePath parses a command argument as a cloud path.
func parsePath(arg string) (drive.CloudPath, error) {
	p, err := drive.ParseCloudPath(arg)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: expected label:/path", strings.TrimSpace(arg))
	}

	return p, nil
}
