// Package cli is the docwise command tree. Commands that need a user resolve
// the session once and refuse to run while unauthenticated.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"docwise-client/internal/bootstrap"
	"docwise-client/internal/session"
	"docwise-client/internal/shared/config"
	"docwise-client/internal/shared/metrics"
	"docwise-client/internal/shared/telemetry"
)

var errNotLoggedIn = errors.New("not logged in; run 'docwise login' first")

var versionInfo = "dev"

// SetVersion sets the version information from build-time ldflags.
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// BuildFunc constructs the application graph from configuration.
type BuildFunc func(ctx context.Context, cfg config.Config) (*bootstrap.App, error)

// Options configures NewRootCommand. Zero values use the process defaults.
type Options struct {
	Build BuildFunc
	// Config replaces environment and file loading when set.
	Config *config.Config
	Stdin  io.Reader
}

type runner struct {
	opts Options

	apiURL     string
	configPath string
	logLevel   string
	showMetric bool

	app *bootstrap.App
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCommand(Options{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCommand builds the docwise command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Build == nil {
		opts.Build = func(ctx context.Context, cfg config.Config) (*bootstrap.App, error) {
			return bootstrap.Build(ctx, cfg, bootstrap.Overrides{})
		}
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	r := &runner{opts: opts}

	root := &cobra.Command{
		Use:   "docwise",
		Short: "DocWise document analysis client",
		Long: `docwise - analyze PDFs and text with your saved prompts

Log in with a password or finish a Google sign-in with 'docwise callback',
manage prompts, submit analyses and fetch their reports.`,
		Version:           versionInfo,
		SilenceUsage:      true,
		PersistentPreRunE: r.setup,
		PersistentPostRun: r.teardown,
	}

	root.PersistentFlags().StringVar(&r.apiURL, "api-url", "", "API base URL (overrides API_BASE_URL)")
	root.PersistentFlags().StringVar(&r.configPath, "config", "", "Path to config.toml")
	root.PersistentFlags().StringVar(&r.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&r.showMetric, "metrics", false, "Print client metrics to stderr on exit")

	root.AddCommand(
		r.pingCmd(),
		r.whoamiCmd(),
		r.loginCmd(),
		r.registerCmd(),
		r.callbackCmd(),
		r.logoutCmd(),
		r.promptsCmd(),
		r.analyzeCmd(),
		r.historyCmd(),
		r.downloadCmd(),
		r.copyCmd(),
		r.dashboardCmd(),
	)
	return root
}

func (r *runner) setup(cmd *cobra.Command, args []string) error {
	var cfg config.Config
	switch {
	case r.opts.Config != nil:
		cfg = *r.opts.Config
	case r.configPath != "":
		cfg = config.LoadFile(r.configPath)
	default:
		cfg = config.Load()
	}
	if r.apiURL != "" {
		cfg.APIBaseURL = strings.TrimRight(r.apiURL, "/")
	}
	if r.logLevel != "" {
		cfg.LogLevel = r.logLevel
	}
	telemetry.SetOutput(cmd.ErrOrStderr())
	telemetry.SetLevel(cfg.LogLevel)

	app, err := r.opts.Build(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	r.app = app
	return nil
}

func (r *runner) teardown(cmd *cobra.Command, args []string) {
	if r.showMetric {
		fmt.Fprint(cmd.ErrOrStderr(), metrics.Render())
	}
}

// requireSession resolves the persisted credential and fails when nobody is
// logged in.
func (r *runner) requireSession(ctx context.Context) (session.Snapshot, error) {
	snap := r.app.Session.ResolveSession(ctx)
	if !snap.Authenticated() {
		return snap, errNotLoggedIn
	}
	return snap, nil
}

func (r *runner) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the API is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := r.app.Gateway.Ping(cmd.Context())
			if err != nil {
				return fmt.Errorf("API unreachable at %s: %w", r.app.Gateway.BaseURL(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", r.app.Gateway.BaseURL(), msg)
			return nil
		},
	}
}
