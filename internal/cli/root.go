package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/atemporal/internal/config"
	"github.com/roach88/atemporal/internal/coordinator"
	"github.com/roach88/atemporal/internal/metrics"
	"github.com/roach88/atemporal/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // optional .yaml/.yml/.cue configuration file

	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the atemporal CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "atemporal",
		Short: "atemporal - timestamp parsing engine",
		Long:  "Parse heterogeneous timestamp input into canonical zoned date-times.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			opts.logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)

			if opts.Config != "" {
				cfg, err := config.Load(opts.Config)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to load config", err)
				}
				if err := config.Set(cfg); err != nil {
					return WrapExitError(ExitCommandError, "invalid config", err)
				}
				opts.logger.Debug("configuration loaded", "path", opts.Config)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "configuration file (.yaml, .yml or .cue)")

	// Add subcommands
	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewKeyCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewCacheCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// newLogger logs to w at debug level when verbose, warnings otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Logger returns the logger configured by the global flags.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.logger
}

// formatter returns an OutputFormatter for cmd's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// newCoordinator builds a coordinator over the process configuration,
// backed by st when non-nil.
func (o *RootOptions) newCoordinator(st *store.Store) *coordinator.Coordinator {
	opts := []coordinator.Option{
		coordinator.WithLogger(o.Logger()),
		coordinator.WithMetrics(o.Metrics()),
	}
	if st != nil {
		opts = append(opts, coordinator.WithPersistentCache(st))
	}
	return coordinator.New(nil, opts...)
}

// Metrics returns the collectors shared by every coordinator the command
// builds, registered on a private registry.
func (o *RootOptions) Metrics() *metrics.Metrics {
	if o.metrics == nil {
		o.registry = prometheus.NewRegistry()
		o.metrics = metrics.New(o.registry)
	}
	return o.metrics
}

// writeMetrics writes the gathered collectors in the Prometheus text
// exposition format.
func (o *RootOptions) writeMetrics(w io.Writer) error {
	if o.registry == nil {
		return nil
	}
	families, err := o.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

// openStore opens the cache at path, falling back to the configured
// database. Returns nil when neither is set.
func openStore(path string) (*store.Store, error) {
	if path == "" {
		path = config.Current().Database
	}
	if path == "" {
		return nil, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open cache database", err)
	}
	return st, nil
}
