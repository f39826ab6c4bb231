package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/atemporal/internal/canon"
	"github.com/roach88/atemporal/internal/parse"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	Zone     string
	Calendar string
	Strict   bool
	JSON     bool   // decode the input as JSON
	DB       string // persistent cache database
	Metrics  bool   // write Prometheus metrics to stderr
}

// ParseOutput is the success payload of the parse command.
type ParseOutput struct {
	Timestamp  string        `json:"timestamp"`
	UnixMilli  int64         `json:"unixMilli"`
	Zone       string        `json:"zone"`
	Calendar   string        `json:"calendar"`
	Strategy   string        `json:"strategy"`
	Confidence float64       `json:"confidence"`
	FastPath   bool          `json:"fastPath"`
	Cached     bool          `json:"cached"`
	Warnings   []parse.Issue `json:"warnings,omitempty"`
	Transforms []string      `json:"transforms,omitempty"`
	AttemptID  string        `json:"attemptId"`
}

// String renders the text form. The attempt ID is omitted so the output is
// stable across runs.
func (p ParseOutput) String() string {
	var b strings.Builder
	fmt.Fprintln(&b, p.Timestamp)
	fmt.Fprintf(&b, "strategy:   %s\n", p.Strategy)
	fmt.Fprintf(&b, "confidence: %.2f\n", p.Confidence)
	fmt.Fprintf(&b, "fast path:  %t\n", p.FastPath)
	if p.Cached {
		fmt.Fprintln(&b, "cached:     true")
	}
	if len(p.Transforms) > 0 {
		fmt.Fprintf(&b, "transforms: %s\n", strings.Join(p.Transforms, ", "))
	}
	for _, w := range p.Warnings {
		fmt.Fprintf(&b, "warning:    %s\n", w)
	}
	return b.String()
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse <input>",
		Short: "Parse a timestamp",
		Long: `Parse a single input into a canonical zoned date-time.

The input is a string unless --json is given, in which case it is decoded
as JSON: a list parses as [year, month, day, ...], an object as a record
or a {seconds, nanoseconds} pair, and a number as epoch milliseconds.

Exit codes:
  0 - Parsed
  1 - The input could not be parsed
  2 - Command error (invalid flags, unreadable config or database)

Examples:
  atemporal parse 2023-06-15T14:30:45Z
  atemporal parse --zone Asia/Tokyo 1686839445000
  atemporal parse --metrics 2023-06-15
  atemporal parse --json '[2023, 6, 15, 14, 30]'
  atemporal parse --json '{"seconds": 1672531200, "nanoseconds": 500000000}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Zone, "zone", "", "result time zone (IANA name, UTC or ±HH:MM)")
	cmd.Flags().StringVar(&opts.Calendar, "calendar", "", "result calendar (iso8601|gregory)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "reject borderline input instead of coercing it")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "decode the input as JSON")
	cmd.Flags().StringVar(&opts.DB, "db", "", "persistent cache database (default: config database)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "write Prometheus metrics to stderr after parsing")

	return cmd
}

// parseOptions converts the flags into parse options. Only flags set on the
// command line override the process configuration.
func parseOptions(opts *ParseOptions, cmd *cobra.Command) ([]parse.Option, error) {
	var out []parse.Option
	if opts.Zone != "" {
		if !canon.ValidZone(opts.Zone) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown time zone %q", opts.Zone))
		}
		out = append(out, parse.WithTimeZone(opts.Zone))
	}
	if opts.Calendar != "" {
		cal, err := canon.ParseCalendar(opts.Calendar)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --calendar", err)
		}
		out = append(out, parse.WithCalendar(cal))
	}
	if cmd.Flags().Changed("strict") {
		out = append(out, parse.WithStrict(opts.Strict))
	}
	return out, nil
}

func runParse(opts *ParseOptions, arg string, cmd *cobra.Command) error {
	input, err := decodeInput(arg, opts.JSON)
	if err != nil {
		return err
	}
	parseOpts, err := parseOptions(opts, cmd)
	if err != nil {
		return err
	}

	st, err := openStore(opts.DB)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	res := opts.newCoordinator(st).ParseContext(cmd.Context(), input, parseOpts...)
	if opts.Metrics {
		defer func() {
			if err := opts.writeMetrics(cmd.ErrOrStderr()); err != nil {
				opts.Logger().Warn("metrics not written", "error", err)
			}
		}()
	}
	f := opts.formatter(cmd)
	f.VerboseLog("attempt %s took %s", res.AttemptID, res.Elapsed)

	if !res.OK() {
		details := map[string]any{"strategy": res.Err.Strategy}
		if len(res.Err.Issues) > 0 {
			details["issues"] = res.Err.Issues
		}
		if err := f.Error(res.Err.Code, res.Err.Message, details); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, "parse failed", res.Err)
	}

	ts := res.Timestamp
	return f.Success(ParseOutput{
		Timestamp:  ts.String(),
		UnixMilli:  ts.UnixMilli(),
		Zone:       ts.Zone(),
		Calendar:   string(ts.Calendar()),
		Strategy:   string(res.Strategy),
		Confidence: res.Confidence,
		FastPath:   res.FastPath,
		Cached:     res.Cached,
		Warnings:   res.Warnings,
		Transforms: res.Transforms,
		AttemptID:  res.AttemptID,
	})
}
