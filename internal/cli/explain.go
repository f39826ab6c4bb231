package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/atemporal/internal/coordinator"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	ParseOptions
}

// explainText renders an explanation for humans.
type explainText struct {
	coordinator.Explanation
}

func (e explainText) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "kind:      %s\n", e.Kind)
	selected := string(e.Selected)
	if e.FastPath {
		selected += " (fast path)"
	}
	fmt.Fprintf(&b, "selected:  %s\n", selected)
	fmt.Fprintf(&b, "cost:      %s\n", e.Hints.Cost)
	fmt.Fprintf(&b, "cacheable: %t\n", e.Hints.Cacheable)
	if e.CacheKey != "" {
		fmt.Fprintf(&b, "cache key: %s\n", e.CacheKey)
	}
	if len(e.Candidates) == 0 {
		fmt.Fprintln(&b, "candidates: none")
	} else {
		fmt.Fprintln(&b, "candidates:")
		for i, c := range e.Candidates {
			fmt.Fprintf(&b, "  %d. %-10s confidence=%.2f priority=%d\n", i+1, c.Descriptor.Type, c.Confidence, c.Descriptor.Priority)
		}
	}
	for _, w := range e.Hints.Warnings {
		fmt.Fprintf(&b, "warning:   %s\n", w)
	}
	return b.String()
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{ParseOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "explain <input>",
		Short: "Show how an input would be dispatched",
		Long: `Rank the strategies that accept an input and report which one would
parse it, whether its fast path applies and whether the result is cacheable.
Nothing is parsed or cached.

Example:
  atemporal explain --json '[2023, 6, 15]'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Zone, "zone", "", "result time zone")
	cmd.Flags().StringVar(&opts.Calendar, "calendar", "", "result calendar (iso8601|gregory)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "strict mode")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "decode the input as JSON")

	return cmd
}

func runExplain(opts *ExplainOptions, arg string, cmd *cobra.Command) error {
	input, err := decodeInput(arg, opts.JSON)
	if err != nil {
		return err
	}
	parseOpts, err := parseOptions(&opts.ParseOptions, cmd)
	if err != nil {
		return err
	}

	ex := opts.newCoordinator(nil).Explain(input, parseOpts...)
	f := opts.formatter(cmd)
	if f.Format == "json" {
		return f.Success(ex)
	}
	return f.Success(explainText{ex})
}
