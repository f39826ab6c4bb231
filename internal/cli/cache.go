package cli

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// CacheOptions holds flags for the cache commands.
type CacheOptions struct {
	*RootOptions
	DB        string
	OlderThan time.Duration
}

// CacheStatsOutput is the payload of cache stats.
type CacheStatsOutput struct {
	Database   string           `json:"database"`
	Entries    int64            `json:"entries"`
	Hits       int64            `json:"hits"`
	ByStrategy map[string]int64 `json:"byStrategy"`
}

func (s CacheStatsOutput) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "database: %s\n", s.Database)
	fmt.Fprintf(&b, "entries:  %d\n", s.Entries)
	fmt.Fprintf(&b, "hits:     %d\n", s.Hits)
	strategies := make([]string, 0, len(s.ByStrategy))
	for name := range s.ByStrategy {
		strategies = append(strategies, name)
	}
	slices.Sort(strategies)
	for _, name := range strategies {
		fmt.Fprintf(&b, "  %-10s %d\n", name, s.ByStrategy[name])
	}
	return b.String()
}

// CachePurgeOutput is the payload of cache purge.
type CachePurgeOutput struct {
	Database string `json:"database"`
	Removed  int64  `json:"removed"`
}

func (p CachePurgeOutput) String() string {
	return fmt.Sprintf("removed %d entries from %s\n", p.Removed, p.Database)
}

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the persistent parse cache",
	}
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "cache database (default: config database)")

	stats := &cobra.Command{
		Use:           "stats",
		Short:         "Show cache entry and hit counts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheStats(opts, cmd)
		},
	}

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Remove cache entries",
		Long: `Remove cache entries stored before now minus --older-than.
Without --older-than every entry is removed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCachePurge(opts, cmd)
		},
	}
	purge.Flags().DurationVar(&opts.OlderThan, "older-than", 0, "only remove entries older than this")

	cmd.AddCommand(stats, purge)
	return cmd
}

func runCacheStats(opts *CacheOptions, cmd *cobra.Command) error {
	st, err := openStore(opts.DB)
	if err != nil {
		return err
	}
	if st == nil {
		return NewExitError(ExitCommandError, "no cache database: pass --db or set database in the config")
	}
	defer st.Close()

	s, err := st.Stats(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read cache stats", err)
	}
	return opts.formatter(cmd).Success(CacheStatsOutput{
		Database:   st.Path(),
		Entries:    s.Entries,
		Hits:       s.Hits,
		ByStrategy: s.ByStrategy,
	})
}

func runCachePurge(opts *CacheOptions, cmd *cobra.Command) error {
	if opts.OlderThan < 0 {
		return NewExitError(ExitCommandError, "--older-than must not be negative")
	}
	st, err := openStore(opts.DB)
	if err != nil {
		return err
	}
	if st == nil {
		return NewExitError(ExitCommandError, "no cache database: pass --db or set database in the config")
	}
	defer st.Close()

	var cutoff time.Time
	if opts.OlderThan > 0 {
		cutoff = time.Now().Add(-opts.OlderThan)
	}
	n, err := st.Purge(cmd.Context(), cutoff)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to purge cache", err)
	}
	opts.Logger().Info("cache purged", "removed", n)
	return opts.formatter(cmd).Success(CachePurgeOutput{Database: st.Path(), Removed: n})
}
