package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/atemporal/internal/cachekey"
)

// KeyOptions holds flags for the key command.
type KeyOptions struct {
	*RootOptions
	JSON      bool
	Namespace string
}

// KeyOutput is the payload of the key command.
type KeyOutput struct {
	Key     string `json:"key"`
	Hash    string `json:"hash"`
	Bounded string `json:"bounded"`
	Valid   bool   `json:"valid"`
}

func (k KeyOutput) String() string {
	return fmt.Sprintf("key:     %s\nhash:    %s\nbounded: %s\nvalid:   %t\n", k.Key, k.Hash, k.Bounded, k.Valid)
}

// NewKeyCommand creates the key command.
func NewKeyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "key <part>...",
		Short: "Build a cache key",
		Long: `Build the deterministic cache key for an ordered list of parts and print
it with its 16-character hash and its length-bounded form.

Parts are strings unless --json is given.

Examples:
  atemporal key en-US short
  atemporal key --namespace parse --json '[2023, 6, 15]' '"UTC"'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKey(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "decode each part as JSON")
	cmd.Flags().StringVar(&opts.Namespace, "namespace", "", "namespace tag prefixed to the key")

	return cmd
}

func runKey(opts *KeyOptions, args []string, cmd *cobra.Command) error {
	b := cachekey.NewBuilder(len(args) + 1)
	if opts.Namespace != "" {
		b.Tag(opts.Namespace)
	}
	for _, arg := range args {
		v, err := decodeInput(arg, opts.JSON)
		if err != nil {
			return err
		}
		b.Value(v)
	}

	key, err := b.Key()
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot build key", err)
	}
	bounded := cachekey.Bound(key)
	return opts.formatter(cmd).Success(KeyOutput{
		Key:     key,
		Hash:    cachekey.FastHash(key),
		Bounded: bounded,
		Valid:   cachekey.Validate(bounded) == nil,
	})
}
