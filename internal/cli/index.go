package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/huntql/internal/index"
	"github.com/roach88/huntql/internal/ir"
)

// IndexOptions holds flags for the index command.
type IndexOptions struct {
	*RootOptions
	Force bool
	Clear bool
}

type indexOutput struct {
	Action string      `json:"action"`
	Stats  index.Stats `json:"stats"`
}

func (o indexOutput) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Index %s: %d documents (generation %d)\n", o.Action, o.Stats.Documents, o.Stats.Generation)
	sources := slices.Clone(o.Stats.Sources)
	slices.Sort(sources)
	for _, src := range sources {
		fmt.Fprintf(w, "  %-8s %5d documents  version %s\n", src, o.Stats.BySource[src], shortVersion(o.Stats.Versions[src]))
	}
	return nil
}

func shortVersion(v ir.SchemaVersion) string {
	if v == "" {
		return "-"
	}
	if len(v) > 12 {
		return string(v[:12])
	}
	return string(v)
}

// NewIndexCommand creates the index command.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IndexOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or inspect the document index",
		Long: `Bring the document index up to date with the loaded schemas and report
its contents. Only platforms whose schema version changed are rebuilt
unless --force is given. --clear drops the in-memory and cached index
before rebuilding.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "rebuild every source")
	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "drop the cached index before rebuilding")

	return cmd
}

func runIndex(opts *IndexOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	a, err := openApp(ctx, opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	action := "current"
	if opts.Clear {
		if err := a.svc.ClearIndex(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to clear index", err)
		}
		action = "rebuilt"
	}
	if opts.Force {
		action = "rebuilt"
	}
	if err := a.svc.Reindex(ctx, opts.Force || opts.Clear); err != nil {
		return reportQueryError(formatter, err)
	}
	return formatter.Success(indexOutput{Action: action, Stats: a.svc.IndexStats()})
}
