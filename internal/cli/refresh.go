package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/huntql/internal/platform"
)

type refreshOutput struct {
	Platform string `json:"platform"`
	Changed  bool   `json:"changed"`
	Version  string `json:"version"`
}

func (o refreshOutput) WriteText(w io.Writer) error {
	if o.Changed {
		fmt.Fprintf(w, "%s schema reloaded (version %s)\n", o.Platform, o.Version)
		return nil
	}
	fmt.Fprintf(w, "%s schema unchanged (version %s)\n", o.Platform, o.Version)
	return nil
}

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <platform>",
		Short: "Reload one platform's schema",
		Long: `Force-reload a platform's schema from its source and update the index
when the schema version changed. An invalid schema is rejected and the
cached index keeps serving the previous version.`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(rootOpts, args[0], cmd)
		},
	}
}

func runRefresh(opts *RootOptions, name string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	ctx := cmd.Context()

	a, err := openApp(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	changed, err := a.svc.Refresh(ctx, name)
	if err != nil {
		return reportQueryError(formatter, err)
	}
	id := platform.ParseID(name)
	return formatter.Success(refreshOutput{
		Platform: string(id),
		Changed:  changed,
		Version:  shortVersion(a.svc.IndexStats().Versions[id]),
	})
}
