package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/huntql/internal/watch"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reload schemas as their files change",
		Long: `Watch every configured schema directory and reload a platform's schema
once its files have been quiet for the debounce window. Platforms served
from the embedded schemas are not watched.

Runs until interrupted.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(rootOpts, cmd)
		},
	}
}

func runWatch(opts *RootOptions, cmd *cobra.Command) error {
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	a, err := openApp(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	dirs := a.cfg.SchemaDirs()
	if len(dirs) == 0 {
		return NewExitError(ExitCommandError, "no schema directories configured (set schema_root or schemas in the config file)")
	}

	w, err := watch.New(watch.Config{
		Dirs:      dirs,
		Refresher: a.svc,
		Logger:    a.log.With("component", "watch"),
		Debounce:  a.cfg.GetDebounce(),
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create watcher", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			a.log.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %d schema director(ies). Press Ctrl-C to stop.\n", len(dirs))

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitCommandError, "watcher failed", err)
	}

	st := w.Stats()
	a.log.Info("watcher stopped", "events", st.Events, "refreshes", st.Refreshes, "changed", st.Changed, "errors", st.Errors)
	return nil
}
