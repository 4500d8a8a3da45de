package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/huntql/internal/service"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	K      int
	Source string
}

type searchOutput struct {
	Query   string          `json:"query"`
	Matches []service.Match `json:"matches"`
}

func (o searchOutput) WriteText(w io.Writer) error {
	if len(o.Matches) == 0 {
		fmt.Fprintf(w, "No matches for %q.\n", o.Query)
		return nil
	}
	for i, m := range o.Matches {
		fmt.Fprintf(w, "%d. [%s/%s] %.3f\n", i+1, m.Source, m.Kind, m.Score)
		for _, line := range strings.Split(strings.TrimSpace(m.Text), "\n") {
			fmt.Fprintf(w, "   %s\n", line)
		}
	}
	return nil
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search <text>...",
		Short: "Search schema documentation",
		Long: `Search the document index built from every loaded schema: dataset and
field descriptions, example queries and best practices.

Examples:
  huntql search "process command line"
  huntql search -k 10 --source cortex network connections`,
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(opts, strings.Join(args, " "), cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.K, "k", "k", service.DefaultRetrieveK, "maximum number of matches")
	cmd.Flags().StringVarP(&opts.Source, "source", "s", "", "restrict to one platform")

	return cmd
}

func runSearch(opts *SearchOptions, query string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	if opts.K < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid -k %d: must be at least 1", opts.K))
	}

	a, err := openApp(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	resp := a.svc.Retrieve(cmd.Context(), service.RetrievalRequest{Query: query, K: opts.K, Source: opts.Source})
	if resp.Error != nil {
		if err := formatter.Fail(&CLIError{
			Code:        string(resp.Error.Kind),
			Message:     resp.Error.Message,
			Suggestions: resp.Error.Suggestions,
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("request rejected: %s", resp.Error.Kind))
	}
	return formatter.Success(searchOutput{Query: query, Matches: resp.Matches})
}
