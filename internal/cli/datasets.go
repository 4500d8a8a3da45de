package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/qerr"
	"github.com/roach88/huntql/internal/service"
)

// DatasetsOptions holds flags for the datasets command.
type DatasetsOptions struct {
	*RootOptions
	Keyword string
}

type datasetsOutput struct {
	Platform string                `json:"platform"`
	Datasets []service.DatasetInfo `json:"datasets"`
}

func (o datasetsOutput) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATASET\tFIELDS\tDESCRIPTION")
	for _, ds := range o.Datasets {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", ds.Name, ds.Fields, ds.Description)
	}
	return tw.Flush()
}

type fieldsOutput struct {
	Platform string     `json:"platform"`
	Dataset  string     `json:"dataset"`
	Fields   []ir.Field `json:"fields"`
}

func (o fieldsOutput) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tTYPE\tDESCRIPTION")
	for _, f := range o.Fields {
		typ := string(f.Type)
		if len(f.Values) > 0 {
			typ += "(" + strings.Join(f.Values, "|") + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, typ, f.Description)
	}
	return tw.Flush()
}

// NewDatasetsCommand creates the datasets command.
func NewDatasetsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DatasetsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "datasets <platform> [dataset]",
		Short: "List datasets, or the fields of one dataset",
		Long: `List a platform's datasets in schema order. With a dataset name, list
that dataset's fields instead. Misspelt dataset names are rejected with
suggestions, the same way build requests are. --keyword narrows the list to
datasets whose name, aliases or description mention it.

Examples:
  huntql datasets kql
  huntql datasets kql --keyword network
  huntql datasets cortex xdr_data`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDatasets(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Keyword, "keyword", "", "only list datasets mentioning this word")

	return cmd
}

func runDatasets(opts *DatasetsOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	if opts.Keyword != "" && len(args) == 2 {
		return NewExitError(ExitCommandError, "--keyword cannot be combined with a dataset name")
	}

	a, err := openApp(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		list, err := a.svc.Datasets(cmd.Context(), args[0], opts.Keyword)
		if err != nil {
			return reportQueryError(formatter, err)
		}
		return formatter.Success(datasetsOutput{Platform: args[0], Datasets: list})
	}

	fields, err := a.svc.Fields(cmd.Context(), args[0], args[1])
	if err != nil {
		return reportQueryError(formatter, err)
	}
	return formatter.Success(fieldsOutput{Platform: args[0], Dataset: args[1], Fields: fields})
}

// reportQueryError prints a taxonomy error and returns exit code 1. Errors
// outside the taxonomy are command errors.
func reportQueryError(formatter *OutputFormatter, err error) error {
	qe, ok := qerr.As(err)
	if !ok {
		return WrapExitError(ExitCommandError, "command failed", err)
	}
	msg := qe.Message
	if qe.Err != nil {
		msg += ": " + qe.Err.Error()
	}
	if ferr := formatter.Fail(&CLIError{Code: string(qe.Kind), Message: msg, Suggestions: qe.Suggestions}); ferr != nil {
		return ferr
	}
	return NewExitError(ExitFailure, fmt.Sprintf("request rejected: %s", qe.Kind))
}
