package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/huntql/internal/builder"
	"github.com/roach88/huntql/internal/service"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Request     string // request file, "-" for stdin
	Platform    string
	Dataset     string
	Fields      []string
	Filters     []string
	Limit       int
	TimeWindow  string
	Intent      string
	BooleanMode string
	Sort        string
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a hunting query",
		Long: `Build a query for one platform from explicit parameters, a natural
language intent, or both.

Parameters come from flags, from a JSON or YAML request file (--request),
or from a request file with flags layered on top. Filters take the form
"<field> <operator> <value>" or "<field>=<value>".

Exit codes:
  0 - Query built
  1 - Request rejected (the error kind and suggestions are printed)
  2 - Command error (bad flags, unreadable request, etc.)

Examples:
  huntql build -p kql -d DeviceProcessEvents --filter "FileName =~ powershell.exe" --limit 50
  huntql build -p s1 --intent "connections to 203.0.113.7 in the last 7 days"
  huntql build --request hunt.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Request, "request", "r", "", "request file (JSON or YAML, - for stdin)")
	cmd.Flags().StringVarP(&opts.Platform, "platform", "p", "", "target platform (kql, cbc, cortex, s1)")
	cmd.Flags().StringVarP(&opts.Dataset, "dataset", "d", "", "dataset name")
	cmd.Flags().StringSliceVarP(&opts.Fields, "field", "f", nil, "field to project (repeatable, comma-separated)")
	cmd.Flags().StringArrayVar(&opts.Filters, "filter", nil, `filter "<field> <op> <value>" (repeatable)`)
	cmd.Flags().IntVarP(&opts.Limit, "limit", "l", 0, "row limit")
	cmd.Flags().StringVarP(&opts.TimeWindow, "time-window", "t", "", "time window such as 24h or 7d")
	cmd.Flags().StringVarP(&opts.Intent, "intent", "i", "", "natural language intent")
	cmd.Flags().StringVar(&opts.BooleanMode, "boolean-mode", "", "how filters combine (and|or)")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", `sort field ("-Field" or "Field desc" for descending)`)

	return cmd
}

func runBuild(opts *BuildOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	req, err := buildRequest(opts, cmd)
	if err != nil {
		return err
	}
	if req.Platform == "" {
		return NewExitError(ExitCommandError, "a platform is required (--platform or request file)")
	}

	a, err := openApp(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	resp := a.svc.Build(cmd.Context(), req)
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

	if opts.Format == "json" {
		return formatter.Success(resp)
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Query)
	for _, w := range resp.Metadata.Warnings {
		fmt.Fprintf(formatter.GetErrWriter(), "warning: %s\n", w)
	}
	formatter.VerboseLog("platform=%s dataset=%s fields=%s request_id=%s",
		resp.Metadata.Platform, resp.Metadata.Dataset,
		strings.Join(resp.Metadata.MatchedFields, ","), resp.Metadata.RequestID)
	return nil
}

// buildRequest reads the request file, if any, and layers set flags on top.
func buildRequest(opts *BuildOptions, cmd *cobra.Command) (service.Request, error) {
	var req service.Request
	if opts.Request != "" {
		r, err := readRequestFile(opts.Request, cmd.InOrStdin())
		if err != nil {
			return req, err
		}
		req = r
	}

	flags := cmd.Flags()
	if flags.Changed("platform") {
		req.Platform = opts.Platform
	}
	if flags.Changed("dataset") {
		req.Dataset = opts.Dataset
	}
	if flags.Changed("field") {
		req.Fields = opts.Fields
	}
	if flags.Changed("filter") {
		req.Filters = req.Filters[:0:0]
		for _, raw := range opts.Filters {
			f, err := parseFilter(raw)
			if err != nil {
				return req, err
			}
			req.Filters = append(req.Filters, f)
		}
	}
	if flags.Changed("limit") {
		limit := opts.Limit
		req.Limit = &limit
	}
	if flags.Changed("time-window") {
		req.TimeWindow = opts.TimeWindow
	}
	if flags.Changed("intent") {
		req.Intent = opts.Intent
	}
	if flags.Changed("boolean-mode") {
		req.BooleanMode = opts.BooleanMode
	}
	if flags.Changed("sort") {
		req.Sort = opts.Sort
	}
	return req, nil
}

func readRequestFile(path string, stdin io.Reader) (service.Request, error) {
	var req service.Request
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return req, WrapExitError(ExitCommandError, "failed to read request", err)
	}

	// JSON is valid YAML, so one decoder serves both.
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		return req, WrapExitError(ExitCommandError, "failed to parse request", err)
	}
	return req, nil
}

// parseFilter accepts "<field> <op> <value>" (the value may contain spaces)
// or "<field>=<value>".
func parseFilter(raw string) (builder.Filter, error) {
	parts := strings.Fields(raw)
	switch {
	case len(parts) >= 3:
		value := strings.TrimSpace(raw)
		for _, p := range parts[:2] {
			value = strings.TrimSpace(strings.TrimPrefix(value, p))
		}
		return builder.Filter{Field: parts[0], Operator: parts[1], Value: value}, nil
	case len(parts) == 1 && strings.Contains(parts[0], "="):
		field, value, _ := strings.Cut(parts[0], "=")
		value = strings.TrimPrefix(value, "=")
		if field != "" && value != "" {
			return builder.Filter{Field: field, Value: value}, nil
		}
	}
	return builder.Filter{}, NewExitError(ExitCommandError, fmt.Sprintf("invalid filter %q: want \"<field> <op> <value>\" or \"<field>=<value>\"", raw))
}
