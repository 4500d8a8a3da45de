package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/huntql/internal/ir"
)

// Reference topics.
const (
	topicExamples  = "examples"
	topicOperators = "operators"
	topicPractices = "practices"
)

// ReferenceOptions holds flags for the reference command.
type ReferenceOptions struct {
	*RootOptions
	Category string
}

type referenceOutput struct {
	Platform      string            `json:"platform"`
	Topic         string            `json:"topic"`
	Examples      []ir.Example      `json:"examples,omitempty"`
	Operators     []ir.OperatorRef  `json:"operators,omitempty"`
	BestPractices []ir.BestPractice `json:"best_practices,omitempty"`
}

func (o referenceOutput) WriteText(w io.Writer) error {
	if len(o.Examples)+len(o.Operators)+len(o.BestPractices) == 0 {
		fmt.Fprintf(w, "No %s for %s.\n", o.Topic, o.Platform)
		return nil
	}
	for _, ex := range o.Examples {
		title := ex.Title
		if ex.Category != "" {
			title += " [" + ex.Category + "]"
		}
		fmt.Fprintln(w, title)
		if ex.Description != "" {
			fmt.Fprintf(w, "  %s\n", ex.Description)
		}
		for _, line := range strings.Split(ex.Query, "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
		fmt.Fprintln(w)
	}
	for _, op := range o.Operators {
		fmt.Fprintf(w, "%s: %s\n", op.Name, op.Description)
		if op.Example != "" {
			fmt.Fprintf(w, "    %s\n", op.Example)
		}
	}
	for _, bp := range o.BestPractices {
		fmt.Fprintf(w, "%s:\n", bp.Category)
		for _, item := range bp.Items {
			fmt.Fprintf(w, "  - %s\n", item)
		}
	}
	return nil
}

// NewReferenceCommand creates the reference command.
func NewReferenceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReferenceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reference <platform> <examples|operators|practices>",
		Short: "Show a platform's example queries, operators or best practices",
		Long: `Show the reference material shipped with a platform schema. --category
narrows examples and best practices to one category.

Examples:
  huntql reference cbc examples --category process
  huntql reference kql operators
  huntql reference cortex practices`,
		Args:          cobra.ExactArgs(2),
		ValidArgs:     []string{topicExamples, topicOperators, topicPractices},
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReference(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Category, "category", "c", "", "only show this category")

	return cmd
}

func runReference(opts *ReferenceOptions, platformName, topic string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	switch topic {
	case topicExamples, topicPractices:
	case topicOperators:
		if opts.Category != "" {
			return NewExitError(ExitCommandError, "--category does not apply to operators")
		}
	default:
		return NewExitError(ExitCommandError,
			fmt.Sprintf("unknown topic %q: want %s, %s or %s", topic, topicExamples, topicOperators, topicPractices))
	}

	a, err := openApp(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	out := referenceOutput{Platform: platformName, Topic: topic}
	ctx := cmd.Context()
	switch topic {
	case topicExamples:
		out.Examples, err = a.svc.Examples(ctx, platformName, opts.Category)
	case topicOperators:
		out.Operators, err = a.svc.Operators(ctx, platformName)
	case topicPractices:
		out.BestPractices, err = a.svc.BestPractices(ctx, platformName, opts.Category)
	}
	if err != nil {
		return reportQueryError(formatter, err)
	}
	return formatter.Success(out)
}
