package schemasrc

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/huntql/internal/ir"
)

// CompileSchema parses a CUE value into schema content.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// Datasets, examples, best practices and operators are keyed by label, and
// declaration order is preserved:
//
//	dataset: DeviceProcessEvents: {
//		description: "Process creation events"
//		aliases: ["ProcessEvents"]
//		field: {
//			Timestamp: {type: "timestamp", default: true}
//			FileName:  "string"
//		}
//	}
//	example: "Encoded PowerShell": query: "DeviceProcessEvents | ..."
//	best_practice: performance: ["Filter on Timestamp first"]
//	operator: has: {description: "Whole term match", example: "..."}
func CompileSchema(v cue.Value) (ir.SchemaContent, error) {
	var content ir.SchemaContent
	if err := v.Err(); err != nil {
		return content, formatCUEError(err)
	}

	var err error
	if content.Datasets, err = parseDatasets(v); err != nil {
		return content, err
	}
	if content.Examples, err = parseExamples(v); err != nil {
		return content, err
	}
	if content.BestPractices, err = parseBestPractices(v); err != nil {
		return content, err
	}
	if content.Operators, err = parseOperators(v); err != nil {
		return content, err
	}
	return content, nil
}

// parseDatasets extracts dataset definitions.
func parseDatasets(v cue.Value) ([]ir.Dataset, error) {
	var datasets []ir.Dataset

	dsVal := v.LookupPath(cue.ParsePath("dataset"))
	if !dsVal.Exists() {
		return datasets, nil
	}

	iter, err := dsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		dsValue := iter.Value()
		ds := ir.Dataset{Name: iter.Selector().Unquoted()}

		if ds.Description, err = optionalString(dsValue, "description"); err != nil {
			return nil, err
		}
		if ds.Aliases, err = optionalStrings(dsValue, "aliases"); err != nil {
			return nil, err
		}
		if ds.Operators, err = optionalStrings(dsValue, "operators"); err != nil {
			return nil, err
		}

		fieldVal := dsValue.LookupPath(cue.ParsePath("field"))
		if !fieldVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("dataset.%s.field", ds.Name),
				Message: "dataset fields are required",
				Pos:     dsValue.Pos(),
			}
		}
		fieldIter, err := fieldVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for fieldIter.Next() {
			f, err := parseField(fieldIter.Selector().Unquoted(), fieldIter.Value())
			if err != nil {
				return nil, err
			}
			ds.Fields = append(ds.Fields, f)
		}

		datasets = append(datasets, ds)
	}

	return datasets, nil
}

// parseField accepts either a bare type string or a struct.
func parseField(name string, v cue.Value) (ir.Field, error) {
	f := ir.Field{Name: name}

	// Shorthand: Name: "string"
	if typ, err := v.String(); err == nil {
		f.Type = ir.FieldType(typ)
		return f, nil
	}

	if v.IncompleteKind() != cue.StructKind {
		return f, &CompileError{
			Field:   "field." + name,
			Message: fmt.Sprintf("field must be a type string or struct, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}

	typ, err := optionalString(v, "type")
	if err != nil {
		return f, err
	}
	f.Type = ir.FieldType(typ)
	if f.Description, err = optionalString(v, "description"); err != nil {
		return f, err
	}
	if f.Values, err = optionalStrings(v, "values"); err != nil {
		return f, err
	}
	defVal := v.LookupPath(cue.ParsePath("default"))
	if defVal.Exists() {
		if f.Default, err = defVal.Bool(); err != nil {
			return f, formatCUEError(err)
		}
	}
	return f, nil
}

// parseExamples extracts example queries. An example is either a bare
// query string or a struct with query, description and category.
func parseExamples(v cue.Value) ([]ir.Example, error) {
	var examples []ir.Example

	exVal := v.LookupPath(cue.ParsePath("example"))
	if !exVal.Exists() {
		return examples, nil
	}

	iter, err := exVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		ex := ir.Example{Title: iter.Selector().Unquoted()}
		if q, err := iter.Value().String(); err == nil {
			ex.Query = q
			examples = append(examples, ex)
			continue
		}
		queryVal := iter.Value().LookupPath(cue.ParsePath("query"))
		if !queryVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("example.%s.query", ex.Title),
				Message: "example query is required",
				Pos:     iter.Value().Pos(),
			}
		}
		if ex.Query, err = queryVal.String(); err != nil {
			return nil, formatCUEError(err)
		}
		if ex.Description, err = optionalString(iter.Value(), "description"); err != nil {
			return nil, err
		}
		if ex.Category, err = optionalString(iter.Value(), "category"); err != nil {
			return nil, err
		}
		examples = append(examples, ex)
	}
	return examples, nil
}

// parseBestPractices extracts category -> items lists.
func parseBestPractices(v cue.Value) ([]ir.BestPractice, error) {
	var practices []ir.BestPractice

	bpVal := v.LookupPath(cue.ParsePath("best_practice"))
	if !bpVal.Exists() {
		return practices, nil
	}

	iter, err := bpVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		items, err := stringList(iter.Value())
		if err != nil {
			return nil, err
		}
		practices = append(practices, ir.BestPractice{Category: iter.Selector().Unquoted(), Items: items})
	}
	return practices, nil
}

// parseOperators extracts operator reference entries.
func parseOperators(v cue.Value) ([]ir.OperatorRef, error) {
	var ops []ir.OperatorRef

	opVal := v.LookupPath(cue.ParsePath("operator"))
	if !opVal.Exists() {
		return ops, nil
	}

	iter, err := opVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		op := ir.OperatorRef{Name: iter.Selector().Unquoted()}
		if op.Description, err = optionalString(iter.Value(), "description"); err != nil {
			return nil, err
		}
		if op.Example, err = optionalString(iter.Value(), "example"); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func optionalString(v cue.Value, path string) (string, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return "", nil
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalStrings(v cue.Value, path string) ([]string, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return nil, nil
	}
	return stringList(val)
}

func stringList(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a schema compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
