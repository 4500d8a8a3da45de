package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/huntql/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrNoDatasets        = "E201" // schema declares no datasets
	ErrDatasetNameEmpty  = "E202" // dataset name is required
	ErrDuplicateDataset  = "E203" // dataset name declared twice
	ErrFieldNameEmpty    = "E204" // field name is required
	ErrDuplicateField    = "E205" // field name declared twice in one dataset
	ErrInvalidFieldType  = "E206" // unknown field type
	ErrInvalidIdentifier = "E207" // name contains characters no dialect accepts
	ErrDuplicateAlias    = "E208" // alias collides with another dataset
)

// identifierPattern matches names every supported dialect accepts unquoted.
// Dots cover S1 paths such as src.process.name.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)

// ValidationError represents one problem found in loaded schema content.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks content and normalizes field types in place.
// Returns all errors found (does not fail-fast).
func Validate(content *ir.SchemaContent) []ValidationError {
	var errs []ValidationError

	if len(content.Datasets) == 0 {
		return []ValidationError{{
			Field:   "datasets",
			Message: "schema must declare at least one dataset",
			Code:    ErrNoDatasets,
		}}
	}

	names := make(map[string]string)
	for i := range content.Datasets {
		ds := &content.Datasets[i]
		path := fmt.Sprintf("datasets[%d]", i)

		if strings.TrimSpace(ds.Name) == "" {
			errs = append(errs, ValidationError{Field: path + ".name", Message: "dataset name is required", Code: ErrDatasetNameEmpty})
			continue
		}
		path = fmt.Sprintf("datasets[%s]", ds.Name)
		if !identifierPattern.MatchString(ds.Name) {
			errs = append(errs, ValidationError{Field: path, Message: fmt.Sprintf("invalid dataset name %q", ds.Name), Code: ErrInvalidIdentifier})
		}

		key := strings.ToLower(ds.Name)
		if prev, dup := names[key]; dup {
			errs = append(errs, ValidationError{Field: path, Message: fmt.Sprintf("dataset %q collides with %q", ds.Name, prev), Code: ErrDuplicateDataset})
		}
		names[key] = ds.Name

		errs = append(errs, validateFields(path, ds)...)
	}

	// Aliases are checked after every dataset name is known.
	for _, ds := range content.Datasets {
		for _, alias := range ds.Aliases {
			key := strings.ToLower(alias)
			if owner, taken := names[key]; taken && owner != ds.Name {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("datasets[%s].aliases", ds.Name),
					Message: fmt.Sprintf("alias %q collides with %q", alias, owner),
					Code:    ErrDuplicateAlias,
				})
				continue
			}
			names[key] = ds.Name
		}
	}

	return errs
}

func validateFields(path string, ds *ir.Dataset) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for j := range ds.Fields {
		f := &ds.Fields[j]
		fpath := fmt.Sprintf("%s.fields[%d]", path, j)

		if strings.TrimSpace(f.Name) == "" {
			errs = append(errs, ValidationError{Field: fpath, Message: "field name is required", Code: ErrFieldNameEmpty})
			continue
		}
		fpath = fmt.Sprintf("%s.fields[%s]", path, f.Name)
		if !identifierPattern.MatchString(f.Name) {
			errs = append(errs, ValidationError{Field: fpath, Message: fmt.Sprintf("invalid field name %q", f.Name), Code: ErrInvalidIdentifier})
		}
		if seen[f.Name] {
			errs = append(errs, ValidationError{Field: fpath, Message: "duplicate field", Code: ErrDuplicateField})
		}
		seen[f.Name] = true

		t, err := ir.ParseFieldType(string(f.Type))
		if err != nil {
			errs = append(errs, ValidationError{Field: fpath + ".type", Message: err.Error(), Code: ErrInvalidFieldType})
			continue
		}
		f.Type = t
	}
	return errs
}
