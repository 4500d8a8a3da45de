package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/testutil"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_Fixtures(t *testing.T) {
	for _, p := range ir.AllPlatforms() {
		content := testutil.Schema(p)
		assert.Empty(t, Validate(&content), "fixture for %s must validate", p)
	}
	content := testutil.ProcessSchema()
	assert.Empty(t, Validate(&content))
}

func TestValidate_NoDatasets(t *testing.T) {
	errs := Validate(&ir.SchemaContent{})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrNoDatasets, errs[0].Code)
}

func TestValidate_NormalizesFieldTypes(t *testing.T) {
	content := ir.SchemaContent{Datasets: []ir.Dataset{{
		Name: "T",
		Fields: []ir.Field{
			{Name: "a"},
			{Name: "b", Type: "Integer"},
			{Name: "c", Type: "datetime"},
		},
	}}}

	require.Empty(t, Validate(&content))

	fields := content.Datasets[0].Fields
	assert.Equal(t, ir.FieldString, fields[0].Type)
	assert.Equal(t, ir.FieldNumber, fields[1].Type)
	assert.Equal(t, ir.FieldTimestamp, fields[2].Type)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	content := ir.SchemaContent{Datasets: []ir.Dataset{
		{Name: ""},
		{Name: "Events", Fields: []ir.Field{
			{Name: "x"},
			{Name: "x"},
			{Name: ""},
			{Name: "y", Type: "complex"},
			{Name: "bad name"},
		}},
		{Name: "events"},
		{Name: "Other", Aliases: []string{"EVENTS"}},
	}}

	errs := Validate(&content)

	assert.ElementsMatch(t, []string{
		ErrDatasetNameEmpty,
		ErrDuplicateField,
		ErrFieldNameEmpty,
		ErrInvalidFieldType,
		ErrInvalidIdentifier,
		ErrDuplicateDataset,
		ErrDuplicateAlias,
	}, codes(errs))
}

func TestValidate_AliasOfSameDatasetIsFine(t *testing.T) {
	content := ir.SchemaContent{Datasets: []ir.Dataset{
		{Name: "process", Aliases: []string{"Process", "processes"}, Fields: []ir.Field{{Name: "a"}}},
	}}
	assert.Empty(t, Validate(&content))
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{Field: "datasets[0].name", Message: "dataset name is required", Code: ErrDatasetNameEmpty}
	assert.Equal(t, "[E202] datasets[0].name: dataset name is required", e.Error())
}
