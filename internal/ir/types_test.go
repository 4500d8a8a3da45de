package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformValid(t *testing.T) {
	for _, p := range AllPlatforms() {
		assert.True(t, p.Valid(), p)
	}
	assert.False(t, PlatformID("splunk").Valid())
	assert.False(t, PlatformID("").Valid())
}

func TestParseFieldType(t *testing.T) {
	tests := []struct {
		in      string
		want    FieldType
		wantErr bool
	}{
		{"", FieldString, false},
		{"string", FieldString, false},
		{" IP ", FieldIP, false},
		{"long", FieldNumber, false},
		{"boolean", FieldBool, false},
		{"datetime", FieldTimestamp, false},
		{"enum", FieldEnum, false},
		{"blob", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFieldType(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDatasetLookups(t *testing.T) {
	d := Dataset{
		Name: "process",
		Fields: []Field{
			{Name: "process_name", Type: FieldString, Default: true},
			{Name: "process_pid", Type: FieldNumber},
			{Name: "event_type", Type: FieldEnum, Values: []string{"filemod", "netconn"}},
		},
		Operators: []string{"==", "!="},
	}

	f, ok := d.Field("process_pid")
	require.True(t, ok)
	assert.Equal(t, FieldNumber, f.Type)

	_, ok = d.Field("Process_Name")
	assert.False(t, ok, "field lookup is case-sensitive")

	assert.Equal(t, []string{"process_name", "process_pid", "event_type"}, d.FieldNames())
	assert.Equal(t, []string{"process_name"}, d.DefaultFields())
	assert.True(t, d.AllowsOperator("=="))
	assert.False(t, d.AllowsOperator("contains"))
	assert.True(t, Dataset{}.AllowsOperator("contains"))

	enum, _ := d.Field("event_type")
	assert.True(t, enum.AllowsValue("netconn"))
	assert.False(t, enum.AllowsValue("regmod"))
}

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "kql:field:deviceprocessevents", DocumentID(PlatformKQL, KindField, "DeviceProcessEvents"))
	assert.Equal(t, "s1:best_practice:performance-tips", DocumentID(PlatformS1, KindBestPractice, "Performance Tips!"))
	assert.Equal(t, "cbc:example:a.b_c", DocumentID(PlatformCBC, KindExample, "a.b_c"))
	assert.Equal(t, "kql:operator:x3d7e", DocumentID(PlatformKQL, KindOperator, "=~"))
}

func TestSchemaContentMerge(t *testing.T) {
	c := SchemaContent{Datasets: []Dataset{{Name: "a"}}}
	c.Merge(SchemaContent{Datasets: []Dataset{{Name: "b"}}, Operators: []OperatorRef{{Name: "=="}}})

	assert.Len(t, c.Datasets, 2)
	assert.Len(t, c.Operators, 1)
}
