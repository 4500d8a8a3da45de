package queryast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperator(t *testing.T) {
	tests := []struct {
		in   string
		want Operator
	}{
		{"", OpEq},
		{"=", OpEq},
		{"EQUALS", OpEq},
		{"<>", OpNe},
		{"has", OpContains},
		{"contains:anycase", OpContains},
		{"  Matches   Regex ", OpMatches},
		{"in:matchcase", OpIn},
		{"gte", OpGe},
		{"begins_with", OpStartsWith},
	}
	for _, tt := range tests {
		got, err := ParseOperator(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseOperator("approximately")
	assert.Error(t, err)
}

func TestOperatorClasses(t *testing.T) {
	assert.True(t, OpGt.Ordering())
	assert.False(t, OpEq.Ordering())
	assert.True(t, OpContains.Textual())
	assert.False(t, OpIn.Textual())
}

func TestParseBooleanMode(t *testing.T) {
	m, err := ParseBooleanMode("or")
	require.NoError(t, err)
	assert.Equal(t, ModeOr, m)

	m, err = ParseBooleanMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeUnset, m)

	_, err = ParseBooleanMode("xor")
	assert.Error(t, err)
}

func TestAST_EffectiveMode(t *testing.T) {
	assert.Equal(t, ModeAnd, AST{}.EffectiveMode())
	assert.Equal(t, ModeOr, AST{Mode: ModeOr}.EffectiveMode())
}

func TestAST_DigestIsDeterministic(t *testing.T) {
	a := validAST()
	b := validAST()

	da, err := a.Digest()
	require.NoError(t, err)
	db, err := b.Digest()
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.Len(t, da, 64)
}

func TestAST_DigestUnsetModeEqualsAnd(t *testing.T) {
	a := validAST()
	b := validAST()
	b.Mode = ModeAnd

	da, _ := a.Digest()
	db, _ := b.Digest()
	assert.Equal(t, da, db)
}

func TestAST_DigestChangesWithContent(t *testing.T) {
	base, _ := validAST().Digest()

	changed := validAST()
	changed.TimeWindow = 48 * time.Hour
	d1, _ := changed.Digest()
	assert.NotEqual(t, base, d1)

	sorted := validAST()
	sorted.Sort = &SortKey{Field: "Timestamp", Descending: true}
	d2, _ := sorted.Digest()
	assert.NotEqual(t, base, d2)

	reordered := validAST()
	reordered.Fields = []string{"DeviceName", "Timestamp"}
	d3, _ := reordered.Digest()
	assert.NotEqual(t, base, d3, "projection order is significant")
}

func TestAST_DigestRejectsMissingValue(t *testing.T) {
	a := validAST()
	a.Predicates = []Predicate{{Field: "FileName", Operator: OpEq}}
	_, err := a.Digest()
	assert.Error(t, err)
}
