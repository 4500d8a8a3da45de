package queryast

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/huntql/internal/ir"
)

// Operator is a platform-neutral comparison operator.
type Operator string

const (
	OpEq         Operator = "=="
	OpNe         Operator = "!="
	OpIEq        Operator = "=~" // case-insensitive equality
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startswith"
	OpEndsWith   Operator = "endswith"
	OpIn         Operator = "in"
	OpGt         Operator = ">"
	OpGe         Operator = ">="
	OpLt         Operator = "<"
	OpLe         Operator = "<="
	OpMatches    Operator = "matches" // regular expression
)

var operatorAliases = map[string]Operator{
	"==": OpEq, "=": OpEq, "eq": OpEq, "equals": OpEq, "is": OpEq,
	"!=": OpNe, "<>": OpNe, "ne": OpNe, "not_equals": OpNe, "is_not": OpNe,
	"=~": OpIEq, "ieq": OpIEq, "equals_anycase": OpIEq, "eq:anycase": OpIEq,
	"contains": OpContains, "has": OpContains, "contains:anycase": OpContains, "containscis": OpContains, "like": OpContains,
	"startswith": OpStartsWith, "starts_with": OpStartsWith, "beginswith": OpStartsWith, "begins_with": OpStartsWith,
	"endswith": OpEndsWith, "ends_with": OpEndsWith,
	"in": OpIn, "in:anycase": OpIn, "in:matchcase": OpIn, "in~": OpIn,
	">": OpGt, "gt": OpGt,
	">=": OpGe, "gte": OpGe, "ge": OpGe,
	"<": OpLt, "lt": OpLt,
	"<=": OpLe, "lte": OpLe, "le": OpLe,
	"matches": OpMatches, "regex": OpMatches, "regexp": OpMatches, "matches regex": OpMatches, "~=": OpMatches,
}

// ParseOperator resolves an operator spelling to its neutral form.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseOperator(s string) (Operator, error) {
	key := strings.ToLower(strings.Join(strings.Fields(s), " "))
	if key == "" {
		return OpEq, nil
	}
	if op, ok := operatorAliases[key]; ok {
		return op, nil
	}
	return "", fmt.Errorf("unknown operator %q", s)
}

// Ordering reports whether op compares by order.
func (op Operator) Ordering() bool {
	switch op {
	case OpGt, OpGe, OpLt, OpLe:
		return true
	}
	return false
}

// Textual reports whether op only makes sense against text.
func (op Operator) Textual() bool {
	switch op {
	case OpIEq, OpContains, OpStartsWith, OpEndsWith, OpMatches:
		return true
	}
	return false
}

// BooleanMode joins an AST's predicates.
type BooleanMode string

const (
	ModeUnset BooleanMode = ""
	ModeAnd   BooleanMode = "AND"
	ModeOr    BooleanMode = "OR"
)

// ParseBooleanMode accepts "and"/"or" in any case. Empty means unset.
func ParseBooleanMode(s string) (BooleanMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return ModeUnset, nil
	case "AND", "&&":
		return ModeAnd, nil
	case "OR", "||":
		return ModeOr, nil
	}
	return "", fmt.Errorf("boolean mode must be AND or OR, got %q", s)
}

// Predicate is one field comparison. Type is the field's declared type,
// copied in during validation so renderers can format literals without a
// schema lookup.
type Predicate struct {
	Field    string       `json:"field"`
	Operator Operator     `json:"operator"`
	Value    ir.IRValue   `json:"value"`
	Type     ir.FieldType `json:"type,omitempty"`
}

// SortKey orders results by one field.
type SortKey struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending"`
}

// AST is a validated, platform-neutral hunting query.
//
// Semantics:
//
//	FROM <dataset>
//	WHERE <time field> within <time window>
//	  AND (<p1> <mode> <p2> <mode> ...)
//	PROJECT <fields>
//	ORDER BY <sort>
//	LIMIT <limit>
type AST struct {
	Platform   ir.PlatformID `json:"platform"`
	Dataset    string        `json:"dataset"`
	Fields     []string      `json:"fields,omitempty"`
	Predicates []Predicate   `json:"predicates,omitempty"`
	Mode       BooleanMode   `json:"mode"`
	TimeField  string        `json:"time_field,omitempty"`
	TimeWindow time.Duration `json:"time_window,omitempty"`
	Sort       *SortKey      `json:"sort,omitempty"`
	Limit      int           `json:"limit"`
}

// EffectiveMode returns the mode, treating unset as AND.
func (a AST) EffectiveMode() BooleanMode {
	if a.Mode == ModeUnset {
		return ModeAnd
	}
	return a.Mode
}

// Canonical returns the canonical encoding used by Digest.
func (a AST) Canonical() ir.IRObject {
	preds := make(ir.IRArray, len(a.Predicates))
	for i, p := range a.Predicates {
		preds[i] = ir.IRObject{
			"field":    ir.IRString(p.Field),
			"operator": ir.IRString(p.Operator),
			"value":    p.Value,
			"type":     ir.IRString(p.Type),
		}
	}
	obj := ir.IRObject{
		"platform":    ir.IRString(a.Platform),
		"dataset":     ir.IRString(a.Dataset),
		"fields":      ir.Strings(a.Fields...),
		"predicates":  preds,
		"mode":        ir.IRString(a.EffectiveMode()),
		"time_field":  ir.IRString(a.TimeField),
		"time_window": ir.IRInt(int64(a.TimeWindow / time.Second)),
		"limit":       ir.IRInt(a.Limit),
	}
	if a.Sort != nil {
		obj["sort"] = ir.IRObject{
			"field":      ir.IRString(a.Sort.Field),
			"descending": ir.IRBool(a.Sort.Descending),
		}
	}
	return obj
}

// Digest returns the content hash of the AST.
func (a AST) Digest() (string, error) {
	return ir.HashCanonical(ir.DomainAST, a.Canonical())
}
