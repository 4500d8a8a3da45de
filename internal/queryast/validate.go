package queryast

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/qerr"
)

// Validate checks that every identifier in the AST exists in ds and that
// every predicate is well-typed for its field.
//
// Rules:
//  1. Dataset must match ds.Name
//  2. Projected, predicate, time and sort fields exist in ds (case-sensitive)
//  3. Operators are allowed by the dataset and fit the field type
//  4. "in" takes a non-empty array; every other operator takes a scalar
//  5. Enum values are members of the enum
//  6. Limit > 0 and time window >= 0
//
// All problems are reported together in one QueryBuildError.
// Validate is a pure function with no side effects.
func Validate(a AST, ds ir.Dataset) error {
	v := &validator{ds: ds}
	v.validate(a)
	if len(v.problems) == 0 {
		return nil
	}
	return qerr.New(qerr.KindQueryBuild, "invalid query for %s: %s", ds.Name, strings.Join(v.problems, "; "))
}

// validator accumulates problems during traversal.
type validator struct {
	ds       ir.Dataset
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validate(a AST) {
	if a.Dataset != v.ds.Name {
		v.addProblem("dataset %q does not match %q", a.Dataset, v.ds.Name)
	}
	if a.Limit <= 0 {
		v.addProblem("limit must be positive, got %d", a.Limit)
	}
	if a.TimeWindow < 0 {
		v.addProblem("time window must not be negative")
	}
	if a.Mode != ModeUnset && a.Mode != ModeAnd && a.Mode != ModeOr {
		v.addProblem("unknown boolean mode %q", a.Mode)
	}

	seen := make(map[string]bool, len(a.Fields))
	for _, f := range a.Fields {
		if seen[f] {
			v.addProblem("field %q projected twice", f)
		}
		seen[f] = true
		v.requireField(f, "projected")
	}

	if a.TimeField != "" {
		if f, ok := v.requireField(a.TimeField, "time"); ok && f.Type != ir.FieldTimestamp {
			v.addProblem("time field %q is %s, not timestamp", f.Name, f.Type)
		}
	}
	if a.Sort != nil {
		v.requireField(a.Sort.Field, "sort")
	}

	for i, p := range a.Predicates {
		v.validatePredicate(i, p)
	}
}

func (v *validator) requireField(name, role string) (ir.Field, bool) {
	f, ok := v.ds.Field(name)
	if !ok {
		v.addProblem("%s field %q not in %s", role, name, v.ds.Name)
	}
	return f, ok
}

func (v *validator) validatePredicate(i int, p Predicate) {
	f, ok := v.requireField(p.Field, fmt.Sprintf("predicate[%d]", i))
	if !ok {
		return
	}
	if _, known := operatorAliases[string(p.Operator)]; !known || p.Operator == "" {
		v.addProblem("predicate[%d]: unknown operator %q", i, p.Operator)
		return
	}
	if !v.ds.AllowsOperator(string(p.Operator)) {
		v.addProblem("predicate[%d]: operator %s not allowed on %s", i, p.Operator, v.ds.Name)
	}
	if p.Value == nil {
		v.addProblem("predicate[%d]: missing value", i)
		return
	}
	if p.Type != "" && p.Type != f.Type {
		v.addProblem("predicate[%d]: %s is %s, not %s", i, f.Name, f.Type, p.Type)
	}

	if p.Operator.Ordering() && !f.Type.Ordered() {
		v.addProblem("predicate[%d]: %s needs a number or timestamp field, %s is %s", i, p.Operator, f.Name, f.Type)
	}
	if p.Operator.Textual() && (f.Type == ir.FieldNumber || f.Type == ir.FieldBool) {
		v.addProblem("predicate[%d]: %s needs a text field, %s is %s", i, p.Operator, f.Name, f.Type)
	}

	if p.Operator == OpIn {
		arr, isArr := p.Value.(ir.IRArray)
		if !isArr || len(arr) == 0 {
			v.addProblem("predicate[%d]: in needs a non-empty list", i)
			return
		}
		for j, elem := range arr {
			v.validateScalar(fmt.Sprintf("predicate[%d][%d]", i, j), f, elem)
		}
		return
	}
	if _, isArr := p.Value.(ir.IRArray); isArr {
		v.addProblem("predicate[%d]: %s takes a single value", i, p.Operator)
		return
	}
	if p.Operator == OpMatches {
		if s, isStr := p.Value.(ir.IRString); isStr {
			if _, err := regexp.Compile(string(s)); err != nil {
				v.addProblem("predicate[%d]: invalid regular expression: %v", i, err)
			}
		}
	}
	v.validateScalar(fmt.Sprintf("predicate[%d]", i), f, p.Value)
}

func (v *validator) validateScalar(where string, f ir.Field, val ir.IRValue) {
	switch x := val.(type) {
	case ir.IRObject, ir.IRArray:
		v.addProblem("%s: nested values are not supported", where)
	case ir.IRString:
		if f.Type == ir.FieldNumber {
			v.addProblem("%s: %s expects a number, got %q", where, f.Name, string(x))
		}
		if !f.AllowsValue(string(x)) {
			v.addProblem("%s: %q is not one of %s", where, string(x), strings.Join(f.Values, ", "))
		}
	case ir.IRInt:
		if f.Type == ir.FieldEnum || f.Type == ir.FieldBool {
			v.addProblem("%s: %s does not take a number", where, f.Name)
		}
	case ir.IRBool:
		if f.Type != ir.FieldBool {
			v.addProblem("%s: %s does not take a boolean", where, f.Name)
		}
	}
}
