package render

import (
	"strconv"
	"strings"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/queryast"
)

// KQL renders Microsoft Defender Advanced Hunting queries.
//
//	DeviceProcessEvents
//	| where Timestamp > ago(1d)
//	| where FileName =~ "powershell.exe"
//	| project Timestamp, DeviceName
//	| order by Timestamp desc
//	| take 100
type KQL struct{}

// Platform implements Renderer.
func (KQL) Platform() ir.PlatformID { return ir.PlatformKQL }

// Render implements Renderer.
func (r KQL) Render(a queryast.AST) (Result, error) {
	lines := []string{a.Dataset}

	if a.TimeWindow > 0 && a.TimeField != "" {
		span, err := shortWindow(ir.PlatformKQL, a.TimeWindow)
		if err != nil {
			return Result{}, err
		}
		lines = append(lines, "| where "+a.TimeField+" > ago("+span+")")
	}

	if len(a.Predicates) > 0 {
		terms := make([]string, len(a.Predicates))
		for i, p := range a.Predicates {
			terms[i] = r.predicate(p)
		}
		if a.EffectiveMode() == queryast.ModeOr {
			lines = append(lines, "| where "+strings.Join(terms, " or "))
		} else {
			for _, t := range terms {
				lines = append(lines, "| where "+t)
			}
		}
	}

	if len(a.Fields) > 0 {
		lines = append(lines, "| project "+strings.Join(a.Fields, ", "))
	}
	if a.Sort != nil {
		lines = append(lines, "| order by "+sortParam(a.Sort))
	}
	lines = append(lines, "| take "+strconv.Itoa(a.Limit))

	return Result{Query: strings.Join(lines, "\n")}, nil
}

func (r KQL) predicate(p queryast.Predicate) string {
	switch p.Operator {
	case queryast.OpIn:
		list := joinMapped(scalars(p.Value), ", ", func(v ir.IRValue) string { return r.literal(p.Type, v) })
		return p.Field + " in (" + list + ")"
	case queryast.OpMatches:
		return p.Field + " matches regex " + r.literal(ir.FieldString, p.Value)
	}
	return p.Field + " " + kqlOperator(p.Operator) + " " + r.literal(p.Type, p.Value)
}

func kqlOperator(op queryast.Operator) string {
	switch op {
	case queryast.OpEq:
		return "=="
	case queryast.OpIEq:
		return "=~"
	}
	return string(op)
}

// literal quotes a scalar. Strings compared against timestamp fields become
// datetime() literals; anything outside the date/time alphabet is quoted
// inside the datetime().
func (KQL) literal(t ir.FieldType, v ir.IRValue) string {
	if isBare(v) {
		return text(v)
	}
	s := text(v)
	if t == ir.FieldTimestamp {
		if isDateTimeText(s) {
			return "datetime(" + s + ")"
		}
		return "datetime(" + kqlString(s) + ")"
	}
	return kqlString(s)
}

func isDateTimeText(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '-', r == ':', r == '.', r == '+', r == 'T', r == 'Z':
		default:
			return false
		}
	}
	return true
}

var kqlEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

func kqlString(s string) string {
	return `"` + kqlEscaper.Replace(s) + `"`
}
