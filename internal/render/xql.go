package render

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/queryast"
)

// XQL renders Cortex XDR XQL queries.
//
//	dataset = xdr_data
//	| filter _time > current_time() - interval '1 day'
//	| filter action_process_image_name = 'powershell.exe'
//	| fields _time, agent_hostname
//	| sort desc _time
//	| limit 100
type XQL struct{}

// Platform implements Renderer.
func (XQL) Platform() ir.PlatformID { return ir.PlatformCortex }

// Render implements Renderer.
func (r XQL) Render(a queryast.AST) (Result, error) {
	lines := []string{"dataset = " + a.Dataset}

	if a.TimeWindow > 0 && a.TimeField != "" {
		n, unit, err := wholeUnits(ir.PlatformCortex, a.TimeWindow)
		if err != nil {
			return Result{}, err
		}
		lines = append(lines, "| filter "+a.TimeField+" > current_time() - interval '"+xqlInterval(n, unit)+"'")
	}

	if len(a.Predicates) > 0 {
		terms := make([]string, len(a.Predicates))
		for i, p := range a.Predicates {
			terms[i] = r.predicate(p)
		}
		if a.EffectiveMode() == queryast.ModeOr {
			lines = append(lines, "| filter "+strings.Join(terms, " or "))
		} else {
			for _, t := range terms {
				lines = append(lines, "| filter "+t)
			}
		}
	}

	if len(a.Fields) > 0 {
		lines = append(lines, "| fields "+strings.Join(a.Fields, ", "))
	}
	if a.Sort != nil {
		dir := "asc"
		if a.Sort.Descending {
			dir = "desc"
		}
		lines = append(lines, "| sort "+dir+" "+a.Sort.Field)
	}
	lines = append(lines, "| limit "+strconv.Itoa(a.Limit))

	return Result{Query: strings.Join(lines, "\n")}, nil
}

func xqlInterval(n int64, unit string) string {
	word := "hour"
	if unit == "d" {
		word = "day"
	}
	if n != 1 {
		word += "s"
	}
	return strconv.FormatInt(n, 10) + " " + word
}

func (r XQL) predicate(p queryast.Predicate) string {
	f := p.Field
	switch p.Operator {
	case queryast.OpEq:
		return f + " = " + xqlLiteral(p.Value)
	case queryast.OpIEq:
		return "lowercase(" + f + ") = " + xqlString(strings.ToLower(text(p.Value)))
	case queryast.OpContains:
		return f + " contains " + xqlString(text(p.Value))
	case queryast.OpStartsWith:
		return f + " ~= " + xqlString("^"+regexp.QuoteMeta(text(p.Value)))
	case queryast.OpEndsWith:
		return f + " ~= " + xqlString(regexp.QuoteMeta(text(p.Value))+"$")
	case queryast.OpMatches:
		return f + " ~= " + xqlString(text(p.Value))
	case queryast.OpIn:
		return f + " in (" + joinMapped(scalars(p.Value), ", ", xqlLiteral) + ")"
	}
	return f + " " + string(p.Operator) + " " + xqlLiteral(p.Value)
}

// xqlLiteral quotes a scalar. ENUM.* constants stay bare.
func xqlLiteral(v ir.IRValue) string {
	if isBare(v) {
		return text(v)
	}
	s := text(v)
	if strings.HasPrefix(s, "ENUM.") && xqlEnum.MatchString(s) {
		return s
	}
	return xqlString(s)
}

var xqlEnum = regexp.MustCompile(`^ENUM\.[A-Z0-9_]+$`)

var xqlEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

func xqlString(s string) string {
	return "'" + xqlEscaper.Replace(s) + "'"
}
