package render

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/queryast"
)

// S1QL renders SentinelOne Deep Visibility queries.
//
// Datasets map to event types through EventFilters. A dataset with a filter
// gets a leading meta.event.name clause; the predicates are ANDed after it.
// Time window and limit travel in Result.Params.
//
//	meta.event.name in ('PROCESSCREATION') AND src.process.name = 'cmd.exe'
type S1QL struct {
	EventFilters map[string][]string
}

// Platform implements Renderer.
func (S1QL) Platform() ir.PlatformID { return ir.PlatformS1 }

// Render implements Renderer.
func (r S1QL) Render(a queryast.AST) (Result, error) {
	var clauses []string
	if events := r.EventFilters[a.Dataset]; len(events) > 0 {
		clauses = append(clauses, "meta.event.name in ("+joinMapped(events, ", ", s1String)+")")
	}

	if len(a.Predicates) > 0 {
		terms := make([]string, len(a.Predicates))
		for i, p := range a.Predicates {
			terms[i] = r.predicate(p)
		}
		if a.EffectiveMode() == queryast.ModeOr {
			group := strings.Join(terms, " OR ")
			if len(terms) > 1 && len(clauses) > 0 {
				group = "(" + group + ")"
			}
			clauses = append(clauses, group)
		} else {
			clauses = append(clauses, terms...)
		}
	}

	if len(clauses) == 0 {
		return Result{}, unsupported(ir.PlatformS1, "dataset %s has no event filter and no predicates", a.Dataset)
	}

	params := map[string]string{
		ParamDataset: a.Dataset,
		ParamLimit:   strconv.Itoa(a.Limit),
	}
	if a.TimeWindow > 0 {
		w, err := shortWindow(ir.PlatformS1, a.TimeWindow)
		if err != nil {
			return Result{}, err
		}
		params[ParamTimeWindow] = w
	}
	if len(a.Fields) > 0 {
		params[ParamFields] = strings.Join(a.Fields, ",")
	}
	if a.Sort != nil {
		params[ParamSort] = sortParam(a.Sort)
	}

	return Result{Query: strings.Join(clauses, " AND "), Params: params}, nil
}

func (r S1QL) predicate(p queryast.Predicate) string {
	f := p.Field
	switch p.Operator {
	case queryast.OpEq:
		return f + " = " + s1Literal(p.Value)
	case queryast.OpNe:
		return f + " != " + s1Literal(p.Value)
	case queryast.OpIEq:
		return f + " in:anycase (" + s1Literal(p.Value) + ")"
	case queryast.OpContains:
		return f + " contains:anycase " + s1Literal(p.Value)
	case queryast.OpIn:
		return f + " in:matchcase (" + joinMapped(scalars(p.Value), ", ", s1Literal) + ")"
	case queryast.OpStartsWith:
		return f + " matches " + s1String("^"+regexp.QuoteMeta(text(p.Value)))
	case queryast.OpEndsWith:
		return f + " matches " + s1String(regexp.QuoteMeta(text(p.Value))+"$")
	case queryast.OpMatches:
		return f + " matches " + s1String(text(p.Value))
	}
	return f + " " + string(p.Operator) + " " + s1Literal(p.Value)
}

func s1Literal(v ir.IRValue) string {
	if isBare(v) {
		return text(v)
	}
	return s1String(text(v))
}

var s1Escaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func s1String(s string) string {
	return "'" + s1Escaper.Replace(s) + "'"
}
