package render

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/queryast"
)

// CBC renders Carbon Black Cloud Lucene-style queries.
//
// The dialect has no inline limit, time or projection clauses. Those travel
// in Result.Params as search_type, rows, time_range, fields and sort.
//
//	process_name:powershell.exe AND -device_os:MAC
type CBC struct{}

// Platform implements Renderer.
func (CBC) Platform() ir.PlatformID { return ir.PlatformCBC }

// Render implements Renderer.
func (r CBC) Render(a queryast.AST) (Result, error) {
	if len(a.Predicates) == 0 {
		return Result{}, unsupported(ir.PlatformCBC, "a search needs at least one filter")
	}

	terms := make([]string, len(a.Predicates))
	for i, p := range a.Predicates {
		t, err := r.term(p)
		if err != nil {
			return Result{}, err
		}
		terms[i] = t
	}
	sep := " AND "
	if a.EffectiveMode() == queryast.ModeOr {
		sep = " OR "
	}

	params := map[string]string{
		ParamSearchType: a.Dataset,
		ParamRows:       strconv.Itoa(a.Limit),
	}
	if a.TimeWindow > 0 {
		w, err := shortWindow(ir.PlatformCBC, a.TimeWindow)
		if err != nil {
			return Result{}, err
		}
		params[ParamTimeRange] = "-" + w
	}
	if len(a.Fields) > 0 {
		params[ParamFields] = strings.Join(a.Fields, ",")
	}
	if a.Sort != nil {
		params[ParamSort] = sortParam(a.Sort)
	}

	return Result{Query: strings.Join(terms, sep), Params: params}, nil
}

func (r CBC) term(p queryast.Predicate) (string, error) {
	f := p.Field
	switch p.Operator {
	case queryast.OpEq, queryast.OpIEq:
		return f + ":" + cbcExact(p.Value), nil
	case queryast.OpNe:
		return "-" + f + ":" + cbcExact(p.Value), nil
	case queryast.OpContains:
		return f + ":*" + cbcEscape(text(p.Value)) + "*", nil
	case queryast.OpStartsWith:
		return f + ":" + cbcEscape(text(p.Value)) + "*", nil
	case queryast.OpEndsWith:
		return f + ":*" + cbcEscape(text(p.Value)), nil
	case queryast.OpIn:
		vals := scalars(p.Value)
		if len(vals) == 1 {
			return f + ":" + cbcExact(vals[0]), nil
		}
		return "(" + joinMapped(vals, " OR ", func(v ir.IRValue) string { return f + ":" + cbcExact(v) }) + ")", nil
	case queryast.OpGt:
		return f + ":{" + cbcExact(p.Value) + " TO *]", nil
	case queryast.OpGe:
		return f + ":[" + cbcExact(p.Value) + " TO *]", nil
	case queryast.OpLt:
		return f + ":[* TO " + cbcExact(p.Value) + "}", nil
	case queryast.OpLe:
		return f + ":[* TO " + cbcExact(p.Value) + "]", nil
	}
	return "", unsupported(ir.PlatformCBC, "operator %s is not supported", p.Operator)
}

// cbcExact renders a value for an exact term. Values containing whitespace
// are phrase-quoted; others have Lucene specials escaped.
func cbcExact(v ir.IRValue) string {
	if isBare(v) {
		return text(v)
	}
	s := text(v)
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 || s == "" {
		return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
	}
	return cbcEscape(s)
}

// cbcSpecials are the Lucene query syntax characters.
const cbcSpecials = `+-&|!(){}[]^"~*?:\/`

// cbcEscape backslash-escapes Lucene specials and whitespace. Used for
// wildcard terms, which cannot be phrase-quoted.
func cbcEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(cbcSpecials, r) || unicode.IsSpace(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
