// Package render turns a validated queryast.AST into dialect query text.
//
// Renderers are pure: no I/O, no schema lookups, no clocks. The same AST
// always renders to byte-identical text. Everything a renderer needs (field
// types, the time field, event filters) is either in the AST or fixed at
// construction.
//
// Errors are reserved for dialect-level invariant violations, such as an
// operator the dialect cannot express. They are always QueryBuildErrors.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/qerr"
	"github.com/roach88/huntql/internal/queryast"
)

// Result is rendered query text plus values the dialect cannot express
// inline (CBC rows and time range, S1 time window and limit).
type Result struct {
	Query  string            `json:"query"`
	Params map[string]string `json:"params,omitempty"`
}

// Renderer renders ASTs for one platform.
type Renderer interface {
	Platform() ir.PlatformID
	Render(a queryast.AST) (Result, error)
}

// Param keys shared by renderers that pass values out of band.
const (
	ParamDataset    = "dataset"
	ParamSearchType = "search_type"
	ParamRows       = "rows"
	ParamLimit      = "limit"
	ParamTimeRange  = "time_range"
	ParamTimeWindow = "time_window"
	ParamFields     = "fields"
	ParamSort       = "sort"
)

func unsupported(p ir.PlatformID, format string, args ...any) error {
	return qerr.New(qerr.KindQueryBuild, "%s: %s", p, fmt.Sprintf(format, args...))
}

// wholeUnits splits d into a count of days when it divides evenly, otherwise
// hours. Windows that are not whole hours are rejected.
func wholeUnits(p ir.PlatformID, d time.Duration) (int64, string, error) {
	if d <= 0 || d%time.Hour != 0 {
		return 0, "", unsupported(p, "time window %s is not a positive whole number of hours", d)
	}
	if d%(24*time.Hour) == 0 {
		return int64(d / (24 * time.Hour)), "d", nil
	}
	return int64(d / time.Hour), "h", nil
}

// shortWindow formats d as "7d" or "36h".
func shortWindow(p ir.PlatformID, d time.Duration) (string, error) {
	n, unit, err := wholeUnits(p, d)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10) + unit, nil
}

// scalars flattens an "in" list, or wraps a single value.
func scalars(v ir.IRValue) []ir.IRValue {
	if arr, ok := v.(ir.IRArray); ok {
		return arr
	}
	return []ir.IRValue{v}
}

// text returns the unquoted text of a scalar.
func text(v ir.IRValue) string {
	switch x := v.(type) {
	case ir.IRString:
		return string(x)
	case ir.IRInt:
		return strconv.FormatInt(int64(x), 10)
	case ir.IRBool:
		return strconv.FormatBool(bool(x))
	}
	return ir.Text(v)
}

// isBare reports whether v renders without quotes in every dialect.
func isBare(v ir.IRValue) bool {
	switch v.(type) {
	case ir.IRInt, ir.IRBool:
		return true
	}
	return false
}

// joinMapped applies f to each element and joins with sep.
func joinMapped[T any](items []T, sep string, f func(T) string) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = f(it)
	}
	return strings.Join(parts, sep)
}

// sortParam renders a sort key as "field desc".
func sortParam(s *queryast.SortKey) string {
	dir := "asc"
	if s.Descending {
		dir = "desc"
	}
	return s.Field + " " + dir
}
