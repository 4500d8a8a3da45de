package builder

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/queryast"
)

// convertValue coerces a decoded request value to the literal f expects.
// "in" takes a list (a comma-separated string is split); every other operator
// takes one scalar.
func convertValue(f ir.Field, op queryast.Operator, raw any) (ir.IRValue, error) {
	if op == queryast.OpIn {
		return convertList(f, raw)
	}
	v, err := ir.ValueOf(raw)
	if err != nil {
		return nil, err
	}
	if arr, ok := v.(ir.IRArray); ok {
		if len(arr) != 1 {
			return nil, fmt.Errorf("%s takes a single value, got %d", op, len(arr))
		}
		v = arr[0]
	}
	return convertScalar(f, v)
}

func convertList(f ir.Field, raw any) (ir.IRValue, error) {
	if s, ok := raw.(string); ok {
		var parts []any
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		raw = parts
	}
	v, err := ir.ValueOf(raw)
	if err != nil {
		return nil, err
	}
	arr, ok := v.(ir.IRArray)
	if !ok {
		arr = ir.IRArray{v}
	}
	if len(arr) == 0 {
		return nil, fmt.Errorf("in needs at least one value")
	}
	out := make(ir.IRArray, len(arr))
	for i, elem := range arr {
		c, err := convertScalar(f, elem)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

func convertScalar(f ir.Field, v ir.IRValue) (ir.IRValue, error) {
	switch f.Type {
	case ir.FieldNumber:
		switch x := v.(type) {
		case ir.IRInt:
			return x, nil
		case ir.IRString:
			n, err := strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s expects a whole number, got %q", f.Name, string(x))
			}
			return ir.IRInt(n), nil
		}
	case ir.FieldBool:
		switch x := v.(type) {
		case ir.IRBool:
			return x, nil
		case ir.IRString:
			b, err := strconv.ParseBool(strings.TrimSpace(string(x)))
			if err != nil {
				return nil, fmt.Errorf("%s expects true or false, got %q", f.Name, string(x))
			}
			return ir.IRBool(b), nil
		}
	case ir.FieldTimestamp:
		switch x := v.(type) {
		case ir.IRString:
			ts := strings.TrimSpace(string(x))
			if !isTimestamp(ts) {
				return nil, fmt.Errorf("%s expects an RFC 3339 timestamp or a YYYY-MM-DD date, got %q", f.Name, string(x))
			}
			return ir.IRString(ts), nil
		case ir.IRInt:
			return ir.IRString(ir.Text(x)), nil
		}
	default:
		switch x := v.(type) {
		case ir.IRString:
			return x, nil
		case ir.IRInt, ir.IRBool:
			return ir.IRString(ir.Text(x)), nil
		}
	}
	return nil, fmt.Errorf("%s does not take a %T", f.Name, v)
}

// timestampLayouts are the literal forms a timestamp filter accepts.
var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func isTimestamp(s string) bool {
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// stringValues returns every string literal in v, for pattern scanning.
func stringValues(v ir.IRValue) []string {
	switch x := v.(type) {
	case ir.IRString:
		return []string{string(x)}
	case ir.IRArray:
		var out []string
		for _, elem := range x {
			out = append(out, stringValues(elem)...)
		}
		return out
	}
	return nil
}
