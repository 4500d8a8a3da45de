package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectSortedKeys(t *testing.T) {
	obj := IRObject{
		"a":  IRInt(1),
		"A":  IRInt(2),
		"aa": IRInt(3),
		"Aa": IRInt(4),
	}

	assert.Equal(t, []string{"A", "Aa", "a", "aa"}, obj.SortedKeys())
}

func TestIRObjectMarshalJSON(t *testing.T) {
	obj := IRObject{
		"zeta":  Strings("x", "y"),
		"alpha": IRBool(true),
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":true,"zeta":["x","y"]}`, string(data))
}

func TestValueOf(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    IRValue
		wantErr bool
	}{
		{"string", "cmd.exe", IRString("cmd.exe"), false},
		{"int", 4624, IRInt(4624), false},
		{"int64", int64(-1), IRInt(-1), false},
		{"bool", true, IRBool(true), false},
		{"integral float", float64(445), IRInt(445), false},
		{"fractional float", 1.5, nil, true},
		{"json number", json.Number("80"), IRInt(80), false},
		{"json number fraction", json.Number("8.5"), nil, true},
		{"string slice", []string{"a", "b"}, Strings("a", "b"), false},
		{"any slice", []any{"a", 1}, IRArray{IRString("a"), IRInt(1)}, false},
		{"nil", nil, nil, true},
		{"unsupported", struct{}{}, nil, true},
		{"nested nil", []any{nil}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValueOf(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "powershell.exe", Text(IRString("powershell.exe")))
	assert.Equal(t, "443", Text(IRInt(443)))
	assert.Equal(t, "false", Text(IRBool(false)))
	assert.Equal(t, "a,1", Text(IRArray{IRString("a"), IRInt(1)}))
	assert.Equal(t, `{"k":"v"}`, Text(IRObject{"k": IRString("v")}))
}
