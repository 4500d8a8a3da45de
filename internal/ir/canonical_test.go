package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", IRString("DeviceProcessEvents"), `"DeviceProcessEvents"`},
		{"empty string", IRString(""), `""`},
		{"int", IRInt(42), "42"},
		{"negative int", IRInt(-100), "-100"},
		{"max int64", IRInt(9223372036854775807), "9223372036854775807"},
		{"bool true", IRBool(true), "true"},
		{"bool false", IRBool(false), "false"},
		{"empty array", IRArray{}, "[]"},
		{"empty object", IRObject{}, "{}"},
		{"array of strings", Strings("a", "b"), `["a","b"]`},
		{"go string", "x", `"x"`},
		{"go int", 7, "7"},
		{"go slice", []any{1, "two", true}, `[1,"two",true]`},
		{"go map", map[string]any{"b": 1, "a": "test"}, `{"a":"test","b":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := IRObject{
		"fields": IRObject{"b": IRInt(1), "a": IRInt(2)},
		"alpha":  IRInt(3),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":3,"fields":{"a":2,"b":1}}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+E000 vs U+10000: UTF-16 order differs from UTF-8 order.
	obj := IRObject{
		"": IRInt(1),
		"𐀀": IRInt(2),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"𐀀":2,"`+""+`":1}`, string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(IRString(`FileName has "<a & b>"`))
	require.NoError(t, err)
	assert.Equal(t, `"FileName has \"<a & b>\""`, string(result))
	assert.NotContains(t, string(result), `\u003c`)
	assert.NotContains(t, string(result), `\u003e`)
	assert.NotContains(t, string(result), `\u0026`)
}

func TestMarshalCanonicalRejectsFloatsAndNull(t *testing.T) {
	_, err := MarshalCanonical(3.14)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float")

	_, err = MarshalCanonical(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null")

	_, err = MarshalCanonical([]any{1, 2.5})
	require.Error(t, err)
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	// "é" precomposed vs "e" + combining acute accent
	composed, err := MarshalCanonical(IRString("café"))
	require.NoError(t, err)
	decomposed, err := MarshalCanonical(IRString("café"))
	require.NoError(t, err)

	assert.Equal(t, composed, decomposed)
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"u2028 literal", "a\u2028b", "\"a\u2028b\""},
		{"u2029 literal", "a\u2029b", "\"a\u2029b\""},
		{"escaped backslash kept", `see \u2028`, `"see \\u2028"`},
		{"mixed", "x \\u2028 and \u2028", "\"x \\\\u2028 and \u2028\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(IRString(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func FuzzMarshalCanonicalIdempotent(f *testing.F) {
	f.Add("DeviceProcessEvents", int64(1))
	f.Add("<script>", int64(-5))
	f.Add("\u2028", int64(0))

	f.Fuzz(func(t *testing.T, s string, n int64) {
		obj := IRObject{"s": IRString(s), "n": IRInt(n)}
		first, err := MarshalCanonical(obj)
		if err != nil {
			t.Skip()
		}
		second, err := MarshalCanonical(obj)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}
