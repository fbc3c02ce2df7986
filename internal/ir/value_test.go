package ir

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberFromText(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{"42", Int(42)},
		{"-7", Int(-7)},
		{"9223372036854775807", Int(9223372036854775807)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NumberFromText(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("decimal", func(t *testing.T) {
		got, err := NumberFromText("12.50")
		require.NoError(t, err)
		d, ok := got.(Decimal)
		require.True(t, ok)
		assert.Equal(t, "12.5", d.String())
	})

	t.Run("beyond int64", func(t *testing.T) {
		got, err := NumberFromText("9223372036854775808")
		require.NoError(t, err)
		_, ok := got.(Decimal)
		assert.True(t, ok)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := NumberFromText("twelve")
		assert.Error(t, err)
	})
}

func TestCompare(t *testing.T) {
	half, err := NewDecimal("0.5")
	require.NoError(t, err)

	tests := []struct {
		name   string
		a, b   Value
		cmp    int
		wantOK bool
	}{
		{"int less", Int(1), Int(2), -1, true},
		{"int vs decimal", Int(1), half, 1, true},
		{"strings", String("a"), String("b"), -1, true},
		{"equal strings", String("x"), String("x"), 0, true},
		{"string vs int", String("1"), Int(1), 0, false},
		{"bools", Bool(true), Bool(false), 0, false},
		{"null", Null{}, Int(0), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp, ok := Compare(tt.a, tt.b)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.cmp, cmp)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	one, err := NewDecimal("1.0")
	require.NoError(t, err)

	assert.True(t, Equal(Int(1), one))
	assert.True(t, Equal(Null{}, Null{}))
	assert.True(t, Equal(Array{Int(1), String("a")}, Array{Int(1), String("a")}))
	assert.False(t, Equal(Array{Int(1)}, Array{Int(1), Int(2)}))
	assert.True(t, Equal(D(P("a", Int(1)), P("b", Bool(true))), D(P("b", Bool(true)), P("a", Int(1)))))
	assert.False(t, Equal(D(P("a", Int(1))), D(P("a", Int(2)))))
	assert.False(t, Equal(Bool(true), String("true")))
}

func TestFromNative(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null{}},
		{"string", "x", String("x")},
		{"int", 3, Int(3)},
		{"int64", int64(4), Int(4)},
		{"whole float", 5.0, Int(5)},
		{"bool", true, Bool(true)},
		{"value passthrough", String("v"), String("v")},
		{"string slice", []string{"a", "b"}, Array{String("a"), String("b")}},
		{"any slice", []any{"a", 1}, Array{String("a"), Int(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromNative(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("fractional float", func(t *testing.T) {
		got, err := FromNative(2.5)
		require.NoError(t, err)
		assert.Equal(t, "2.5", got.(Decimal).String())
	})

	t.Run("decimal", func(t *testing.T) {
		got, err := FromNative(decimal.RequireFromString("3.25"))
		require.NoError(t, err)
		assert.Equal(t, "3.25", got.(Decimal).String())
	})

	t.Run("map sorted", func(t *testing.T) {
		got, err := FromNative(map[string]any{"b": 1, "a": 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, got.(*Document).Keys())
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := FromNative(struct{}{})
		assert.Error(t, err)
	})
}

func TestNative(t *testing.T) {
	d, err := NewDecimal("1.25")
	require.NoError(t, err)

	doc := D(P("s", String("x")), P("n", Int(2)), P("d", d), P("arr", Array{Null{}, Bool(false)}))
	got := Native(doc)

	assert.Equal(t, map[string]any{
		"s":   "x",
		"n":   int64(2),
		"d":   json.Number("1.25"),
		"arr": []any{nil, false},
	}, got)
}

func TestMarshalValuePreservesOrder(t *testing.T) {
	doc := D(P("zeta", Int(1)), P("alpha", String("<b>")), P("mid", Array{Null{}}))

	out, err := MarshalValue(doc)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":"<b>","mid":[null]}`, string(out))
}

func TestIsScalarAndTypeName(t *testing.T) {
	assert.True(t, IsScalar(String("a")))
	assert.True(t, IsScalar(Null{}))
	assert.False(t, IsScalar(Array{}))
	assert.False(t, IsScalar(NewDocument()))

	assert.Equal(t, "number", TypeName(Int(1)))
	assert.Equal(t, "object", TypeName(NewDocument()))
	assert.Equal(t, "array", TypeName(Array{}))
	assert.True(t, IsNumber(Int(1)))
	assert.False(t, IsNumber(String("1")))
}
