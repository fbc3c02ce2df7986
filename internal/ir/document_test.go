package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentSetKeepsPosition(t *testing.T) {
	doc := NewDocument()
	doc.Set("a", Int(1))
	doc.Set("b", Int(2))
	doc.Set("a", Int(3))

	assert.Equal(t, []string{"a", "b"}, doc.Keys())
	assert.Equal(t, Int(3), doc.MustGet("a"))
	assert.Equal(t, 2, doc.Len())
}

func TestDocumentDelete(t *testing.T) {
	doc := D(P("a", Int(1)), P("b", Int(2)), P("c", Int(3)))
	doc.Delete("b")
	doc.Delete("missing")

	assert.Equal(t, []string{"a", "c"}, doc.Keys())
	assert.False(t, doc.Has("b"))
}

func TestDocumentAllIterates(t *testing.T) {
	doc := D(P("x", Int(1)), P("y", Int(2)))

	var keys []string
	for k := range doc.All() {
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"x", "y"}, keys)
}

func TestNilDocumentIsEmpty(t *testing.T) {
	var doc *Document
	assert.Equal(t, 0, doc.Len())
	assert.Nil(t, doc.Keys())
	assert.False(t, doc.Has("a"))
}

func TestDecodeJSONPreservesOrder(t *testing.T) {
	v, err := DecodeJSON([]byte(`{"z": 1, "a": {"y": [1, 2.5, "s", true, null]}}`))
	require.NoError(t, err)

	doc, ok := v.(*Document)
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a"}, doc.Keys())

	inner := doc.MustGet("a").(*Document)
	arr := inner.MustGet("y").(Array)
	require.Len(t, arr, 5)
	assert.Equal(t, Int(1), arr[0])
	assert.Equal(t, "2.5", arr[1].(Decimal).String())
	assert.Equal(t, String("s"), arr[2])
	assert.Equal(t, Bool(true), arr[3])
	assert.Equal(t, Null{}, arr[4])
}

func TestDecodeJSONRejectsDuplicateKeys(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"a": 1, "a": 2}`))

	var dup *DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "a", dup.Key)
}

func TestDecodeJSONRejectsTrailingData(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"a": 1} {"b": 2}`))
	assert.Error(t, err)
}

func TestDecodeJSONRejectsInvalid(t *testing.T) {
	_, err := DecodeJSON([]byte(`{a: 1}`))
	assert.Error(t, err)
}

func TestDocumentRoundTrip(t *testing.T) {
	in := `{"$query":[{"$eq":{"Title":"x"}}],"$filter":{"$limit":10}}`

	v, err := DecodeJSON([]byte(in))
	require.NoError(t, err)

	out, err := MarshalValue(v)
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}
