package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
)

// Document is an insertion-ordered JSON object.
//
// Order matters in the DSL: $orderby is an ordered map, and an assembled
// request lists its sections in a fixed order. Setting an existing key
// updates it in place without moving it.
type Document struct {
	keys []string
	vals map[string]Value
}

func (*Document) dslValue() {}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{vals: make(map[string]Value)}
}

// DocPair is a key/value pair for ordered document construction.
type DocPair struct {
	Key   string
	Value Value
}

// D builds a document from pairs, in order.
// Example: D(P("$eq", D(P("Title", String("x")))))
func D(pairs ...DocPair) *Document {
	doc := NewDocument()
	for _, p := range pairs {
		doc.Set(p.Key, p.Value)
	}
	return doc
}

// P is a shorthand for DocPair.
func P(key string, value Value) DocPair {
	return DocPair{Key: key, Value: value}
}

// Set inserts or updates key. Updates keep the original position.
func (d *Document) Set(key string, v Value) {
	if d.vals == nil {
		d.vals = make(map[string]Value)
	}
	if _, ok := d.vals[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.vals[key] = v
}

// Get returns the value at key.
func (d *Document) Get(key string) (Value, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.vals[key]
	return v, ok
}

// MustGet returns the value at key, or nil when absent.
func (d *Document) MustGet(key string) Value {
	v, _ := d.Get(key)
	return v
}

// Has reports whether key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Delete removes key, preserving the order of the remaining keys.
func (d *Document) Delete(key string) {
	if d == nil {
		return
	}
	if _, ok := d.vals[key]; !ok {
		return
	}
	delete(d.vals, key)
	d.keys = slices.DeleteFunc(d.keys, func(k string) bool { return k == key })
}

// Len returns the number of keys.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Keys returns a copy of the keys in insertion order.
func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}
	return slices.Clone(d.keys)
}

// All iterates over key/value pairs in insertion order.
func (d *Document) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if d == nil {
			return
		}
		for _, k := range d.keys {
			if !yield(k, d.vals[k]) {
				return
			}
		}
	}
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
func (d *Document) SortedKeys() []string {
	keys := d.Keys()
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// MarshalJSON implements json.Marshaler, preserving insertion order.
func (d *Document) MarshalJSON() ([]byte, error) {
	return MarshalValue(d)
}

// DuplicateKeyError reports an object key that appears twice.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %q", e.Key)
}

// DecodeJSON decodes one strict JSON value, keeping object key order.
// Numbers become Int or Decimal, never float64. Duplicate object keys
// and trailing data are rejected.
func DecodeJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return NumberFromText(string(t))
	case json.Delim:
		switch t {
		case '[':
			arr := Array{}
			for dec.More() {
				elem, err := decodeValue(dec)
				if err != nil {
					return nil, fmt.Errorf("array[%d]: %w", len(arr), err)
				}
				arr = append(arr, elem)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		case '{':
			doc := NewDocument()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not string", keyTok)
				}
				if doc.Has(key) {
					return nil, &DuplicateKeyError{Key: key}
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, fmt.Errorf("object[%q]: %w", key, err)
				}
				doc.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return doc, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}
