package queryir

import (
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FromFind builds a Select over table from a document filter and find
// options. Only limit, skip and sort are read from opts; projection is
// applied by the store after decoding.
func FromFind(table string, filter bson.D, opts *options.FindOptions) (*Select, error) {
	pred, err := FromFilter(filter)
	if err != nil {
		return nil, err
	}
	sel := &Select{From: table, Filter: pred}
	if opts == nil {
		return sel, nil
	}
	if opts.Limit != nil {
		sel.Limit = *opts.Limit
	}
	if opts.Skip != nil {
		sel.Offset = *opts.Skip
	}
	if opts.Sort != nil {
		sort, ok := opts.Sort.(bson.D)
		if !ok {
			return nil, fmt.Errorf("sort must be bson.D, got %T", opts.Sort)
		}
		for _, e := range sort {
			dir, err := integer(e.Value)
			if err != nil {
				return nil, fmt.Errorf("sort %s: %w", e.Key, err)
			}
			sel.Order = append(sel.Order, OrderKey{Path: ParsePath(e.Key), Desc: dir < 0})
		}
	}
	return sel, nil
}

// FromFilter decodes a document filter. An empty filter yields nil.
func FromFilter(filter bson.D) (Predicate, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	return fromDocument(filter)
}

func fromDocument(d bson.D) (Predicate, error) {
	preds := make([]Predicate, 0, len(d))
	for _, e := range d {
		p, err := fromElement(e)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return And{Predicates: preds}, nil
}

func fromElement(e bson.E) (Predicate, error) {
	switch e.Key {
	case "$and", "$or", "$nor":
		children, err := fromList(e.Key, e.Value)
		if err != nil {
			return nil, err
		}
		switch e.Key {
		case "$and":
			return And{Predicates: children}, nil
		case "$or":
			return Or{Predicates: children}, nil
		default:
			return Not{Predicate: Or{Predicates: children}}, nil
		}
	}
	if len(e.Key) > 0 && e.Key[0] == '$' {
		return nil, fmt.Errorf("unsupported top-level operator %s", e.Key)
	}

	path := ParsePath(e.Key)
	cond, ok := e.Value.(bson.D)
	if !ok {
		// Implicit equality: {field: value}.
		return fromOperator(path, bson.E{Key: "$eq", Value: e.Value})
	}
	preds := make([]Predicate, 0, len(cond))
	for _, op := range cond {
		p, err := fromOperator(path, op)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Key, err)
		}
		preds = append(preds, p)
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return And{Predicates: preds}, nil
}

func fromList(op string, v any) ([]Predicate, error) {
	list, ok := v.(bson.A)
	if !ok {
		return nil, fmt.Errorf("%s takes an array, got %T", op, v)
	}
	out := make([]Predicate, 0, len(list))
	for i, item := range list {
		d, ok := item.(bson.D)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a document, got %T", op, i, item)
		}
		p, err := fromDocument(d)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", op, i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

var comparisons = map[string]CompareOp{
	"$lt":  OpLt,
	"$lte": OpLte,
	"$gt":  OpGt,
	"$gte": OpGte,
}

func fromOperator(path Path, op bson.E) (Predicate, error) {
	switch op.Key {
	case "$eq", "$ne":
		var p Predicate
		if op.Value == nil {
			p = Or{Predicates: []Predicate{Not{Predicate: Exists{Path: path}}, IsNull{Path: path}}}
		} else {
			v, err := Scalar(op.Value)
			if err != nil {
				return nil, err
			}
			p = Compare{Path: path, Op: OpEq, Value: v}
		}
		if op.Key == "$ne" {
			return Not{Predicate: p}, nil
		}
		return p, nil

	case "$lt", "$lte", "$gt", "$gte":
		v, err := Scalar(op.Value)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, fmt.Errorf("%s against null", op.Key)
		}
		return Compare{Path: path, Op: comparisons[op.Key], Value: v}, nil

	case "$in", "$nin":
		list, ok := op.Value.(bson.A)
		if !ok {
			return nil, fmt.Errorf("%s takes an array, got %T", op.Key, op.Value)
		}
		values := make([]any, 0, len(list))
		for _, item := range list {
			v, err := Scalar(item)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		var p Predicate = Member{Path: path, Values: values}
		if op.Key == "$nin" {
			return Not{Predicate: p}, nil
		}
		return p, nil

	case "$exists":
		want, ok := op.Value.(bool)
		if !ok {
			return nil, fmt.Errorf("$exists takes a boolean, got %T", op.Value)
		}
		if want {
			return Exists{Path: path}, nil
		}
		return Not{Predicate: Exists{Path: path}}, nil

	case "$type":
		if op.Value != "null" {
			return nil, fmt.Errorf("$type %v is not supported", op.Value)
		}
		return IsNull{Path: path}, nil

	case "$size":
		n, err := integer(op.Value)
		if err != nil {
			return nil, fmt.Errorf("$size: %w", err)
		}
		return Size{Path: path, N: n}, nil
	}
	return nil, fmt.Errorf("unsupported operator %s", op.Key)
}

// Scalar converts a BSON scalar into the IR value domain: string, int64,
// float64, bool or nil. Decimal128 values are converted to float64.
func Scalar(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string, bool, int64, float64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(val.String(), 64)
		if err != nil {
			return nil, fmt.Errorf("decimal %s: %w", val, err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

func integer(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	}
	return 0, fmt.Errorf("expected an integer, got %T", v)
}
