package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestFromFilterEmpty(t *testing.T) {
	p, err := FromFilter(bson.D{})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestFromFilterOperators(t *testing.T) {
	dec, err := primitive.ParseDecimal128("1.5")
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter bson.D
		want   Predicate
	}{
		{
			"eq",
			bson.D{{Key: "Title", Value: bson.D{{Key: "$eq", Value: "x"}}}},
			Compare{Path: Path{"Title"}, Op: OpEq, Value: "x"},
		},
		{
			"implicit eq",
			bson.D{{Key: "Title", Value: "x"}},
			Compare{Path: Path{"Title"}, Op: OpEq, Value: "x"},
		},
		{
			"ne",
			bson.D{{Key: "N", Value: bson.D{{Key: "$ne", Value: 3}}}},
			Not{Predicate: Compare{Path: Path{"N"}, Op: OpEq, Value: int64(3)}},
		},
		{
			"eq null",
			bson.D{{Key: "N", Value: bson.D{{Key: "$eq", Value: nil}}}},
			Or{Predicates: []Predicate{Not{Predicate: Exists{Path: Path{"N"}}}, IsNull{Path: Path{"N"}}}},
		},
		{
			"range pair",
			bson.D{{Key: "W", Value: bson.D{{Key: "$gt", Value: dec}, {Key: "$lte", Value: int64(9)}}}},
			And{Predicates: []Predicate{
				Compare{Path: Path{"W"}, Op: OpGt, Value: 1.5},
				Compare{Path: Path{"W"}, Op: OpLte, Value: int64(9)},
			}},
		},
		{
			"dotted path",
			bson.D{{Key: "_uds.u1", Value: bson.D{{Key: "$lte", Value: int64(2)}}}},
			Compare{Path: Path{"_uds", "u1"}, Op: OpLte, Value: int64(2)},
		},
		{
			"in",
			bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: bson.A{"a", "b"}}}}},
			Member{Path: Path{"_id"}, Values: []any{"a", "b"}},
		},
		{
			"nin",
			bson.D{{Key: "S", Value: bson.D{{Key: "$nin", Value: bson.A{true}}}}},
			Not{Predicate: Member{Path: Path{"S"}, Values: []any{true}}},
		},
		{
			"exists false",
			bson.D{{Key: "S", Value: bson.D{{Key: "$exists", Value: false}}}},
			Not{Predicate: Exists{Path: Path{"S"}}},
		},
		{
			"type null",
			bson.D{{Key: "S", Value: bson.D{{Key: "$type", Value: "null"}}}},
			IsNull{Path: Path{"S"}},
		},
		{
			"size",
			bson.D{{Key: "Tags", Value: bson.D{{Key: "$size", Value: int64(2)}}}},
			Size{Path: Path{"Tags"}, N: 2},
		},
		{
			"nor",
			bson.D{{Key: "$nor", Value: bson.A{
				bson.D{{Key: "A", Value: bson.D{{Key: "$exists", Value: true}}}},
			}}},
			Not{Predicate: Or{Predicates: []Predicate{Exists{Path: Path{"A"}}}}},
		},
		{
			"sibling keys",
			bson.D{{Key: "A", Value: int64(1)}, {Key: "B", Value: int64(2)}},
			And{Predicates: []Predicate{
				Compare{Path: Path{"A"}, Op: OpEq, Value: int64(1)},
				Compare{Path: Path{"B"}, Op: OpEq, Value: int64(2)},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromFilter(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromFilterRejects(t *testing.T) {
	tests := map[string]bson.D{
		"unknown operator":  {{Key: "A", Value: bson.D{{Key: "$elemMatch", Value: bson.D{}}}}},
		"top-level $where":  {{Key: "$where", Value: "1"}},
		"object value":      {{Key: "A", Value: bson.D{{Key: "$eq", Value: bson.D{{Key: "x", Value: 1}}}}}},
		"in without array":  {{Key: "A", Value: bson.D{{Key: "$in", Value: "x"}}}},
		"lt null":           {{Key: "A", Value: bson.D{{Key: "$lt", Value: nil}}}},
		"and item not doc":  {{Key: "$and", Value: bson.A{"x"}}},
		"other $type":       {{Key: "A", Value: bson.D{{Key: "$type", Value: "string"}}}},
		"non-integer $size": {{Key: "A", Value: bson.D{{Key: "$size", Value: "2"}}}},
	}
	for name, filter := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromFilter(filter)
			assert.Error(t, err)
		})
	}
}

func TestFromFind(t *testing.T) {
	opts := options.Find().
		SetLimit(10).
		SetSkip(5).
		SetSort(bson.D{{Key: "Title", Value: 1}, {Key: "_id", Value: -1}})

	sel, err := FromFind("units", bson.D{}, opts)
	require.NoError(t, err)
	assert.Equal(t, &Select{
		From:   "units",
		Limit:  10,
		Offset: 5,
		Order: []OrderKey{
			{Path: Path{"Title"}},
			{Path: Path{"_id"}, Desc: true},
		},
	}, sel)

	_, err = FromFind("units", bson.D{}, options.Find().SetSort(map[string]int{"a": 1}))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	ok := Select{
		From:   "units",
		Filter: And{Predicates: []Predicate{Compare{Path: Path{"A"}, Op: OpEq, Value: "x"}}},
		Order:  []OrderKey{{Path: Path{"A"}}},
	}
	assert.NoError(t, Validate(ok))
	assert.NoError(t, Validate(&ok))

	bad := Select{
		From:   "units; DROP TABLE units",
		Limit:  -1,
		Filter: Or{Predicates: []Predicate{
			Compare{Path: Path{"a\"b"}, Op: "LIKE", Value: []int{1}},
			Not{},
			Size{Path: Path{}, N: -1},
		}},
	}
	err := Validate(bad)
	require.Error(t, err)
	for _, want := range []string{"invalid table name", "negative limit", "invalid path segment",
		"unknown comparison", "unsupported value type", "negation of nothing", "empty path", "negative size"} {
		assert.Contains(t, err.Error(), want)
	}

	assert.Error(t, Validate(nil))
	assert.Error(t, Validate((*Select)(nil)))
}

func TestPath(t *testing.T) {
	p := ParsePath("_uds.u1")
	assert.Equal(t, Path{"_uds", "u1"}, p)
	assert.Equal(t, "_uds.u1", p.String())
}
