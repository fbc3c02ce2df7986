package queryir

import "strings"

// Query is a sealed query node.
type Query interface {
	queryNode()
}

// Predicate is a sealed filter node.
type Predicate interface {
	predicateNode()
}

// Path addresses a field inside a document, one segment per level.
type Path []string

// ParsePath splits a dotted key ("_uds.u1") into segments.
func ParsePath(key string) Path {
	return Path(strings.Split(key, "."))
}

// String joins the segments with dots.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Select reads rows of one collection.
//
//	SELECT id[, doc] FROM <From> WHERE <Filter> ORDER BY <Order>, id
//
// Limit and Offset are ignored when zero.
type Select struct {
	From    string
	Filter  Predicate // nil matches every row
	Order   []OrderKey
	Limit   int64
	Offset  int64
	IDsOnly bool
}

func (Select) queryNode() {}

// OrderKey sorts by a document field.
type OrderKey struct {
	Path Path
	Desc bool
}

// CompareOp is a scalar comparison.
type CompareOp string

const (
	OpEq  CompareOp = "="
	OpLt  CompareOp = "<"
	OpLte CompareOp = "<="
	OpGt  CompareOp = ">"
	OpGte CompareOp = ">="
)

// Compare matches when the field, or one of its elements, compares true
// against Value. Value is a string, int64, float64 or bool.
type Compare struct {
	Path  Path
	Op    CompareOp
	Value any
}

// Member matches when the field, or one of its elements, equals one of
// Values. An empty Values never matches.
type Member struct {
	Path   Path
	Values []any
}

// Exists matches present fields, null included.
type Exists struct {
	Path Path
}

// IsNull matches fields holding an explicit null.
type IsNull struct {
	Path Path
}

// Size matches array fields with exactly N elements.
type Size struct {
	Path Path
	N    int64
}

// And matches when every predicate does. Empty And matches everything.
type And struct {
	Predicates []Predicate
}

// Or matches when any predicate does. Empty Or matches nothing.
type Or struct {
	Predicates []Predicate
}

// Not negates a predicate.
type Not struct {
	Predicate Predicate
}

func (Compare) predicateNode() {}
func (Member) predicateNode()  {}
func (Exists) predicateNode()  {}
func (IsNull) predicateNode()  {}
func (Size) predicateNode()    {}
func (And) predicateNode()     {}
func (Or) predicateNode()      {}
func (Not) predicateNode()     {}
