package queryir

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that a query can be compiled safely: the table is a
// plain identifier, every path is non-empty with quotable segments and
// every value is in the IR domain. All problems are reported together.
//
// Validate is a pure function with no side effects.
func Validate(q Query) error {
	v := &validator{}
	v.validateQuery(q)
	return errors.Join(v.problems...)
}

// validator accumulates problems during traversal.
type validator struct {
	problems []error
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Errorf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addProblem("nil query")
			return
		}
		v.validateSelect(*query)
	default:
		v.addProblem("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(s Select) {
	if !tableName.MatchString(s.From) {
		v.addProblem("invalid table name %q", s.From)
	}
	if s.Limit < 0 {
		v.addProblem("negative limit %d", s.Limit)
	}
	if s.Offset < 0 {
		v.addProblem("negative offset %d", s.Offset)
	}
	for _, k := range s.Order {
		v.validatePath(k.Path)
	}
	if s.Filter != nil {
		v.validatePredicate(s.Filter)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Compare:
		v.validatePath(pred.Path)
		switch pred.Op {
		case OpEq, OpLt, OpLte, OpGt, OpGte:
		default:
			v.addProblem("%s: unknown comparison %q", pred.Path, pred.Op)
		}
		v.validateValue(pred.Path, pred.Value)
	case Member:
		v.validatePath(pred.Path)
		for _, val := range pred.Values {
			v.validateValue(pred.Path, val)
		}
	case Exists:
		v.validatePath(pred.Path)
	case IsNull:
		v.validatePath(pred.Path)
	case Size:
		v.validatePath(pred.Path)
		if pred.N < 0 {
			v.addProblem("%s: negative size %d", pred.Path, pred.N)
		}
	case And:
		for _, c := range pred.Predicates {
			v.validatePredicate(c)
		}
	case Or:
		for _, c := range pred.Predicates {
			v.validatePredicate(c)
		}
	case Not:
		if pred.Predicate == nil {
			v.addProblem("negation of nothing")
			return
		}
		v.validatePredicate(pred.Predicate)
	case nil:
		v.addProblem("nil predicate")
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) validatePath(p Path) {
	if len(p) == 0 {
		v.addProblem("empty path")
		return
	}
	for _, seg := range p {
		if seg == "" || strings.ContainsAny(seg, "\"\\") {
			v.addProblem("invalid path segment %q in %s", seg, p)
		}
	}
}

func (v *validator) validateValue(p Path, val any) {
	switch val.(type) {
	case nil, string, int64, float64, bool:
	default:
		v.addProblem("%s: unsupported value type %T", p, val)
	}
}
