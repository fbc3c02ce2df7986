package parser

import (
	"strings"

	"github.com/roach88/archq/internal/adapter"
	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/request"
)

func (s *session) parseFilter(v ir.Value) error {
	doc, ok := v.(*ir.Document)
	if !ok {
		return malformed(request.KeyFilter, "must be an object, got %s", ir.TypeName(v))
	}

	var limit, offset int64
	for key, val := range doc.All() {
		path := join(request.KeyFilter, key)
		var err error
		switch key {
		case request.KeyLimit:
			limit, err = nonNegative(val, path)
		case request.KeyOffset:
			offset, err = nonNegative(val, path)
		case request.KeyOrderBy:
			err = s.parseOrderBy(val, path)
		case request.KeyHint:
			var hints []string
			if hints, err = stringList(val, path); err == nil {
				err = relabel(s.req.AddHintFilter(hints...), path)
			}
		default:
			err = dslerr.New(dslerr.CodeUnknownToken, "unknown filter key %q", key).At(path)
		}
		if err != nil {
			return err
		}
	}
	s.req.SetLimitFilter(limit, offset)
	return nil
}

func nonNegative(v ir.Value, path string) (int64, error) {
	n, ok := v.(ir.Int)
	if !ok || n < 0 {
		return 0, malformed(path, "expects a non-negative integer, got %s", ir.TypeName(v))
	}
	return int64(n), nil
}

func (s *session) parseOrderBy(v ir.Value, path string) error {
	doc, ok := v.(*ir.Document)
	if !ok {
		return malformed(path, "expects {field: 1|-1}, got %s", ir.TypeName(v))
	}
	for field, dir := range doc.All() {
		fieldPath := join(path, field)
		if _, err := s.parser.fields.Resolve(field); err != nil {
			return relabel(err, fieldPath)
		}
		var err error
		switch dir {
		case ir.Int(request.Asc):
			err = s.req.AddOrderByAscFilter(field)
		case ir.Int(request.Desc):
			err = s.req.AddOrderByDescFilter(field)
		default:
			return malformed(fieldPath, "sort direction must be 1 or -1")
		}
		if err != nil {
			return relabel(err, fieldPath)
		}
	}
	return nil
}

// parseProjection reads $projection, $data and a top-level $usage.
func (s *session) parseProjection(top *ir.Document) error {
	if d, ok := top.Get(request.KeyData); ok {
		doc, ok := d.(*ir.Document)
		if !ok {
			return malformed(request.KeyData, "must be an object, got %s", ir.TypeName(d))
		}
		s.req.SetData(doc)
	}

	if u, ok := top.Get(request.KeyUsage); ok {
		usage, ok := u.(ir.String)
		if !ok {
			return malformed(request.KeyUsage, "must be a string, got %s", ir.TypeName(u))
		}
		s.req.SetUsage(string(usage))
	}

	p, ok := top.Get(request.KeyProjection)
	if !ok {
		return nil
	}
	doc, ok := p.(*ir.Document)
	if !ok {
		return malformed(request.KeyProjection, "must be an object, got %s", ir.TypeName(p))
	}
	for key, val := range doc.All() {
		path := join(request.KeyProjection, key)
		switch key {
		case request.KeyFields:
			if err := s.parseFields(val, path); err != nil {
				return err
			}
		case request.KeyUsage:
			usage, ok := val.(ir.String)
			if !ok {
				return malformed(path, "must be a string, got %s", ir.TypeName(val))
			}
			if top.Has(request.KeyUsage) {
				return malformed(path, "usage is given twice")
			}
			s.req.SetUsage(string(usage))
		default:
			if strings.HasPrefix(key, "$") {
				return dslerr.New(dslerr.CodeUnknownToken, "unknown projection key %q", key).At(path)
			}
			return malformed(path, "unexpected key %q", key)
		}
	}
	return nil
}

func (s *session) parseFields(v ir.Value, path string) error {
	doc, ok := v.(*ir.Document)
	if !ok {
		return malformed(path, "expects {field: 1|0}, got %s", ir.TypeName(v))
	}
	for field, flag := range doc.All() {
		fieldPath := join(path, field)
		if field != adapter.AllFields {
			if _, err := s.parser.fields.Resolve(field); err != nil {
				return relabel(err, fieldPath)
			}
		}
		include, ok := projectionFlag(flag)
		if !ok {
			return malformed(fieldPath, "expects 1, 0, true or false, got %s", ir.TypeName(flag))
		}
		var err error
		if include {
			err = s.req.AddUsedProjection(field)
		} else {
			err = s.req.AddUnusedProjection(field)
		}
		if err != nil {
			return relabel(err, fieldPath)
		}
	}
	return nil
}

func projectionFlag(v ir.Value) (include, ok bool) {
	switch f := v.(type) {
	case ir.Bool:
		return bool(f), true
	case ir.Int:
		if f == 0 || f == 1 {
			return f == 1, true
		}
	}
	return false, false
}
