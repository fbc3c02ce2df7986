package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/archq/internal/adapter"
	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/model"
)

// Insert validates a record of m, derives its hierarchy fields and stores
// it. The record's parents must already be stored.
func (s *Store) Insert(ctx context.Context, m model.Model, doc *ir.Document) error {
	_, err := s.InsertAll(ctx, m, []*ir.Document{doc})
	return err
}

// InsertAll stores records in order inside one transaction, so a record
// may name a parent inserted earlier in the same batch. Nothing is stored
// if any record fails.
func (s *Store) InsertAll(ctx context.Context, m model.Model, docs []*ir.Document) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("insert: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for i, doc := range docs {
		if err := insert(ctx, tx, m, doc); err != nil {
			return 0, fmt.Errorf("insert %s record %d: %w", m, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("insert: commit: %w", err)
	}
	return len(docs), nil
}

func insert(ctx context.Context, tx *sql.Tx, m model.Model, doc *ir.Document) error {
	if doc == nil {
		return errors.New("nil record")
	}
	id := idOf(doc)

	data, err := ir.MarshalCanonical(doc)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := validateRecord(m, id, data); err != nil {
		return err
	}

	derived, err := deriveHierarchy(ctx, tx, m, doc)
	if err != nil {
		return err
	}
	data, err = ir.MarshalCanonical(derived)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	_, err = tx.ExecContext(ctx, "INSERT INTO "+m.Collection()+" (id, doc) VALUES (?, ?)", id, string(data))
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && (se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			se.ExtendedCode == sqlite3.ErrConstraintUnique) {
			return fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		return fmt.Errorf("insert %q: %w", id, err)
	}
	return nil
}

func idOf(doc *ir.Document) string {
	if v, ok := doc.Get("_id"); ok {
		if s, ok := v.(ir.String); ok {
			return string(s)
		}
	}
	return ""
}

// parentModel is the model a record's parent field points into.
func parentModel(m model.Model) model.Model {
	if m == model.Object {
		return model.ObjectGroup
	}
	return model.Unit
}

// deriveHierarchy returns a copy of doc with the ancestor and distance
// fields computed from its parents. Supplied values for those fields are
// replaced.
func deriveHierarchy(ctx context.Context, q queryer, m model.Model, doc *ir.Document) (*ir.Document, error) {
	h := adapter.MustForModel(m).Hierarchy()
	out := ir.NewDocument()
	for k, v := range doc.All() {
		if k == h.Ancestors || k == h.Distances {
			continue
		}
		out.Set(k, v)
	}

	parents, err := stringsAt(doc, h.Parent)
	if err != nil {
		return nil, err
	}
	if h.Ancestors == "" {
		// Single parent reference, existence only.
		for _, p := range parents {
			if _, err := getDoc(ctx, q, parentModel(m), p); err != nil {
				return nil, parentErr(err, p)
			}
		}
		return out, nil
	}

	var order []string
	dist := map[string]int64{}
	add := func(id string, d int64) {
		if cur, ok := dist[id]; ok {
			if d < cur {
				dist[id] = d
			}
			return
		}
		dist[id] = d
		order = append(order, id)
	}

	for _, p := range parents {
		pdoc, err := getDoc(ctx, q, parentModel(m), p)
		if err != nil {
			return nil, parentErr(err, p)
		}
		add(p, 1)
		above, err := stringsAt(pdoc, h.Ancestors)
		if err != nil {
			return nil, err
		}
		pdist := distancesOf(pdoc, h.Distances)
		for _, a := range above {
			d, ok := pdist[a]
			if !ok {
				d = 1
			}
			add(a, d+1)
		}
	}

	ancestors := make(ir.Array, len(order))
	for i, id := range order {
		ancestors[i] = ir.String(id)
	}
	out.Set(h.Ancestors, ancestors)

	if h.Distances != "" {
		distances := ir.NewDocument()
		for _, id := range order {
			distances.Set(id, ir.Int(dist[id]))
		}
		out.Set(h.Distances, distances)
	}
	return out, nil
}

func parentErr(err error, id string) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrParentNotFound, id)
	}
	return err
}

// stringsAt reads a string or string-array field. Absent fields yield nil.
func stringsAt(doc *ir.Document, key string) ([]string, error) {
	v, ok := doc.Get(key)
	if !ok {
		return nil, nil
	}
	switch val := v.(type) {
	case ir.String:
		return []string{string(val)}, nil
	case ir.Array:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(ir.String)
			if !ok {
				return nil, fmt.Errorf("%s: expected string ids, got %s", key, ir.TypeName(item))
			}
			out = append(out, string(s))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s: expected ids, got %s", key, ir.TypeName(v))
}

func distancesOf(doc *ir.Document, key string) map[string]int64 {
	out := map[string]int64{}
	if key == "" {
		return out
	}
	v, ok := doc.Get(key)
	if !ok {
		return out
	}
	d, ok := v.(*ir.Document)
	if !ok {
		return out
	}
	for id, n := range d.All() {
		if i, ok := n.(ir.Int); ok {
			out[id] = int64(i)
		}
	}
	return out
}
