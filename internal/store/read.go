package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/model"
	"github.com/roach88/archq/internal/queryir"
)

// Record is one stored document.
type Record struct {
	ID  string
	Doc *ir.Document
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Get retrieves a single record by id.
// Returns ErrNotFound if the id is not stored.
func (s *Store) Get(ctx context.Context, m model.Model, id string) (*ir.Document, error) {
	return getDoc(ctx, s.db, m, id)
}

func getDoc(ctx context.Context, q queryer, m model.Model, id string) (*ir.Document, error) {
	var data string
	err := q.QueryRowContext(ctx, "SELECT doc FROM "+m.Collection()+" WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %q: %w", m, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %q: %w", m, id, err)
	}
	return decodeDoc(data)
}

// Find returns the records of m matching filter, ordered by opts' sort
// and then by id. Limit, skip and projection are honoured.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) Find(ctx context.Context, m model.Model, filter bson.D, opts *options.FindOptions) ([]Record, error) {
	sel, err := queryir.FromFind(m.Collection(), filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", m, err)
	}
	var spec bson.D
	if opts != nil && opts.Projection != nil {
		var ok bool
		if spec, ok = opts.Projection.(bson.D); !ok {
			return nil, fmt.Errorf("find %s: projection must be bson.D, got %T", m, opts.Projection)
		}
	}

	rows, err := s.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", m, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", m, err)
		}
		doc, err := decodeDoc(data)
		if err != nil {
			return nil, err
		}
		if len(spec) > 0 {
			if doc, err = project(doc, spec); err != nil {
				return nil, err
			}
		}
		records = append(records, Record{ID: id, Doc: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", m, err)
	}
	return records, nil
}

// FindIDs returns the ids of the records of m matching filter, in id
// order. A positive limit caps the result.
func (s *Store) FindIDs(ctx context.Context, m model.Model, filter bson.D, limit int64) ([]string, error) {
	sel, err := queryir.FromFind(m.Collection(), filter, nil)
	if err != nil {
		return nil, fmt.Errorf("find %s ids: %w", m, err)
	}
	sel.IDsOnly = true
	sel.Limit = limit

	rows, err := s.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("find %s ids: %w", m, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", m, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s ids: %w", m, err)
	}
	return ids, nil
}

// Count returns the number of stored records of m.
func (s *Store) Count(ctx context.Context, m model.Model) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+m.Collection()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", m, err)
	}
	return n, nil
}

func (s *Store) query(ctx context.Context, sel *queryir.Select) (*sql.Rows, error) {
	query, params, err := s.sql.Compile(sel)
	if err != nil {
		return nil, err
	}
	return s.db.QueryContext(ctx, query, params...)
}

func decodeDoc(data string) (*ir.Document, error) {
	v, err := ir.DecodeJSON([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	doc, ok := v.(*ir.Document)
	if !ok {
		return nil, fmt.Errorf("decode record: expected object, got %s", ir.TypeName(v))
	}
	return doc, nil
}
