package store

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/roach88/archq/internal/model"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[model.Model]*gojsonschema.Schema
	schemasErr  error
)

func loadSchemas() (map[model.Model]*gojsonschema.Schema, error) {
	schemasOnce.Do(func() {
		out := make(map[model.Model]*gojsonschema.Schema, len(model.All()))
		for _, m := range model.All() {
			raw, err := schemaFS.ReadFile("schemas/" + m.Key() + ".json")
			if err != nil {
				schemasErr = fmt.Errorf("read %s schema: %w", m, err)
				return
			}
			schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
			if err != nil {
				schemasErr = fmt.Errorf("invalid %s schema: %w", m, err)
				return
			}
			out[m] = schema
		}
		schemas = out
	})
	return schemas, schemasErr
}

// ValidationError lists the schema violations of one record.
type ValidationError struct {
	Model    model.Model
	ID       string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s record %q is invalid: %s", e.Model, e.ID, strings.Join(e.Problems, "; "))
}

// validateRecord checks a record's JSON against its model's schema.
func validateRecord(m model.Model, id string, data []byte) error {
	all, err := loadSchemas()
	if err != nil {
		return err
	}
	schema, ok := all[m]
	if !ok {
		return fmt.Errorf("no schema for model %s", m)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	verr := &ValidationError{Model: m, ID: id}
	for _, desc := range result.Errors() {
		verr.Problems = append(verr.Problems, desc.String())
	}
	return verr
}
