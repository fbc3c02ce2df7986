package engine

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roach88/archq/internal/adapter"
	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/model"
	"github.com/roach88/archq/internal/query"
	"github.com/roach88/archq/internal/request"
	"github.com/roach88/archq/internal/translate"
	"github.com/roach88/archq/internal/translate/docstore"
)

// Plan is a compiled request. Plans are immutable once built and may be
// shared between executions through the plan cache.
type Plan struct {
	Model     model.Model
	Roots     bson.D
	RootIDs   []string
	Hops      []PlanHop
	Options   *options.FindOptions
	Hierarchy adapter.Hierarchy

	translator *docstore.Translator
}

// PlanHop is one compiled hop.
type PlanHop struct {
	Filter bson.D
	Depth  *query.DepthWindow
}

// Compile builds the execution plan of req for the document store.
func Compile(req *request.Request) (*Plan, error) {
	fields, err := adapter.ForModel(req.Model)
	if err != nil {
		return nil, err
	}
	t := docstore.New(fields)

	roots, err := t.CompileRoots(req, "")
	if err != nil {
		return nil, err
	}
	filters, err := translate.CompileAll[bson.D](t, req)
	if err != nil {
		return nil, err
	}
	opts, err := t.FindOptions(req)
	if err != nil {
		return nil, err
	}

	hops := make([]PlanHop, len(filters))
	for i, node := range req.Hops() {
		hops[i] = PlanHop{Filter: filters[i], Depth: node.Depth()}
	}
	return &Plan{
		Model:      req.Model,
		Roots:      roots,
		RootIDs:    req.Roots(),
		Hops:       hops,
		Options:    opts,
		Hierarchy:  fields.Hierarchy(),
		translator: t,
	}, nil
}

// planKey identifies req in the plan cache.
func planKey(req *request.Request) (string, error) {
	doc, err := req.AssembleFinal()
	if err != nil {
		return "", err
	}
	fp, err := ir.Fingerprint(doc)
	if err != nil {
		return "", fmt.Errorf("plan key: %w", err)
	}
	return ir.PlanKey(fp, string(translate.DocumentStore), req.Model.String()), nil
}
