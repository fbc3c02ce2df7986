// Package harness runs query scenarios: YAML files pairing a payload with
// the outcome it must produce.
//
// A scenario names a model, a payload and an expect block. The harness
// parses the payload, compiles it for the expected backend and, when the
// scenario seeds records, executes it against a fresh in-memory store.
// Each stage's outcome is checked against the expect block:
//
//	name: series_under_root
//	description: Series-level units below the fonds
//	payload: |
//	  {"$roots": ["root"], "$query": [{"$eq": {"DescriptionLevel": "Series"}}]}
//	records:
//	  unit:
//	    - {_id: root, DescriptionLevel: Fonds}
//	    - {_id: s1, _up: [root], DescriptionLevel: Series}
//	expect:
//	  backend: docstore
//	  hops: 1
//	  results: [s1]
//
// RunWithGolden additionally snapshots everything the run produced (the
// normalized payload, the compiled form, the results or the error) in
// canonical JSON and compares it with testdata/golden/<name>.golden.
// Regenerate golden files with:
//
//	go test ./internal/harness -update
package harness
