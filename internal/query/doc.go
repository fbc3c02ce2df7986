// Package query defines the abstract syntax tree of the archival query DSL
// and the fluent builder that is the only way to construct usable nodes.
//
// The AST is a sealed set of node types (see Node). Builder factories such
// as Eq, In, NewRange, MatchPhrasePrefix and And validate their inputs and
// return ready nodes; refinements (SetMatchMaxExpansions,
// SetRelativeDepthLimit) are checked against a static table of which family
// accepts which refinement.
//
// Example:
//
//	title, _ := query.MatchPhrase("Title", "Saint Denis")
//	year, _ := query.Between("StartDate", "1900", "1950")
//	hop, _ := query.And(title, year)
//	_ = query.SetRelativeDepthLimit(hop, 3)
//
// This package performs no I/O and never logs.
package query
