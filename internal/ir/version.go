package ir

// Version constants.
const (
	// DSLVersion is the query DSL revision understood by the parser.
	DSLVersion = "1"

	// Version is the archq release version.
	Version = "0.1.0"
)
