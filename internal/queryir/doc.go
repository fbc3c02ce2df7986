// Package queryir is the relational query IR between document-store
// filters and the SQLite reference store.
//
//	[bson.D filter] -> [Query IR] -> [SQL]
//
// A filter is decoded once into sealed predicate types, validated, and
// handed to querysql for code generation. The IR knows nothing about
// SQL: paths are plain segment lists and values are Go scalars.
//
// Document-store semantics carried into the IR:
//
//   - a comparison matches if the field, or any element of an array
//     field, satisfies it
//   - $ne and $nin also match documents where the field is absent
//   - {$eq: null} matches absent and null fields
//
// Query and Predicate are sealed with marker methods so backends can
// switch exhaustively.
package queryir
