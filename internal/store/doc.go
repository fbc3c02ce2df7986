// Package store is the SQLite reference document store that archq
// requests can be executed against.
//
// Each metadata model has its own table of (id, doc) rows, where doc is
// the record as canonical JSON. Filters arrive in document-store form
// (bson.D), go through queryir and querysql, and run as parameterized
// SQL over the JSON1 functions.
//
// # Hierarchy
//
// Records carry their position in the archival tree:
//
//   - units: _up (parents), _us (every ancestor), _uds (ancestor to
//     distance)
//   - object groups: _up (owning units), _us
//   - objects: _og (owning object group)
//
// The derived fields (_us, _uds) are computed on insert from the
// parents, which must already be stored.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Every query ends with "id COLLATE BINARY ASC" for deterministic results.
package store
