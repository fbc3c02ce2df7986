// Package engine executes query envelopes against the SQLite reference
// store.
//
// An execution walks the envelope's hops in order. Hop 0 is restricted to
// the envelope's roots; every later hop is restricted to the hierarchy
// neighbourhood of the previous hop's results, as its depth window says.
// Only the last hop fetches documents. It applies the envelope's limit,
// offset, ordering and projection, and its results are paged through the
// cursor store.
//
// Execution flow:
//  1. The request is compiled to a Plan with the docstore translator,
//     or taken from the plan cache when the request carries the cache hint.
//  2. Each intermediate hop fetches identifiers only, capped by the
//     configured intermediate result limit.
//  3. The last hop's first page is returned; the remainder is parked in a
//     cursor, pinned when the request carries the notimeout hint.
//
// Every execution is stamped with a sequence number from a monotonic
// Clock so log lines and results can be correlated.
package engine
