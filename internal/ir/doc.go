// Package ir provides the value model shared by every stage of the query
// DSL: scalars, arrays and insertion-ordered documents.
//
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Numbers are never float64: integers decode to Int, everything else
//     to Decimal (exact decimal text via shopspring/decimal)
//   - Documents keep insertion order; canonical JSON sorts keys (RFC 8785)
//   - Strings are NFC normalized at the canonical serialization boundary
package ir
