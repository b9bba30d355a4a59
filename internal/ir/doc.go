// Package ir provides the canonical value representation for publish
// journal records and scenario traces.
//
// This package imports nothing internal. Records are hashed through
// MarshalCanonical (RFC 8785) so IDs are stable across runs.
//
// Key design constraints:
//   - NO float values: poses are carried as fixed-precision strings
//   - All JSON tags use snake_case
//   - Logical clocks (seq) only, never wall-clock timestamps
package ir
