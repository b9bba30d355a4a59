// Package store provides the SQLite publish journal.
//
// The journal is append-only:
//   - Publishes: one row per successful publish-first or publish-update
//   - Propagations: one row per instance replaced by a publish
//
// # Ordering
//
// All ordering uses seq INTEGER from the engine's logical clock, never
// timestamps. Every query includes ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// # Idempotency
//
// Record IDs are content-addressed (see internal/ir/hash.go), so writes use
// ON CONFLICT(id) DO NOTHING and replaying a write is harmless.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
