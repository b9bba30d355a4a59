// Package engine implements the publish/propagate protocol that keeps
// instances of a canonical entity in sync with its latest version.
//
// Two operations drive everything:
//
//   - PublishFirst turns the single selected, untagged transform into the
//     canonical entity for its name and hands back an editable instance.
//   - PublishUpdate replaces the canonical entity of an identifier with a
//     new candidate and re-creates every instance of it in place, keeping
//     each instance's parent, display name and world pose.
//
// Instance poses are read through each instance's own basis frame (see
// internal/basis), so placement survives frozen transforms.
//
// # Failure behaviour
//
// Both operations fail fast. PublishFirst runs inside one undo chunk and
// undoes it on failure. PublishUpdate performs no rollback unless the
// engine was built with WithAtomicUpdate, in which case the whole update
// is one undo chunk that is undone on failure.
//
// # Determinism
//
// Journal records are stamped with seq numbers from a logical Clock and
// instances are propagated in path order, so logs and traces are stable.
// Callers must not rely on propagation order for correctness.
//
// The Engine is not safe for concurrent use.
package engine
