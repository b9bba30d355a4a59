// Package harness runs YAML layout scenarios against the real engine.
//
// A scenario builds a scene (from a scene document, setup steps or both),
// then runs a flow of scene edits and publish operations. Every publish
// operation adds an event to the trace: the journal records it produced,
// or the error code it failed with. Assertions check the final scene and
// journal; golden files pin the trace.
//
// Runs are deterministic. Node IDs, publish tokens and journal seq values
// come from fixed sequences, and the journal lives in an in-memory SQLite
// database, so the same scenario always yields byte-identical traces.
//
//	name: publish_first
//	description: Publishing makes the entity canonical
//	setup:
//	  - do: create
//	    path: "|Pillar"
//	    translate: [2, 0, 0]
//	flow:
//	  - do: publish
//	    select: ["|Pillar"]
//	assertions:
//	  - type: locked
//	    path: "|Originals|Pillar"
//
// Regenerate golden files with:
//
//	go test ./internal/harness -update
package harness
