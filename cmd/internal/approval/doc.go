// Package approval holds the session record of the approval relay: the closed set of
// states a session may be in, the operator actions that move it between them, and the
// stores that persist the id -> state mapping.
//
// A session that is not stored reads as StatePending. Transitions never check the
// current state: the latest operator action wins.
//
// Store implementations must be linearizable per id. None of them performs a
// whole-snapshot read/modify/write; every backend upserts a single key.
package approval
