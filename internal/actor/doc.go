// Package actor owns the in-memory state of every robot.
//
// Each resident robot id is served by one goroutine that drains a bounded
// mailbox, so all mutations of a robot are serialized in arrival order while
// different robots proceed in parallel. The Registry creates these actors
// lazily on first reference, evicts idle ones, and retries messages that race
// with an eviction against a fresh instance.
//
// Discrete commands are arbitrated against the continuous stream: while a
// stream command was seen within the arbitration window every discrete
// command is rejected with ErrControlConflict. Discrete mutations are written
// through to the repository before they are reported as accepted; stream
// mutations are persisted only on the edge into streaming mode and once more
// when the stream session ends.
package actor
