// Package state implements persistence for robot State.
//
// Repository is the narrow contract the actor core loads from and saves to.
// FileRepository keeps one JSON document per robot id inside a directory.
package state
