// Package common holds helpers shared by the robot-ctl commands and tests.
//
// It provides a gRPC client wrapper with per-call timeouts and detection of
// the current user for the command audit trail.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
