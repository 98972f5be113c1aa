package actor

import (
	"errors"

	"github.com/oshokin/telerobot/internal/domain/robot"
)

var (
	// ErrControlConflict rejects a discrete command while the robot is under stream control.
	ErrControlConflict = errors.New("robot is currently under stream control")
	// ErrPersistence marks a mutation the repository did not confirm.
	ErrPersistence = errors.New("persistence did not confirm the mutation")
	// ErrRegistryClosed is returned after Shutdown.
	ErrRegistryClosed = errors.New("actor registry is closed")

	// errDeactivated reports a message that reached an actor after it stopped accepting work.
	errDeactivated = errors.New("actor deactivated")
)

// Status is the outcome kind of a discrete command.
type Status string

const (
	// StatusAccepted means the mutation was applied and persisted.
	StatusAccepted Status = "accepted"
	// StatusRejected means arbitration refused the command; nothing changed.
	StatusRejected Status = "rejected"
	// StatusError means the command could not be confirmed.
	StatusError Status = "error"
)

// Result is what a discrete command resolves to at the actor boundary.
type Result struct {
	Status Status
	// Reason is a human-readable explanation for rejected and error results.
	Reason string
	// Err carries the cause for errors.Is checks; nil when accepted.
	Err error
	// State is the resulting snapshot of an accepted command.
	State *robot.State
}

// Accepted reports whether the command was applied and persisted.
func (r Result) Accepted() bool {
	return r.Status == StatusAccepted
}

func accepted(snapshot *robot.State) Result {
	return Result{Status: StatusAccepted, State: snapshot}
}

func rejected(err error) Result {
	return Result{Status: StatusRejected, Reason: err.Error(), Err: err}
}

func failed(err error) Result {
	return Result{Status: StatusError, Reason: err.Error(), Err: err}
}
