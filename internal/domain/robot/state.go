package robot

import (
	"slices"
	"time"
)

// Task and status labels written by the mutation algorithms.
const (
	TaskIdle      = "Idle"
	TaskStopped   = "Stopped"
	TaskStreaming = "VR Streaming"

	StatusReady     = "Ready"
	StatusIdle      = "Idle"
	StatusMoving    = "Moving"
	StatusRotating  = "Rotating"
	StatusStreaming = "VR Moving"
)

// Mode is the coarse control mode implied by the current labels.
type Mode string

const (
	ModeIdle      Mode = "Idle"
	ModeMoving    Mode = "Moving"
	ModeRotating  Mode = "Rotating"
	ModeStreaming Mode = "Streaming"
)

// State is the canonical state of one robot.
type State struct {
	RobotID  string `json:"robot_id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Z        int    `json:"z"`
	Rotation int    `json:"rotation"`
	// Task is a human-readable description of what the robot is doing.
	Task string `json:"task"`
	// Status is a human-readable operating status.
	Status     string    `json:"status"`
	LastUpdate time.Time `json:"last_update"`
	// RecentStreamCommands is the history buffer as of the last flush.
	RecentStreamCommands []StreamCommand `json:"recent_stream_commands,omitempty"`
}

// NewState returns the default state for a robot seen for the first time.
func NewState(robotID string, now time.Time) *State {
	return &State{
		RobotID:    robotID,
		Task:       TaskIdle,
		Status:     StatusReady,
		LastUpdate: now,
	}
}

// Clone returns a deep copy so callers never share the actor's slice.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	cloned := *s
	cloned.RecentStreamCommands = slices.Clone(s.RecentStreamCommands)

	return &cloned
}

// Streaming reports whether the labels already denote an active stream session.
func (s *State) Streaming() bool {
	return s.Task == TaskStreaming
}

// Mode derives the control mode from the status label.
func (s *State) Mode() Mode {
	switch s.Status {
	case StatusMoving:
		return ModeMoving
	case StatusRotating:
		return ModeRotating
	case StatusStreaming:
		return ModeStreaming
	default:
		return ModeIdle
	}
}
