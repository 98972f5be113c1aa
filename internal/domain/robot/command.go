package robot

import (
	"strings"
	"time"
)

// CommandType is the kind of a discrete command.
type CommandType string

const (
	// CommandMove translates the robot along one axis.
	CommandMove CommandType = "Move"
	// CommandRotate turns the robot by an angle in degrees.
	CommandRotate CommandType = "Rotate"
	// CommandStop halts the current task.
	CommandStop CommandType = "Stop"
)

// ParseCommandType resolves a case-insensitive command type name.
func ParseCommandType(s string) (CommandType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "move":
		return CommandMove, true
	case "rotate":
		return CommandRotate, true
	case "stop":
		return CommandStop, true
	default:
		return "", false
	}
}

// Axis names a positional axis.
type Axis string

const (
	// AxisX is the X axis.
	AxisX Axis = "X"
	// AxisY is the Y axis.
	AxisY Axis = "Y"
	// AxisZ is the Z axis.
	AxisZ Axis = "Z"
)

// Known reports whether a is one of X, Y or Z.
func (a Axis) Known() bool {
	return a == AxisX || a == AxisY || a == AxisZ
}

// DiscreteCommand is a user-issued Move, Rotate or Stop.
type DiscreteCommand struct {
	// ID is assigned by the gateway when the command is admitted.
	ID string `json:"id"`
	// RobotID addresses the robot the command is meant for.
	RobotID string `json:"robot_id"`
	// Type selects the mutation.
	Type CommandType `json:"command_type"`
	// Axis is meaningful for Move only.
	Axis Axis `json:"axis,omitempty"`
	// Distance is the signed Move offset.
	Distance int `json:"distance"`
	// RotateAngle is the signed Rotate delta in degrees.
	RotateAngle int `json:"rotate_angle"`
	// User is who issued the command.
	User string `json:"user"`
	// Timestamp is when the command was issued.
	Timestamp time.Time `json:"timestamp"`
}

// StreamCommand is one fine-grained pose update from a continuous source.
type StreamCommand struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Rotation  float64   `json:"rotation"`
	Timestamp time.Time `json:"timestamp"`
}
