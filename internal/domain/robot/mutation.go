package robot

import (
	"fmt"
	"math"
	"time"
)

// fullTurn is the number of degrees in one revolution.
const fullTurn = 360

// NormalizeRotation maps any integer angle into [0, 360).
func NormalizeRotation(degrees int) int {
	return (degrees%fullTurn + fullTurn) % fullTurn
}

// ApplyDiscrete mutates s according to cmd and stamps LastUpdate.
// It reports false when a Move names an axis outside X, Y and Z; the labels
// are still updated but the position is left unchanged.
func ApplyDiscrete(s *State, cmd *DiscreteCommand, now time.Time) bool {
	applied := true

	switch cmd.Type {
	case CommandMove:
		s.Task = fmt.Sprintf("Moving %s axis", cmd.Axis)
		s.Status = StatusMoving
		applied = move(s, cmd.Axis, cmd.Distance)
	case CommandRotate:
		s.Task = fmt.Sprintf("Rotating %d degrees", cmd.RotateAngle)
		s.Status = StatusRotating
		s.Rotation = NormalizeRotation(s.Rotation%fullTurn + cmd.RotateAngle%fullTurn)
	case CommandStop:
		s.Task = TaskStopped
		s.Status = StatusIdle
	}

	s.LastUpdate = now

	return applied
}

// ApplyStream overwrites the pose with cmd, truncating fractional values toward zero.
func ApplyStream(s *State, cmd *StreamCommand, now time.Time) {
	s.X = int(cmd.X)
	s.Y = int(cmd.Y)
	s.Z = int(cmd.Z)
	s.Rotation = NormalizeRotation(int(math.Trunc(math.Mod(cmd.Rotation, fullTurn))))
	s.Task = TaskStreaming
	s.Status = StatusStreaming
	s.LastUpdate = now
}

func move(s *State, axis Axis, distance int) bool {
	switch axis {
	case AxisX:
		s.X += distance
	case AxisY:
		s.Y += distance
	case AxisZ:
		s.Z += distance
	default:
		return false
	}

	return true
}
