package gateway

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/telerobot/internal/domain/robot"
)

// CommandRequest is a discrete command as received from a transport.
type CommandRequest struct {
	RobotID string
	// Type is matched case-insensitively against Move, Rotate and Stop.
	Type string
	// Axis is required for Move.
	Axis *string
	// Distance defaults to zero.
	Distance int
	// RotateAngle is required for Rotate.
	RotateAngle *int
	User        string
	// Timestamp defaults to the time of submission.
	Timestamp time.Time
}

// StreamRequest is one pose update from a continuous source.
type StreamRequest struct {
	X        float64
	Y        float64
	Z        float64
	Rotation float64
	// Timestamp defaults to the time of submission.
	Timestamp time.Time
}

// Field limits keep every accepted command within one command log record.
const (
	maxRobotIDLength = 128
	maxUserLength    = 256
	maxAxisLength    = 16
	maxIDLength      = 64
)

func normalizeRobotID(robotID string) (string, error) {
	return requireText("robot_id", robotID, maxRobotIDLength)
}

// requireText trims value and checks it is non-empty and at most limit bytes.
func requireText(field, value string, limit int) (string, error) {
	value = strings.TrimSpace(value)

	switch {
	case value == "":
		return "", invalid(field, "must not be empty")
	case len(value) > limit:
		return "", invalid(field, fmt.Sprintf("must be at most %d bytes", limit))
	}

	return value, nil
}

// toCommand validates req and builds a domain command with a fresh id.
func (req *CommandRequest) toCommand(now time.Time) (*robot.DiscreteCommand, error) {
	robotID, err := normalizeRobotID(req.RobotID)
	if err != nil {
		return nil, err
	}

	commandType, ok := robot.ParseCommandType(req.Type)
	if !ok {
		return nil, invalid("command_type", "must be one of Move, Rotate, Stop")
	}

	user, err := requireText("user", req.User, maxUserLength)
	if err != nil {
		return nil, err
	}

	cmd := &robot.DiscreteCommand{
		ID:        uuid.NewString(),
		RobotID:   robotID,
		Type:      commandType,
		User:      user,
		Timestamp: req.Timestamp,
	}

	if cmd.Timestamp.IsZero() {
		cmd.Timestamp = now
	}

	switch commandType {
	case robot.CommandMove:
		if req.Axis == nil || strings.TrimSpace(*req.Axis) == "" {
			return nil, invalid("axis", "is required for Move")
		}

		axis, axisErr := requireText("axis", *req.Axis, maxAxisLength)
		if axisErr != nil {
			return nil, axisErr
		}

		// Any non-empty axis passes; the actor treats unknown axes as a no-op.
		cmd.Axis = robot.Axis(strings.ToUpper(axis))
		cmd.Distance = req.Distance
	case robot.CommandRotate:
		if req.RotateAngle == nil {
			return nil, invalid("rotate_angle", "is required for Rotate")
		}

		cmd.RotateAngle = *req.RotateAngle
	case robot.CommandStop:
	}

	return cmd, nil
}

func (req *StreamRequest) toCommand(now time.Time) (*robot.StreamCommand, error) {
	for _, c := range []struct {
		field string
		value float64
	}{
		{"x", req.X},
		{"y", req.Y},
		{"z", req.Z},
		{"rotation", req.Rotation},
	} {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return nil, invalid(c.field, "must be a finite number")
		}
	}

	cmd := &robot.StreamCommand{
		X:         req.X,
		Y:         req.Y,
		Z:         req.Z,
		Rotation:  req.Rotation,
		Timestamp: req.Timestamp,
	}

	if cmd.Timestamp.IsZero() {
		cmd.Timestamp = now
	}

	return cmd, nil
}
