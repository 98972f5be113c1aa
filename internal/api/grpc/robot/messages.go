package robot

import (
	"time"

	domain "github.com/oshokin/telerobot/internal/domain/robot"
)

// CommandRequest submits a discrete command.
type CommandRequest struct {
	RobotID     string     `json:"robot_id"`
	CommandType string     `json:"command_type"`
	Axis        *string    `json:"axis,omitempty"`
	Distance    int        `json:"distance,omitempty"`
	RotateAngle *int       `json:"rotate_angle,omitempty"`
	User        string     `json:"user"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// CommandResponse reports the outcome of a discrete command.
type CommandResponse struct {
	ID string `json:"id"`
	// Status is accepted, rejected or error.
	Status string          `json:"status"`
	Reason string          `json:"reason,omitempty"`
	State  *StatusResponse `json:"state,omitempty"`
}

// StatusRequest names a robot.
type StatusRequest struct {
	RobotID string `json:"robot_id"`
}

// StatusResponse is a robot state snapshot.
type StatusResponse struct {
	RobotID    string    `json:"robot_id"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	Z          int       `json:"z"`
	Rotation   int       `json:"rotation"`
	Task       string    `json:"task"`
	Status     string    `json:"status"`
	Mode       string    `json:"mode"`
	LastUpdate time.Time `json:"last_update"`
}

// StreamCommand is one retained stream command.
type StreamCommand struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Rotation  float64   `json:"rotation"`
	Timestamp time.Time `json:"timestamp"`
}

// RecentStreamResponse lists retained stream commands oldest first.
type RecentStreamResponse struct {
	RobotID  string          `json:"robot_id"`
	Commands []StreamCommand `json:"commands"`
}

// CommandHistoryRequest names the robot whose command log is listed.
type CommandHistoryRequest struct {
	RobotID string `json:"robot_id"`
}

// CommandRecord is one accepted discrete command.
type CommandRecord struct {
	ID          string    `json:"id"`
	RobotID     string    `json:"robot_id"`
	CommandType string    `json:"command_type"`
	Axis        string    `json:"axis,omitempty"`
	Distance    int       `json:"distance,omitempty"`
	RotateAngle int       `json:"rotate_angle,omitempty"`
	User        string    `json:"user"`
	Timestamp   time.Time `json:"timestamp"`
}

// CommandHistoryResponse lists accepted commands oldest first.
type CommandHistoryResponse struct {
	RobotID  string          `json:"robot_id"`
	Commands []CommandRecord `json:"commands"`
}

// GetCommandRequest looks up one command by id.
type GetCommandRequest struct {
	ID string `json:"id"`
}

// UpdateCommandRequest replaces the logged command ID with the embedded fields.
type UpdateCommandRequest struct {
	ID string `json:"id"`
	CommandRequest
}

// StreamFrame is one message of a StreamControl session. The first frame
// must name the robot; later frames may leave RobotID empty.
type StreamFrame struct {
	RobotID   string     `json:"robot_id,omitempty"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	Z         float64    `json:"z"`
	Rotation  float64    `json:"rotation"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// StreamSummary closes a StreamControl session.
type StreamSummary struct {
	RobotID  string `json:"robot_id"`
	Accepted int    `json:"accepted"`
	// PersistenceErrors counts frames whose edge persistence failed.
	PersistenceErrors int             `json:"persistence_errors,omitempty"`
	Final             *StatusResponse `json:"final,omitempty"`
}

func toStatusResponse(s *domain.State) *StatusResponse {
	if s == nil {
		return nil
	}

	return &StatusResponse{
		RobotID:    s.RobotID,
		X:          s.X,
		Y:          s.Y,
		Z:          s.Z,
		Rotation:   s.Rotation,
		Task:       s.Task,
		Status:     s.Status,
		Mode:       string(s.Mode()),
		LastUpdate: s.LastUpdate,
	}
}

func toStreamCommands(cmds []domain.StreamCommand) []StreamCommand {
	result := make([]StreamCommand, 0, len(cmds))
	for _, c := range cmds {
		result = append(result, StreamCommand(c))
	}

	return result
}

func toCommandRecord(c *domain.DiscreteCommand) *CommandRecord {
	return &CommandRecord{
		ID:          c.ID,
		RobotID:     c.RobotID,
		CommandType: string(c.Type),
		Axis:        string(c.Axis),
		Distance:    c.Distance,
		RotateAngle: c.RotateAngle,
		User:        c.User,
		Timestamp:   c.Timestamp,
	}
}
