package gateway

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/oshokin/telerobot/internal/actor"
	"github.com/oshokin/telerobot/internal/domain/robot"
	"github.com/oshokin/telerobot/internal/logger"
	"github.com/oshokin/telerobot/internal/repository/command"
)

const tracerName = "github.com/oshokin/telerobot/internal/gateway"

// Controller is the actor surface the gateway drives.
type Controller interface {
	ExecuteDiscrete(ctx context.Context, cmd *robot.DiscreteCommand) actor.Result
	ExecuteStream(ctx context.Context, robotID string, cmd *robot.StreamCommand) error
	EndStreamSession(ctx context.Context, robotID string) error
	GetStatus(ctx context.Context, robotID string) (*robot.State, error)
	GetRecentStream(ctx context.Context, robotID string) ([]robot.StreamCommand, error)
}

// Outcome pairs an admitted command with what the actor made of it.
type Outcome struct {
	Command *robot.DiscreteCommand
	Result  actor.Result
}

// Gateway validates requests and forwards them to the actors.
type Gateway struct {
	controller Controller
	commands   command.Repository
	tracer     trace.Tracer
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTracerProvider replaces the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(g *Gateway) {
		if tp != nil {
			g.tracer = tp.Tracer(tracerName)
		}
	}
}

// New returns a gateway over controller. commands may be nil to disable the command log.
func New(controller Controller, commands command.Repository, opts ...Option) *Gateway {
	g := &Gateway{
		controller: controller,
		commands:   commands,
		tracer:     otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// SubmitCommand validates req, runs it on the robot's actor and records it
// when accepted. A ValidationError means no actor was touched.
func (g *Gateway) SubmitCommand(ctx context.Context, req *CommandRequest) (*Outcome, error) {
	ctx, span := g.tracer.Start(ctx, "gateway.SubmitCommand",
		trace.WithAttributes(
			attribute.String("robot.id", req.RobotID),
			attribute.String("command.type", req.Type),
		),
	)
	defer span.End()

	cmd, err := req.toCommand(time.Now().UTC())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")

		return nil, err
	}

	span.SetAttributes(attribute.String("command.id", cmd.ID))

	ctx = logger.WithKV(ctx, "robot_id", cmd.RobotID, "command_id", cmd.ID)

	res := g.controller.ExecuteDiscrete(ctx, cmd)

	span.SetAttributes(attribute.String("command.status", string(res.Status)))

	switch res.Status {
	case actor.StatusAccepted:
		g.record(ctx, cmd)
	case actor.StatusRejected:
		span.SetAttributes(attribute.String("command.reason", res.Reason))
	case actor.StatusError:
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Reason)
	}

	return &Outcome{Command: cmd, Result: res}, nil
}

func (g *Gateway) record(ctx context.Context, cmd *robot.DiscreteCommand) {
	if g.commands == nil {
		return
	}

	if err := g.commands.Append(ctx, cmd); err != nil {
		logger.ErrorKV(ctx, "Failed to append command to the log", "error", err)
	}
}

// SubmitStream validates and applies one stream command.
func (g *Gateway) SubmitStream(ctx context.Context, robotID string, req *StreamRequest) error {
	robotID, err := normalizeRobotID(robotID)
	if err != nil {
		return err
	}

	cmd, err := req.toCommand(time.Now().UTC())
	if err != nil {
		return err
	}

	return g.controller.ExecuteStream(ctx, robotID, cmd)
}

// EndStreamSession flushes the robot's stream history.
func (g *Gateway) EndStreamSession(ctx context.Context, robotID string) error {
	ctx, span := g.tracer.Start(ctx, "gateway.EndStreamSession",
		trace.WithAttributes(attribute.String("robot.id", robotID)))
	defer span.End()

	robotID, err := normalizeRobotID(robotID)
	if err != nil {
		return err
	}

	if err = g.controller.EndStreamSession(ctx, robotID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "flush failed")

		return fmt.Errorf("end stream session: %w", err)
	}

	return nil
}

// Status returns the current state of a robot, activating it if needed.
func (g *Gateway) Status(ctx context.Context, robotID string) (*robot.State, error) {
	robotID, err := normalizeRobotID(robotID)
	if err != nil {
		return nil, err
	}

	return g.controller.GetStatus(ctx, robotID)
}

// RecentStream returns up to the last 20 stream commands, oldest first.
func (g *Gateway) RecentStream(ctx context.Context, robotID string) ([]robot.StreamCommand, error) {
	robotID, err := normalizeRobotID(robotID)
	if err != nil {
		return nil, err
	}

	return g.controller.GetRecentStream(ctx, robotID)
}

// CommandHistory lists the accepted commands of a robot, oldest first.
func (g *Gateway) CommandHistory(ctx context.Context, robotID string) ([]robot.DiscreteCommand, error) {
	robotID, err := normalizeRobotID(robotID)
	if err != nil {
		return nil, err
	}

	if g.commands == nil {
		return nil, nil
	}

	return g.commands.ListByRobot(ctx, robotID)
}

// Command returns one accepted command by id.
func (g *Gateway) Command(ctx context.Context, id string) (*robot.DiscreteCommand, error) {
	id, err := requireText("id", id, maxIDLength)
	if err != nil {
		return nil, err
	}

	if g.commands == nil {
		return nil, command.ErrNotFound
	}

	return g.commands.Get(ctx, id)
}

// UpdateCommand replaces the logged command id with req. The record is
// edited only; the robot does not execute it again.
func (g *Gateway) UpdateCommand(ctx context.Context, id string, req *CommandRequest) (*robot.DiscreteCommand, error) {
	ctx, span := g.tracer.Start(ctx, "gateway.UpdateCommand",
		trace.WithAttributes(attribute.String("command.id", id)))
	defer span.End()

	id, err := requireText("id", id, maxIDLength)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")

		return nil, err
	}

	cmd, err := req.toCommand(time.Now().UTC())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")

		return nil, err
	}

	cmd.ID = id

	if g.commands == nil {
		return nil, command.ErrNotFound
	}

	if err = g.commands.Update(ctx, cmd); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")

		return nil, fmt.Errorf("update command: %w", err)
	}

	logger.InfoKV(ctx, "Command record updated", "command_id", id, "robot_id", cmd.RobotID)

	return cmd, nil
}
