package robot

import (
	"context"
	"errors"
	"io"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/telerobot/internal/actor"
	"github.com/oshokin/telerobot/internal/broadcast"
	domain "github.com/oshokin/telerobot/internal/domain/robot"
	"github.com/oshokin/telerobot/internal/gateway"
	"github.com/oshokin/telerobot/internal/logger"
	"github.com/oshokin/telerobot/internal/repository/command"
)

// Service abstracts the gateway operations the transport depends on.
type Service interface {
	SubmitCommand(ctx context.Context, req *gateway.CommandRequest) (*gateway.Outcome, error)
	SubmitStream(ctx context.Context, robotID string, req *gateway.StreamRequest) error
	EndStreamSession(ctx context.Context, robotID string) error
	Status(ctx context.Context, robotID string) (*domain.State, error)
	RecentStream(ctx context.Context, robotID string) ([]domain.StreamCommand, error)
	CommandHistory(ctx context.Context, robotID string) ([]domain.DiscreteCommand, error)
	Command(ctx context.Context, id string) (*domain.DiscreteCommand, error)
	UpdateCommand(ctx context.Context, id string, req *gateway.CommandRequest) (*domain.DiscreteCommand, error)
}

// Watcher hands out status subscriptions.
type Watcher interface {
	Subscribe(robotID string, buffer int) *broadcast.Subscription
}

// Server implements RobotServiceServer.
type Server struct {
	service      Service
	watcher      Watcher
	statusBuffer int
}

// NewServer wires service and watcher into a gRPC handler. statusBuffer is
// the channel capacity of each WatchStatus subscription.
func NewServer(service Service, watcher Watcher, statusBuffer int) *Server {
	return &Server{
		service:      service,
		watcher:      watcher,
		statusBuffer: statusBuffer,
	}
}

// ExecuteCommand validates and runs a discrete command.
func (s *Server) ExecuteCommand(ctx context.Context, req *CommandRequest) (*CommandResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	outcome, err := s.service.SubmitCommand(ctx, toGatewayRequest(req))
	if err != nil {
		return nil, toStatusError(err)
	}

	return &CommandResponse{
		ID:     outcome.Command.ID,
		Status: string(outcome.Result.Status),
		Reason: outcome.Result.Reason,
		State:  toStatusResponse(outcome.Result.State),
	}, nil
}

// GetStatus returns the current state of a robot.
func (s *Server) GetStatus(ctx context.Context, req *StatusRequest) (*StatusResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	st, err := s.service.Status(ctx, req.RobotID)
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStatusResponse(st), nil
}

// GetRecentStreamCommands returns the retained stream commands of a robot.
func (s *Server) GetRecentStreamCommands(ctx context.Context, req *StatusRequest) (*RecentStreamResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	cmds, err := s.service.RecentStream(ctx, req.RobotID)
	if err != nil {
		return nil, toStatusError(err)
	}

	return &RecentStreamResponse{
		RobotID:  strings.TrimSpace(req.RobotID),
		Commands: toStreamCommands(cmds),
	}, nil
}

// GetCommandHistory lists the accepted commands of a robot.
func (s *Server) GetCommandHistory(ctx context.Context, req *CommandHistoryRequest) (*CommandHistoryResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	cmds, err := s.service.CommandHistory(ctx, req.RobotID)
	if err != nil {
		return nil, toStatusError(err)
	}

	records := make([]CommandRecord, 0, len(cmds))
	for i := range cmds {
		records = append(records, *toCommandRecord(&cmds[i]))
	}

	return &CommandHistoryResponse{
		RobotID:  strings.TrimSpace(req.RobotID),
		Commands: records,
	}, nil
}

// GetCommand returns one accepted command.
func (s *Server) GetCommand(ctx context.Context, req *GetCommandRequest) (*CommandRecord, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	cmd, err := s.service.Command(ctx, req.ID)
	if err != nil {
		return nil, toStatusError(err)
	}

	return toCommandRecord(cmd), nil
}

// UpdateCommand replaces one logged command without executing it.
func (s *Server) UpdateCommand(ctx context.Context, req *UpdateCommandRequest) (*CommandRecord, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	cmd, err := s.service.UpdateCommand(ctx, req.ID, toGatewayRequest(&req.CommandRequest))
	if err != nil {
		return nil, toStatusError(err)
	}

	return toCommandRecord(cmd), nil
}

func toGatewayRequest(req *CommandRequest) *gateway.CommandRequest {
	request := &gateway.CommandRequest{
		RobotID:     req.RobotID,
		Type:        req.CommandType,
		Axis:        req.Axis,
		Distance:    req.Distance,
		RotateAngle: req.RotateAngle,
		User:        req.User,
	}

	if req.Timestamp != nil {
		request.Timestamp = req.Timestamp.UTC()
	}

	return request
}

// StreamControl applies stream frames until the client closes the stream.
// The session is flushed however it ends.
func (s *Server) StreamControl(stream grpc.ClientStreamingServer[StreamFrame, StreamSummary]) error {
	ctx := stream.Context()
	summary := &StreamSummary{}

	for {
		frame, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			s.endSession(ctx, summary.RobotID)

			return err
		}

		if summary.RobotID == "" {
			summary.RobotID = strings.TrimSpace(frame.RobotID)
			if summary.RobotID == "" {
				return status.Error(codes.InvalidArgument, "the first frame must name the robot")
			}

			ctx = logger.WithKV(ctx, "robot_id", summary.RobotID)
			logger.InfoKV(ctx, "Stream session opened")
		} else if id := strings.TrimSpace(frame.RobotID); id != "" && id != summary.RobotID {
			s.endSession(ctx, summary.RobotID)

			return status.Errorf(codes.InvalidArgument, "stream is bound to robot %q", summary.RobotID)
		}

		request := &gateway.StreamRequest{
			X:        frame.X,
			Y:        frame.Y,
			Z:        frame.Z,
			Rotation: frame.Rotation,
		}

		if frame.Timestamp != nil {
			request.Timestamp = frame.Timestamp.UTC()
		}

		err = s.service.SubmitStream(ctx, summary.RobotID, request)

		switch {
		case err == nil:
			summary.Accepted++
		case errors.Is(err, actor.ErrPersistence):
			// The pose was applied; only the mode change was not stored.
			summary.Accepted++
			summary.PersistenceErrors++
		default:
			s.endSession(ctx, summary.RobotID)

			return toStatusError(err)
		}
	}

	if summary.RobotID == "" {
		return status.Error(codes.InvalidArgument, "stream carried no frames")
	}

	if err := s.service.EndStreamSession(ctx, summary.RobotID); err != nil {
		return toStatusError(err)
	}

	final, err := s.service.Status(ctx, summary.RobotID)
	if err != nil {
		return toStatusError(err)
	}

	summary.Final = toStatusResponse(final)

	logger.InfoKV(ctx, "Stream session closed", "accepted", summary.Accepted)

	return stream.SendAndClose(summary)
}

// endSession flushes a session that ended abnormally.
func (s *Server) endSession(ctx context.Context, robotID string) {
	if robotID == "" {
		return
	}

	if err := s.service.EndStreamSession(context.WithoutCancel(ctx), robotID); err != nil {
		logger.ErrorKV(ctx, "Failed to flush interrupted stream session", "error", err)

		return
	}

	logger.InfoKV(ctx, "Interrupted stream session flushed")
}

// WatchStatus sends the current state of a robot followed by every change.
func (s *Server) WatchStatus(req *StatusRequest, stream grpc.ServerStreamingServer[StatusResponse]) error {
	ctx := stream.Context()

	robotID := strings.TrimSpace(req.RobotID)
	if robotID == "" {
		return status.Error(codes.InvalidArgument, "robot_id is required")
	}

	// Subscribe before reading the current state so no change is missed.
	sub := s.watcher.Subscribe(robotID, s.statusBuffer)
	defer sub.Close()

	current, err := s.service.Status(ctx, robotID)
	if err != nil {
		return toStatusError(err)
	}

	if err = stream.Send(toStatusResponse(current)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case snapshot, ok := <-sub.C():
			if !ok {
				return status.Error(codes.Unavailable, "status feed closed")
			}

			if err = stream.Send(toStatusResponse(&snapshot)); err != nil {
				return err
			}
		}
	}
}

// toStatusError maps domain errors onto gRPC codes.
func toStatusError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, gateway.ErrMalformedInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, command.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, actor.ErrRegistryClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

var _ RobotServiceServer = (*Server)(nil)
