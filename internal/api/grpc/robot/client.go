package robot

import (
	"context"

	"google.golang.org/grpc"
)

// RobotServiceClient is the client API of the robot service.
type RobotServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewRobotServiceClient returns a client over cc.
func NewRobotServiceClient(cc grpc.ClientConnInterface) *RobotServiceClient {
	return &RobotServiceClient{cc: cc}
}

// ExecuteCommand submits a discrete command.
func (c *RobotServiceClient) ExecuteCommand(
	ctx context.Context,
	in *CommandRequest,
	opts ...grpc.CallOption,
) (*CommandResponse, error) {
	return invoke[CommandResponse](ctx, c.cc, executeCommandMethod, in, opts)
}

// GetStatus returns the current robot state.
func (c *RobotServiceClient) GetStatus(
	ctx context.Context,
	in *StatusRequest,
	opts ...grpc.CallOption,
) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, getStatusMethod, in, opts)
}

// GetRecentStreamCommands returns the retained stream commands.
func (c *RobotServiceClient) GetRecentStreamCommands(
	ctx context.Context,
	in *StatusRequest,
	opts ...grpc.CallOption,
) (*RecentStreamResponse, error) {
	return invoke[RecentStreamResponse](ctx, c.cc, getRecentStreamCommandsMethod, in, opts)
}

// GetCommandHistory lists the accepted commands of a robot.
func (c *RobotServiceClient) GetCommandHistory(
	ctx context.Context,
	in *CommandHistoryRequest,
	opts ...grpc.CallOption,
) (*CommandHistoryResponse, error) {
	return invoke[CommandHistoryResponse](ctx, c.cc, getCommandHistoryMethod, in, opts)
}

// GetCommand returns one accepted command.
func (c *RobotServiceClient) GetCommand(
	ctx context.Context,
	in *GetCommandRequest,
	opts ...grpc.CallOption,
) (*CommandRecord, error) {
	return invoke[CommandRecord](ctx, c.cc, getCommandMethod, in, opts)
}

// UpdateCommand replaces one logged command.
func (c *RobotServiceClient) UpdateCommand(
	ctx context.Context,
	in *UpdateCommandRequest,
	opts ...grpc.CallOption,
) (*CommandRecord, error) {
	return invoke[CommandRecord](ctx, c.cc, updateCommandMethod, in, opts)
}

// StreamControl opens a stream session.
func (c *RobotServiceClient) StreamControl(
	ctx context.Context,
	opts ...grpc.CallOption,
) (grpc.ClientStreamingClient[StreamFrame, StreamSummary], error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], streamControlMethod, withCodec(opts)...)
	if err != nil {
		return nil, err
	}

	return &grpc.GenericClientStream[StreamFrame, StreamSummary]{ClientStream: stream}, nil
}

// WatchStatus subscribes to status snapshots of a robot.
func (c *RobotServiceClient) WatchStatus(
	ctx context.Context,
	in *StatusRequest,
	opts ...grpc.CallOption,
) (grpc.ServerStreamingClient[StatusResponse], error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[1], watchStatusMethod, withCodec(opts)...)
	if err != nil {
		return nil, err
	}

	x := &grpc.GenericClientStream[StatusRequest, StatusResponse]{ClientStream: stream}

	if err = x.SendMsg(in); err != nil {
		return nil, err
	}

	if err = x.CloseSend(); err != nil {
		return nil, err
	}

	return x, nil
}

func invoke[Res any](
	ctx context.Context,
	cc grpc.ClientConnInterface,
	method string,
	in any,
	opts []grpc.CallOption,
) (*Res, error) {
	out := new(Res)
	if err := cc.Invoke(ctx, method, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}

	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
