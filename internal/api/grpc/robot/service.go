package robot

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "telerobot.v1.RobotService"

const (
	executeCommandMethod          = "/" + ServiceName + "/ExecuteCommand"
	getStatusMethod               = "/" + ServiceName + "/GetStatus"
	getRecentStreamCommandsMethod = "/" + ServiceName + "/GetRecentStreamCommands"
	getCommandHistoryMethod       = "/" + ServiceName + "/GetCommandHistory"
	getCommandMethod              = "/" + ServiceName + "/GetCommand"
	updateCommandMethod           = "/" + ServiceName + "/UpdateCommand"
	streamControlMethod           = "/" + ServiceName + "/StreamControl"
	watchStatusMethod             = "/" + ServiceName + "/WatchStatus"
)

// RobotServiceServer is the server API of the robot service.
type RobotServiceServer interface {
	ExecuteCommand(ctx context.Context, req *CommandRequest) (*CommandResponse, error)
	GetStatus(ctx context.Context, req *StatusRequest) (*StatusResponse, error)
	GetRecentStreamCommands(ctx context.Context, req *StatusRequest) (*RecentStreamResponse, error)
	GetCommandHistory(ctx context.Context, req *CommandHistoryRequest) (*CommandHistoryResponse, error)
	GetCommand(ctx context.Context, req *GetCommandRequest) (*CommandRecord, error)
	UpdateCommand(ctx context.Context, req *UpdateCommandRequest) (*CommandRecord, error)
	StreamControl(stream grpc.ClientStreamingServer[StreamFrame, StreamSummary]) error
	WatchStatus(req *StatusRequest, stream grpc.ServerStreamingServer[StatusResponse]) error
}

// ServiceDesc describes the robot service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RobotServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ExecuteCommand",
			Handler:    unaryHandler(executeCommandMethod, RobotServiceServer.ExecuteCommand),
		},
		{
			MethodName: "GetStatus",
			Handler:    unaryHandler(getStatusMethod, RobotServiceServer.GetStatus),
		},
		{
			MethodName: "GetRecentStreamCommands",
			Handler:    unaryHandler(getRecentStreamCommandsMethod, RobotServiceServer.GetRecentStreamCommands),
		},
		{
			MethodName: "GetCommandHistory",
			Handler:    unaryHandler(getCommandHistoryMethod, RobotServiceServer.GetCommandHistory),
		},
		{
			MethodName: "GetCommand",
			Handler:    unaryHandler(getCommandMethod, RobotServiceServer.GetCommand),
		},
		{
			MethodName: "UpdateCommand",
			Handler:    unaryHandler(updateCommandMethod, RobotServiceServer.UpdateCommand),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamControl",
			Handler:       streamControlHandler,
			ClientStreams: true,
		},
		{
			StreamName:    "WatchStatus",
			Handler:       watchStatusHandler,
			ServerStreams: true,
		},
	},
	Metadata: "telerobot/v1/robot.proto",
}

// RegisterRobotServiceServer registers srv on s.
func RegisterRobotServiceServer(s grpc.ServiceRegistrar, srv RobotServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unaryHandler[Req, Res any](
	fullMethod string,
	call func(RobotServiceServer, context.Context, *Req) (*Res, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return call(srv.(RobotServiceServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RobotServiceServer), ctx, req.(*Req))
		}

		return interceptor(ctx, in, info, handler)
	}
}

func streamControlHandler(srv any, stream grpc.ServerStream) error {
	return srv.(RobotServiceServer).StreamControl(&grpc.GenericServerStream[StreamFrame, StreamSummary]{ServerStream: stream})
}

func watchStatusHandler(srv any, stream grpc.ServerStream) error {
	in := new(StatusRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	return srv.(RobotServiceServer).WatchStatus(in, &grpc.GenericServerStream[StatusRequest, StatusResponse]{ServerStream: stream})
}
