//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	api "github.com/oshokin/telerobot/internal/api/grpc/robot"
	"github.com/oshokin/telerobot/internal/config"
)

// Client wraps the robot service client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the robot server.
	conn *grpc.ClientConn
	// api is the robot service client.
	api *api.RobotServiceClient

	// callTimeout is the default timeout for unary calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for unary calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errRobotRequired is returned when a call does not name a robot.
	errRobotRequired = errors.New("robot id must be provided")
)

// Dial establishes a gRPC connection to the robot server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial robot server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewRobotServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Execute submits a discrete command.
func (c *Client) Execute(ctx context.Context, req *api.CommandRequest) (*api.CommandResponse, error) {
	if req == nil || req.RobotID == "" {
		return nil, errRobotRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.ExecuteCommand(callCtx, req)
	if err != nil {
		return nil, fmt.Errorf("execute %s command: %w", req.CommandType, err)
	}

	return resp, nil
}

// Move translates a robot along axis.
func (c *Client) Move(ctx context.Context, robotID, axis string, distance int, user string) (*api.CommandResponse, error) {
	return c.Execute(ctx, &api.CommandRequest{
		RobotID:     robotID,
		CommandType: "Move",
		Axis:        &axis,
		Distance:    distance,
		User:        user,
	})
}

// Rotate turns a robot by angle degrees.
func (c *Client) Rotate(ctx context.Context, robotID string, angle int, user string) (*api.CommandResponse, error) {
	return c.Execute(ctx, &api.CommandRequest{
		RobotID:     robotID,
		CommandType: "Rotate",
		RotateAngle: &angle,
		User:        user,
	})
}

// Stop halts a robot.
func (c *Client) Stop(ctx context.Context, robotID, user string) (*api.CommandResponse, error) {
	return c.Execute(ctx, &api.CommandRequest{
		RobotID:     robotID,
		CommandType: "Stop",
		User:        user,
	})
}

// Status retrieves the current state of a robot.
func (c *Client) Status(ctx context.Context, robotID string) (*api.StatusResponse, error) {
	if robotID == "" {
		return nil, errRobotRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetStatus(callCtx, &api.StatusRequest{RobotID: robotID})
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	return resp, nil
}

// RecentStream retrieves the retained stream commands of a robot.
func (c *Client) RecentStream(ctx context.Context, robotID string) (*api.RecentStreamResponse, error) {
	if robotID == "" {
		return nil, errRobotRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetRecentStreamCommands(callCtx, &api.StatusRequest{RobotID: robotID})
	if err != nil {
		return nil, fmt.Errorf("get recent stream commands: %w", err)
	}

	return resp, nil
}

// CommandHistory lists the accepted commands of a robot.
func (c *Client) CommandHistory(ctx context.Context, robotID string) (*api.CommandHistoryResponse, error) {
	if robotID == "" {
		return nil, errRobotRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetCommandHistory(callCtx, &api.CommandHistoryRequest{RobotID: robotID})
	if err != nil {
		return nil, fmt.Errorf("get command history: %w", err)
	}

	return resp, nil
}

// Command retrieves one accepted command.
func (c *Client) Command(ctx context.Context, id string) (*api.CommandRecord, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetCommand(callCtx, &api.GetCommandRequest{ID: id})
	if err != nil {
		return nil, fmt.Errorf("get command: %w", err)
	}

	return resp, nil
}

// UpdateCommand replaces the logged command id with req.
func (c *Client) UpdateCommand(ctx context.Context, id string, req *api.CommandRequest) (*api.CommandRecord, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.UpdateCommand(callCtx, &api.UpdateCommandRequest{ID: id, CommandRequest: *req})
	if err != nil {
		return nil, fmt.Errorf("update command: %w", err)
	}

	return resp, nil
}

// Stream opens a stream session. It is not bound by the call timeout.
func (c *Client) Stream(ctx context.Context) (grpc.ClientStreamingClient[api.StreamFrame, api.StreamSummary], error) {
	stream, err := c.api.StreamControl(ctx)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}

	return stream, nil
}

// Watch subscribes to status changes of a robot until ctx is done.
func (c *Client) Watch(ctx context.Context, robotID string) (grpc.ServerStreamingClient[api.StatusResponse], error) {
	if robotID == "" {
		return nil, errRobotRequired
	}

	stream, err := c.api.WatchStatus(ctx, &api.StatusRequest{RobotID: robotID})
	if err != nil {
		return nil, fmt.Errorf("watch status: %w", err)
	}

	return stream, nil
}

// Health returns the serving status of the robot service, e.g. "SERVING".
func (c *Client) Health(ctx context.Context) (string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := healthpb.NewHealthClient(c.conn).Check(callCtx, &healthpb.HealthCheckRequest{Service: api.ServiceName})
	if err != nil {
		return "", fmt.Errorf("health check: %w", err)
	}

	return resp.GetStatus().String(), nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
