package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	api "github.com/oshokin/telerobot/internal/api/grpc/robot"
	"github.com/oshokin/telerobot/internal/config"
	"github.com/oshokin/telerobot/internal/logger"
	"github.com/oshokin/telerobot/internal/service/common"
)

// Options configures a robot-ctl operation.
type Options struct {
	// ConfigPath to the settings file, defaults to the standard filename if empty.
	ConfigPath string
	// ServerAddress overrides the server address from the settings file.
	ServerAddress string
	// User overrides the detected username@hostname.
	User string
	// Out receives YAML output; defaults to stdout.
	Out io.Writer
	// In is read by Stream; defaults to stdin.
	In io.Reader
}

// ErrNotAccepted is returned after printing a rejected or failed command.
var ErrNotAccepted = errors.New("command was not accepted")

// session is one connected robot-ctl invocation.
type session struct {
	client *common.Client
	opts   *Options
	out    *yaml.Encoder
}

// withSession loads settings, connects and runs fn.
func withSession(ctx context.Context, opts *Options, fn func(ctx context.Context, s *session) error) error {
	cfg, err := loadSettings(opts)
	if err != nil {
		return err
	}

	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	if opts.In == nil {
		opts.In = os.Stdin
	}

	client, err := common.Dial(ctx, cfg.ServerAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	enc := yaml.NewEncoder(opts.Out)
	enc.SetIndent(2)

	defer func() {
		_ = enc.Close()
	}()

	logger.DebugKV(ctx, "Connected to robot server", "server_address", cfg.ServerAddress)

	return fn(ctx, &session{client: client, opts: opts, out: enc})
}

// loadSettings reads the settings file. A missing file is tolerated when the
// server address is given explicitly.
func loadSettings(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)

	switch {
	case err == nil:
	case opts.ServerAddress != "" && errors.Is(err, fs.ErrNotExist):
		cfg = &config.Config{ServerAddress: opts.ServerAddress}
	default:
		return nil, err
	}

	if opts.ServerAddress != "" {
		cfg.ServerAddress = opts.ServerAddress
	}

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (s *session) user() (string, error) {
	if s.opts.User != "" {
		return s.opts.User, nil
	}

	return common.DetectUser()
}

func (s *session) print(v any) error {
	if err := s.out.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}

func (s *session) printResult(resp *api.CommandResponse) error {
	if err := s.print(resp); err != nil {
		return err
	}

	if resp.Status != "accepted" {
		return fmt.Errorf("%w: %s", ErrNotAccepted, resp.Reason)
	}

	return nil
}

// Move translates robotID along axis by distance.
func Move(ctx context.Context, opts *Options, robotID, axis string, distance int) error {
	return withSession(ctx, opts, func(ctx context.Context, s *session) error {
		user, err := s.user()
		if err != nil {
			return err
		}

		resp, err := s.client.Move(ctx, robotID, axis, distance, user)
		if err != nil {
			return err
		}

		return s.printResult(resp)
	})
}

// Rotate turns robotID by angle degrees.
func Rotate(ctx context.Context, opts *Options, robotID string, angle int) error {
	return withSession(ctx, opts, func(ctx context.Context, s *session) error {
		user, err := s.user()
		if err != nil {
			return err
		}

		resp, err := s.client.Rotate(ctx, robotID, angle, user)
		if err != nil {
			return err
		}

		return s.printResult(resp)
	})
}

// Stop halts robotID.
func Stop(ctx context.Context, opts *Options, robotID string) error {
	return withSession(ctx, opts, func(ctx context.Context, s *session) error {
		user, err := s.user()
		if err != nil {
			return err
		}

		resp, err := s.client.Stop(ctx, robotID, user)
		if err != nil {
			return err
		}

		return s.printResult(resp)
	})
}

// Status prints the current state of robotID.
func Status(ctx context.Context, opts *Options, robotID string) error {
	return withSession(ctx, opts, func(ctx context.Context, s *session) error {
		resp, err := s.client.Status(ctx, robotID)
		if err != nil {
			return err
		}

		return s.print(resp)
	})
}

// Recent prints the retained stream commands of robotID.
func Recent(ctx context.Context, opts *Options, robotID string) error {
	return withSession(ctx, opts, func(ctx context.Context, s *session) error {
		resp, err := s.client.RecentStream(ctx, robotID)
		if err != nil {
			return err
		}

		return s.print(resp)
	})
}

// Commands prints the accepted commands of robotID.
func Commands(ctx context.Context, opts *Options, robotID string) error {
	return withSession(ctx, opts, func(ctx context.Context, s *session) error {
		resp, err := s.client.CommandHistory(ctx, robotID)
		if err != nil {
			return err
		}

		return s.print(resp)
	})
}

// Command prints one accepted command.
func Command(ctx context.Context, opts *Options, id string) error {
	return withSession(ctx, opts, func(ctx context.Context, s *session) error {
		resp, err := s.client.Command(ctx, id)
		if err != nil {
			return err
		}

		return s.print(resp)
	})
}

// CommandEdit is the replacement content of a logged command.
type CommandEdit struct {
	RobotID  string
	Type     string
	Axis     string
	Distance int
	// Angle is sent only for Rotate.
	Angle *int
}

// UpdateCommand replaces the logged command id and prints the stored record.
func UpdateCommand(ctx context.Context, opts *Options, id string, edit *CommandEdit) error {
	return withSession(ctx, opts, func(ctx context.Context, s *session) error {
		user, err := s.user()
		if err != nil {
			return err
		}

		req := &api.CommandRequest{
			RobotID:     edit.RobotID,
			CommandType: edit.Type,
			Distance:    edit.Distance,
			RotateAngle: edit.Angle,
			User:        user,
		}

		if edit.Axis != "" {
			req.Axis = &edit.Axis
		}

		resp, err := s.client.UpdateCommand(ctx, id, req)
		if err != nil {
			return err
		}

		return s.print(resp)
	})
}

// Health prints the serving status of the server.
func Health(ctx context.Context, opts *Options) error {
	return withSession(ctx, opts, func(ctx context.Context, s *session) error {
		status, err := s.client.Health(ctx)
		if err != nil {
			return err
		}

		return s.print(map[string]string{"status": status})
	})
}

// Watch prints every status change of robotID until ctx is done.
func Watch(ctx context.Context, opts *Options, robotID string) error {
	return withSession(ctx, opts, func(ctx context.Context, s *session) error {
		stream, err := s.client.Watch(ctx, robotID)
		if err != nil {
			return err
		}

		for {
			resp, err := stream.Recv()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return nil
				}

				return fmt.Errorf("receive status: %w", err)
			}

			if err = s.print(resp); err != nil {
				return err
			}
		}
	})
}
