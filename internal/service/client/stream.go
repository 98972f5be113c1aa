package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	api "github.com/oshokin/telerobot/internal/api/grpc/robot"
	"github.com/oshokin/telerobot/internal/logger"
)

// errFrameFields is returned for input lines that are not four numbers.
var errFrameFields = errors.New("expected four numbers: x y z rotation")

// Stream sends one frame per input line to robotID and prints the session summary.
// Empty lines and lines starting with # are skipped.
func Stream(ctx context.Context, opts *Options, robotID string) error {
	return withSession(ctx, opts, func(ctx context.Context, s *session) error {
		stream, err := s.client.Stream(ctx)
		if err != nil {
			return err
		}

		scanner := bufio.NewScanner(s.opts.In)
		first := true
		lineNo := 0

		for scanner.Scan() {
			lineNo++

			frame, ok, err := parseFrame(scanner.Text())
			if err != nil {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}

			if !ok {
				continue
			}

			if first {
				frame.RobotID = robotID
				first = false
			}

			if err = stream.Send(frame); err != nil {
				// The server ended the session; CloseAndRecv reports why.
				if errors.Is(err, io.EOF) {
					break
				}

				return fmt.Errorf("send frame: %w", err)
			}
		}

		if err = scanner.Err(); err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		summary, err := stream.CloseAndRecv()
		if err != nil {
			return fmt.Errorf("close stream: %w", err)
		}

		logger.DebugKV(ctx, "Stream session finished", "accepted", summary.Accepted)

		return s.print(summary)
	})
}

// parseFrame reads "x y z rotation". ok is false for blank and comment lines.
func parseFrame(line string) (*api.StreamFrame, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, false, nil
	}

	fields := strings.Fields(line)
	if len(fields) != 4 {
		return nil, false, errFrameFields
	}

	var values [4]float64

	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false, fmt.Errorf("parse %q: %w", f, err)
		}

		values[i] = v
	}

	return &api.StreamFrame{
		X:        values[0],
		Y:        values[1],
		Z:        values[2],
		Rotation: values[3],
	}, true, nil
}
