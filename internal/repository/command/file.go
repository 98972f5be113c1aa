package command

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/oshokin/telerobot/internal/config"
	"github.com/oshokin/telerobot/internal/domain/robot"
)

// Repository is the command log contract used by the gateway.
type Repository interface {
	// Append records an admitted command.
	Append(ctx context.Context, cmd *robot.DiscreteCommand) error
	// ListByRobot returns the commands of robotID oldest-first.
	ListByRobot(ctx context.Context, robotID string) ([]robot.DiscreteCommand, error)
	// Get returns the command with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (*robot.DiscreteCommand, error)
	// Update replaces the command with the same id or returns ErrNotFound.
	Update(ctx context.Context, cmd *robot.DiscreteCommand) error
}

var (
	// ErrNotFound is returned when no command has the requested id.
	ErrNotFound = errors.New("command not found")
	// ErrRecordTooLarge is returned for a command whose encoding exceeds one log line.
	ErrRecordTooLarge = errors.New("command record too large")
)

// maxLineSize bounds one encoded command when scanning the log.
const maxLineSize = 64 * 1024

// FileRepository appends commands as JSON lines to a single file.
type FileRepository struct {
	// path is the location of the JSON-lines log.
	path string
	// mu serializes appends, rewrites and scans.
	mu sync.Mutex
}

// NewFileRepository creates a log at path, creating its directory if needed.
func NewFileRepository(path string) (*FileRepository, error) {
	path = filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(path), config.DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("create command log directory: %w", err)
	}

	return &FileRepository{path: path}, nil
}

// Append writes cmd as one line at the end of the log.
func (r *FileRepository) Append(_ context.Context, cmd *robot.DiscreteCommand) error {
	data, err := encodeLine(cmd)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, config.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("open command log: %w", err)
	}

	if _, err = f.Write(data); err != nil {
		_ = f.Close()

		return fmt.Errorf("append command: %w", err)
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("close command log: %w", err)
	}

	return nil
}

// Update rewrites the log with cmd in place of the record sharing its id.
func (r *FileRepository) Update(_ context.Context, cmd *robot.DiscreteCommand) error {
	data, err := encodeLine(cmd)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}

		return fmt.Errorf("read command log: %w", err)
	}

	var (
		out   bytes.Buffer
		found bool
	)

	err = scanLines(bytes.NewReader(contents), func(line []byte, existing *robot.DiscreteCommand) bool {
		if existing.ID == cmd.ID && !found {
			found = true

			out.Write(data)

			return true
		}

		out.Write(line)
		out.WriteByte('\n')

		return true
	})
	if err != nil {
		return err
	}

	if !found {
		return ErrNotFound
	}

	tmp := r.path + ".tmp"

	if err = os.WriteFile(tmp, out.Bytes(), config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write command log: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace command log: %w", err)
	}

	return nil
}

// ListByRobot scans the log for commands addressed to robotID.
func (r *FileRepository) ListByRobot(_ context.Context, robotID string) ([]robot.DiscreteCommand, error) {
	var out []robot.DiscreteCommand

	err := r.scan(func(cmd *robot.DiscreteCommand) bool {
		if cmd.RobotID == robotID {
			out = append(out, *cmd)
		}

		return true
	})

	return out, err
}

// Get scans the log for the command with the given id.
func (r *FileRepository) Get(_ context.Context, id string) (*robot.DiscreteCommand, error) {
	var found *robot.DiscreteCommand

	err := r.scan(func(cmd *robot.DiscreteCommand) bool {
		if cmd.ID == id {
			found = cmd

			return false
		}

		return true
	})
	if err != nil {
		return nil, err
	}

	if found == nil {
		return nil, ErrNotFound
	}

	return found, nil
}

// scan decodes each line and hands it to visit until visit returns false.
func (r *FileRepository) scan(visit func(*robot.DiscreteCommand) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("open command log: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	return scanLines(f, func(_ []byte, cmd *robot.DiscreteCommand) bool {
		return visit(cmd)
	})
}

func scanLines(src io.Reader, visit func(line []byte, cmd *robot.DiscreteCommand) bool) error {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	for scanner.Scan() {
		cmd := new(robot.DiscreteCommand)
		if err := json.Unmarshal(scanner.Bytes(), cmd); err != nil {
			return fmt.Errorf("decode command: %w", err)
		}

		if !visit(scanner.Bytes(), cmd) {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan command log: %w", err)
	}

	return nil
}

// encodeLine returns cmd as a newline-terminated record that scan can read back.
func encodeLine(cmd *robot.DiscreteCommand) ([]byte, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}

	data = append(data, '\n')
	if len(data) > maxLineSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, len(data))
	}

	return data, nil
}
