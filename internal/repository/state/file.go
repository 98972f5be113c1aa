package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/oshokin/telerobot/internal/config"
	"github.com/oshokin/telerobot/internal/domain/robot"
)

// Repository defines persistence operations for robot state.
type Repository interface {
	// Load returns the persisted state of robotID or ErrNotFound.
	Load(ctx context.Context, robotID string) (*robot.State, error)
	// Save durably stores state, keyed by its RobotID.
	Save(ctx context.Context, state *robot.State) error
}

// ErrNotFound is returned when no state has been persisted for a robot yet.
var ErrNotFound = errors.New("state not found")

// errRobotIDRequired is returned when asked to load or save an unnamed robot.
var errRobotIDRequired = errors.New("robot id is required")

// FileRepository persists each robot's state to <dir>/<escaped id>.json.
type FileRepository struct {
	// dir is the directory holding one JSON file per robot.
	dir string
	// locks holds one *sync.Mutex per robot id guarding that robot's temp file.
	locks sync.Map
}

// NewFileRepository creates a repository rooted at dir, creating the directory if needed.
func NewFileRepository(dir string) (*FileRepository, error) {
	dir = filepath.Clean(dir)

	if err := os.MkdirAll(dir, config.DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	return &FileRepository{dir: dir}, nil
}

// Load reads the state of robotID from disk.
func (r *FileRepository) Load(_ context.Context, robotID string) (*robot.State, error) {
	if robotID == "" {
		return nil, errRobotIDRequired
	}

	contents, err := os.ReadFile(r.path(robotID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var s robot.State
	if err = json.Unmarshal(contents, &s); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return &s, nil
}

// Save writes the state to a temporary file and renames it over the previous one.
func (r *FileRepository) Save(_ context.Context, s *robot.State) error {
	if s == nil || s.RobotID == "" {
		return errRobotIDRequired
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	mu := r.lock(s.RobotID)
	mu.Lock()
	defer mu.Unlock()

	target := r.path(s.RobotID)
	tmp := target + ".tmp"

	if err = os.WriteFile(tmp, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	if err = os.Rename(tmp, target); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

func (r *FileRepository) lock(robotID string) *sync.Mutex {
	mu, _ := r.locks.LoadOrStore(robotID, new(sync.Mutex))

	return mu.(*sync.Mutex)
}

func (r *FileRepository) path(robotID string) string {
	return filepath.Join(r.dir, url.PathEscape(robotID)+".json")
}
