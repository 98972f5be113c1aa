// Package sqlite provides a SQLite-backed store for robot state and the command log.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	// Registers the pure-Go "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/oshokin/telerobot/internal/domain/robot"
	"github.com/oshokin/telerobot/internal/repository/command"
	"github.com/oshokin/telerobot/internal/repository/sqlite/migrations"
	"github.com/oshokin/telerobot/internal/repository/state"
)

// Store persists robot state and discrete commands in one SQLite database.
// It satisfies both state.Repository and command.Repository.
type Store struct {
	db *sql.DB
}

var (
	_ state.Repository   = (*Store)(nil)
	_ command.Repository = (*Store)(nil)

	errPathRequired    = errors.New("storage path is required")
	errRobotIDRequired = errors.New("robot id is required")
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errPathRequired
	}

	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err = applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// Load returns the persisted state of robotID or state.ErrNotFound.
func (s *Store) Load(ctx context.Context, robotID string) (*robot.State, error) {
	if robotID == "" {
		return nil, errRobotIDRequired
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT robot_id, x, y, z, rotation, task, status, last_update, recent_stream
		   FROM robot_states
		  WHERE robot_id = ?`,
		robotID,
	)

	var (
		st         robot.State
		lastUpdate int64
		recent     string
	)

	err := row.Scan(&st.RobotID, &st.X, &st.Y, &st.Z, &st.Rotation, &st.Task, &st.Status, &lastUpdate, &recent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, state.ErrNotFound
		}

		return nil, fmt.Errorf("load robot state: %w", err)
	}

	st.LastUpdate = fromMillis(lastUpdate)

	if err = json.Unmarshal([]byte(recent), &st.RecentStreamCommands); err != nil {
		return nil, fmt.Errorf("decode recent stream commands: %w", err)
	}

	if len(st.RecentStreamCommands) == 0 {
		st.RecentStreamCommands = nil
	}

	return &st, nil
}

// Save upserts st keyed by its RobotID.
func (s *Store) Save(ctx context.Context, st *robot.State) error {
	if st == nil || st.RobotID == "" {
		return errRobotIDRequired
	}

	recent := st.RecentStreamCommands
	if recent == nil {
		recent = []robot.StreamCommand{}
	}

	encoded, err := json.Marshal(recent)
	if err != nil {
		return fmt.Errorf("encode recent stream commands: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO robot_states (robot_id, x, y, z, rotation, task, status, last_update, recent_stream)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (robot_id) DO UPDATE SET
		   x = excluded.x,
		   y = excluded.y,
		   z = excluded.z,
		   rotation = excluded.rotation,
		   task = excluded.task,
		   status = excluded.status,
		   last_update = excluded.last_update,
		   recent_stream = excluded.recent_stream`,
		st.RobotID, st.X, st.Y, st.Z, st.Rotation, st.Task, st.Status, toMillis(st.LastUpdate), string(encoded),
	)
	if err != nil {
		return fmt.Errorf("save robot state: %w", err)
	}

	return nil
}

// Append records cmd in the command log.
func (s *Store) Append(ctx context.Context, cmd *robot.DiscreteCommand) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO commands (id, robot_id, command_type, axis, distance, rotate_angle, user_name, issued_at, seq)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM commands))`,
		cmd.ID, cmd.RobotID, string(cmd.Type), string(cmd.Axis), cmd.Distance, cmd.RotateAngle, cmd.User,
		toMillis(cmd.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("append command: %w", err)
	}

	return nil
}

// ListByRobot returns the commands of robotID in the order they were appended.
func (s *Store) ListByRobot(ctx context.Context, robotID string) ([]robot.DiscreteCommand, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, robot_id, command_type, axis, distance, rotate_angle, user_name, issued_at
		   FROM commands
		  WHERE robot_id = ?
		  ORDER BY seq`,
		robotID,
	)
	if err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var out []robot.DiscreteCommand

	for rows.Next() {
		cmd, scanErr := scanCommand(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		out = append(out, *cmd)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commands: %w", err)
	}

	return out, nil
}

// Get returns one command by id or command.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*robot.DiscreteCommand, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, robot_id, command_type, axis, distance, rotate_angle, user_name, issued_at
		   FROM commands
		  WHERE id = ?`,
		id,
	)

	cmd, err := scanCommand(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, command.ErrNotFound
		}

		return nil, err
	}

	return cmd, nil
}

// Update replaces the command sharing cmd's id, keeping its place in the log.
func (s *Store) Update(ctx context.Context, cmd *robot.DiscreteCommand) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE commands
		    SET robot_id = ?, command_type = ?, axis = ?, distance = ?, rotate_angle = ?, user_name = ?, issued_at = ?
		  WHERE id = ?`,
		cmd.RobotID, string(cmd.Type), string(cmd.Axis), cmd.Distance, cmd.RotateAngle, cmd.User,
		toMillis(cmd.Timestamp), cmd.ID,
	)
	if err != nil {
		return fmt.Errorf("update command: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update command: %w", err)
	}

	if affected == 0 {
		return command.ErrNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCommand(row scanner) (*robot.DiscreteCommand, error) {
	var (
		cmd      robot.DiscreteCommand
		kind     string
		axis     string
		issuedAt int64
	)

	err := row.Scan(&cmd.ID, &cmd.RobotID, &kind, &axis, &cmd.Distance, &cmd.RotateAngle, &cmd.User, &issuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("scan command: %w", err)
	}

	cmd.Type = robot.CommandType(kind)
	cmd.Axis = robot.Axis(axis)
	cmd.Timestamp = fromMillis(issuedAt)

	return &cmd, nil
}
