package server

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/oshokin/telerobot/internal/config"
	"github.com/oshokin/telerobot/internal/logger"
	"github.com/oshokin/telerobot/internal/repository/command"
	"github.com/oshokin/telerobot/internal/repository/sqlite"
	"github.com/oshokin/telerobot/internal/repository/state"
)

// commandLogFilename is the command log inside the file driver's directory.
const commandLogFilename = "commands.jsonl"

// storage bundles the repositories of the configured driver.
type storage struct {
	states   state.Repository
	commands command.Repository
	close    func() error
}

func openStorage(ctx context.Context, cfg *config.Storage) (*storage, error) {
	switch cfg.Driver {
	case config.StorageSQLite:
		store, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}

		logger.DebugKV(ctx, "SQLite storage opened", "path", cfg.Path)

		return &storage{states: store, commands: store, close: store.Close}, nil
	case config.StorageFile, "":
		states, err := state.NewFileRepository(cfg.Path)
		if err != nil {
			return nil, err
		}

		commands, err := command.NewFileRepository(filepath.Join(cfg.Path, commandLogFilename))
		if err != nil {
			return nil, err
		}

		logger.DebugKV(ctx, "File storage opened", "path", cfg.Path)

		return &storage{states: states, commands: commands, close: func() error { return nil }}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
