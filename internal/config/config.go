package config

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of both binaries.
type Config struct {
	// ServerAddress is the gRPC address clients dial; the server listens on its port.
	ServerAddress string `yaml:"server_addr" toml:"server_addr" env:"TELEROBOT_SERVER_ADDR"`
	// Timeout bounds each client RPC.
	Timeout time.Duration `yaml:"timeout" toml:"timeout" env:"TELEROBOT_TIMEOUT"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" toml:"log_level" env:"TELEROBOT_LOG_LEVEL"`
	// LogFormat is console or json.
	LogFormat string `yaml:"log_format" toml:"log_format" env:"TELEROBOT_LOG_FORMAT"`

	Storage   Storage   `yaml:"storage" toml:"storage"`
	Actor     Actor     `yaml:"actor" toml:"actor"`
	Telemetry Telemetry `yaml:"telemetry" toml:"telemetry"`
}

// Storage selects the persistence backend.
type Storage struct {
	// Driver is "file" or "sqlite".
	Driver string `yaml:"driver" toml:"driver" env:"TELEROBOT_STORAGE_DRIVER"`
	// Path is a directory for the file driver and a database file for sqlite.
	Path string `yaml:"path" toml:"path" env:"TELEROBOT_STORAGE_PATH"`
}

// Actor tunes the per-robot actors.
type Actor struct {
	// ArbitrationWindow is how long after a stream command discrete commands are rejected.
	ArbitrationWindow time.Duration `yaml:"arbitration_window" toml:"arbitration_window" env:"TELEROBOT_ARBITRATION_WINDOW"`
	// MailboxSize bounds the number of queued messages per robot.
	MailboxSize int `yaml:"mailbox_size" toml:"mailbox_size" env:"TELEROBOT_MAILBOX_SIZE"`
	// StatusBuffer is the channel capacity of each status subscriber.
	StatusBuffer int `yaml:"status_buffer" toml:"status_buffer" env:"TELEROBOT_STATUS_BUFFER"`
	// IdleTimeout is how long a robot may stay unused before it is evicted from memory.
	IdleTimeout time.Duration `yaml:"idle_timeout" toml:"idle_timeout" env:"TELEROBOT_IDLE_TIMEOUT"`
	// EvictionInterval is how often idle robots are looked for.
	EvictionInterval time.Duration `yaml:"eviction_interval" toml:"eviction_interval" env:"TELEROBOT_EVICTION_INTERVAL"`
}

// Telemetry configures OpenTelemetry trace export.
type Telemetry struct {
	// Endpoint is an OTLP/HTTP URL; tracing is disabled when empty.
	Endpoint string `yaml:"endpoint" toml:"endpoint" env:"TELEROBOT_OTEL_ENDPOINT"`
	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `yaml:"service_name" toml:"service_name" env:"TELEROBOT_OTEL_SERVICE_NAME"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "telerobot.yaml"

	// DefaultTimeout is the default duration for client RPCs.
	DefaultTimeout = 5 * time.Second

	// StorageFile keeps state as JSON files in a directory.
	StorageFile = "file"
	// StorageSQLite keeps state and the command log in one SQLite database.
	StorageSQLite = "sqlite"

	// DefaultStatePath is the default state directory of the file driver.
	DefaultStatePath = "robot-state"
	// DefaultDatabasePath is the default database file of the sqlite driver.
	DefaultDatabasePath = "telerobot.db"

	// DefaultArbitrationWindow is the control handoff window after the last stream command.
	DefaultArbitrationWindow = 10 * time.Second
	// DefaultMailboxSize is the default per-robot queue capacity.
	DefaultMailboxSize = 256
	// DefaultStatusBuffer is the default per-subscriber channel capacity.
	DefaultStatusBuffer = 16
	// DefaultIdleTimeout is the default inactivity period before eviction.
	DefaultIdleTimeout = 10 * time.Minute
	// DefaultEvictionInterval is the default period of the idle sweep.
	DefaultEvictionInterval = time.Minute

	// DefaultServiceName is reported to the trace collector.
	DefaultServiceName = "robot-server"

	// DefaultFilePermissions is the permission for files written by the project.
	DefaultFilePermissions = 0o600
	// DefaultDirPermissions is the permission for directories created by the project.
	DefaultDirPermissions = 0o750
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerAddressRequired is returned when server address is missing.
	errServerAddressRequired = errors.New("server address must be provided")
	// errUnknownStorageDriver is returned for drivers other than file and sqlite.
	errUnknownStorageDriver = errors.New("unknown storage driver")
	// errNegativeSetting is returned when a size or duration is negative.
	errNegativeSetting = errors.New("setting must not be negative")
)

// Load reads configuration from path, applies environment overrides and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = decode(path, contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path in the format implied by its extension.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := encode(path, cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills defaults.
//
//nolint:cyclop // A flat list of defaults reads better than helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ServerAddress == "" {
		return errServerAddressRequired
	}

	if _, _, err := net.SplitHostPort(cfg.ServerAddress); err != nil {
		return fmt.Errorf("invalid server address: %w", err)
	}

	if cfg.Timeout < 0 || cfg.Actor.ArbitrationWindow < 0 || cfg.Actor.MailboxSize < 0 ||
		cfg.Actor.StatusBuffer < 0 || cfg.Actor.IdleTimeout < 0 || cfg.Actor.EvictionInterval < 0 {
		return errNegativeSetting
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))

	switch cfg.Storage.Driver {
	case "", StorageFile:
		cfg.Storage.Driver = StorageFile
		if cfg.Storage.Path == "" {
			cfg.Storage.Path = DefaultStatePath
		}
	case StorageSQLite:
		if cfg.Storage.Path == "" {
			cfg.Storage.Path = DefaultDatabasePath
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownStorageDriver, cfg.Storage.Driver)
	}

	if cfg.Actor.ArbitrationWindow == 0 {
		cfg.Actor.ArbitrationWindow = DefaultArbitrationWindow
	}

	if cfg.Actor.MailboxSize == 0 {
		cfg.Actor.MailboxSize = DefaultMailboxSize
	}

	if cfg.Actor.StatusBuffer == 0 {
		cfg.Actor.StatusBuffer = DefaultStatusBuffer
	}

	if cfg.Actor.IdleTimeout == 0 {
		cfg.Actor.IdleTimeout = DefaultIdleTimeout
	}

	if cfg.Actor.EvictionInterval == 0 {
		cfg.Actor.EvictionInterval = DefaultEvictionInterval
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = DefaultServiceName
	}

	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func decode(path string, contents []byte, cfg *Config) error {
	if isTOML(path) {
		_, err := toml.Decode(string(contents), cfg)

		return err
	}

	return yaml.Unmarshal(contents, cfg)
}

func encode(path string, cfg *Config) ([]byte, error) {
	if !isTOML(path) {
		return yaml.Marshal(cfg)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
