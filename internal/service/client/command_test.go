package client

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/telerobot/internal/config"
)

func TestParseFrame(t *testing.T) {
	t.Parallel()

	frame, ok, err := parseFrame("  1.5 -2 3 370 ")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1.5, frame.X)
	require.Equal(t, -2.0, frame.Y)
	require.Equal(t, 370.0, frame.Rotation)

	_, ok, err = parseFrame("# comment")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = parseFrame("")
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = parseFrame("1 2 3")
	require.ErrorIs(t, err, errFrameFields)

	_, _, err = parseFrame("1 2 3 north")
	require.Error(t, err)
}

func TestLoadSettings(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "absent.yaml")

	// Without a settings file the explicit address is enough.
	cfg, err := loadSettings(&Options{ConfigPath: missing, ServerAddress: "127.0.0.1:7000"})
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:7000", cfg.ServerAddress)
	require.Equal(t, config.DefaultTimeout, cfg.Timeout)

	_, err = loadSettings(&Options{ConfigPath: missing})
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "telerobot.yaml")
	require.NoError(t, config.Save(path, &config.Config{ServerAddress: "robots.local:7000"}))

	cfg, err = loadSettings(&Options{ConfigPath: path, ServerAddress: "127.0.0.1:7001"})
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:7001", cfg.ServerAddress)
}
