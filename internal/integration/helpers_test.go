package integration

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/telerobot/internal/config"
	"github.com/oshokin/telerobot/internal/service/common"
	"github.com/oshokin/telerobot/internal/service/server"
)

// startupTimeout bounds how long a test waits for the server to accept connections.
const startupTimeout = 5 * time.Second

// reservePort returns a free loopback address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// startGRPC runs the real server with a temporary configuration and returns a
// stop function that blocks until every robot has been flushed.
func startGRPC(t *testing.T, addr string, storage config.Storage) (stop func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	cfgPath := filepath.Join(t.TempDir(), "settings.yaml")

	require.NoError(t, config.Save(cfgPath, &config.Config{
		ServerAddress: addr,
		Timeout:       5 * time.Second,
		LogLevel:      "warn",
		Storage:       storage,
		Actor: config.Actor{
			ArbitrationWindow: 10 * time.Second,
		},
	}))

	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{ConfigPath: cfgPath})
	}()

	waitListening(t, addr, done)

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func waitListening(t *testing.T, addr string, done <-chan error) {
	t.Helper()

	deadline := time.Now().Add(startupTimeout)

	for time.Now().Before(deadline) {
		select {
		case err := <-done:
			require.FailNow(t, "server exited during startup", "error: %v", err)
		default:
		}

		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			_ = conn.Close()

			return
		}

		time.Sleep(20 * time.Millisecond)
	}

	require.FailNow(t, "server did not start listening", addr)
}

// dial connects a client and closes it when the test ends.
func dial(t *testing.T, addr string) *common.Client {
	t.Helper()

	c, err := common.Dial(context.Background(), addr, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
	})

	return c
}
