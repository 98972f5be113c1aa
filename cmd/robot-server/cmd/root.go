package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/telerobot/internal/config"
	"github.com/oshokin/telerobot/internal/logger"
	"github.com/oshokin/telerobot/internal/service/server"
	"github.com/oshokin/telerobot/internal/version"
)

var (
	// configPath to the configuration file.
	configPath string
	// storagePath overrides storage.path from the configuration file.
	storagePath string

	// rootCmd represents the base command for running the gRPC server.
	rootCmd = &cobra.Command{
		Use:   "robot-server [listen-address]",
		Short: "Run the robot control gRPC server.",
		Long: `Starts the gRPC server that owns the state of every robot and arbitrates control between
discrete commands and continuous stream sessions.

Only the port from server_addr in the configuration file is used for listening (e.g., :7000).
Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:7000).
Robot state is persisted to a directory of JSON files or to a SQLite database.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			defer logger.Sync()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return server.Run(ctx, &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				StoragePath:   storagePath,
			})
		},
	}
)

// Execute runs the robot-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&storagePath, "storage-path", "s", "", "state directory or database file, overrides the configuration")
}
