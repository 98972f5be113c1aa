package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/telerobot/internal/config"
	"github.com/oshokin/telerobot/internal/service/client"
	"github.com/oshokin/telerobot/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides server_addr from the configuration file.
	serverAddress string
	// user overrides the detected username@hostname.
	user string

	// rootCmd represents the base command of robot-ctl.
	rootCmd = &cobra.Command{
		Use:   "robot-ctl",
		Short: "Control robots through the robot server.",
		Long: `Sends discrete commands and stream sessions to the robot server and queries robot state.

Discrete commands are rejected while a robot is under stream control, that is for
ten seconds (by default) after the last stream command it received.
All output is printed as YAML.`,
		SilenceUsage: true,
	}
)

// Execute runs the robot-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// options builds client options from the persistent flags.
func options(cmd *cobra.Command) *client.Options {
	return &client.Options{
		ConfigPath:    cfgPath,
		ServerAddress: serverAddress,
		User:          user,
		Out:           cmd.OutOrStdout(),
		In:            cmd.InOrStdin(),
	}
}

// run executes fn with a context canceled on SIGINT or SIGTERM.
func run(fn func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return fn(ctx)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&serverAddress, "server", "a", "", "server address, overrides the configuration")
	flags.StringVarP(&user, "user", "u", "", "user recorded with commands, defaults to username@hostname")
}
