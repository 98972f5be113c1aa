package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oshokin/telerobot/internal/service/client"
)

func parseInt(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}

	return n, nil
}

//nolint:gochecknoinits,funlen // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "move <robot-id> <axis> <distance>",
			Short: "Move a robot along the X, Y or Z axis.",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				distance, err := parseInt("distance", args[2])
				if err != nil {
					return err
				}

				return run(func(ctx context.Context) error {
					return client.Move(ctx, options(cmd), args[0], args[1], distance)
				})
			},
		},
		&cobra.Command{
			Use:   "rotate <robot-id> <angle>",
			Short: "Rotate a robot by a signed angle in degrees.",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				angle, err := parseInt("angle", args[1])
				if err != nil {
					return err
				}

				return run(func(ctx context.Context) error {
					return client.Rotate(ctx, options(cmd), args[0], angle)
				})
			},
		},
		&cobra.Command{
			Use:   "stop <robot-id>",
			Short: "Stop a robot.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(func(ctx context.Context) error {
					return client.Stop(ctx, options(cmd), args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "status <robot-id>",
			Short: "Print the current state of a robot.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(func(ctx context.Context) error {
					return client.Status(ctx, options(cmd), args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "recent <robot-id>",
			Short: "Print the last stream commands a robot received.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(func(ctx context.Context) error {
					return client.Recent(ctx, options(cmd), args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "commands <robot-id>",
			Short: "Print the accepted discrete commands of a robot.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(func(ctx context.Context) error {
					return client.Commands(ctx, options(cmd), args[0])
				})
			},
		},
		commandCmd(),
		&cobra.Command{
			Use:   "stream <robot-id>",
			Short: "Stream poses read from stdin as \"x y z rotation\" lines.",
			Long: `Opens a stream session and sends one stream command per input line.
Each line holds four numbers: x y z rotation. Empty lines and lines starting
with # are skipped. The session ends at end of input and its summary is printed.`,
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(func(ctx context.Context) error {
					return client.Stream(ctx, options(cmd), args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "health",
			Short: "Check that the server is serving.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(func(ctx context.Context) error {
					return client.Health(ctx, options(cmd))
				})
			},
		},
		&cobra.Command{
			Use:   "watch <robot-id>",
			Short: "Print every state change of a robot until interrupted.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(func(ctx context.Context) error {
					return client.Watch(ctx, options(cmd), args[0])
				})
			},
		},
	)
}

func commandCmd() *cobra.Command {
	show := &cobra.Command{
		Use:   "command <command-id>",
		Short: "Print one accepted discrete command.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context) error {
				return client.Command(ctx, options(cmd), args[0])
			})
		},
	}

	var (
		edit  client.CommandEdit
		angle int
	)

	update := &cobra.Command{
		Use:   "update <command-id> <robot-id> <Move|Rotate|Stop>",
		Short: "Replace a logged command record without executing it.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			edit.RobotID = args[1]
			edit.Type = args[2]

			if cmd.Flags().Changed("angle") {
				edit.Angle = &angle
			}

			return run(func(ctx context.Context) error {
				return client.UpdateCommand(ctx, options(cmd), args[0], &edit)
			})
		},
	}

	update.Flags().StringVar(&edit.Axis, "axis", "", "axis of a Move command")
	update.Flags().IntVar(&edit.Distance, "distance", 0, "distance of a Move command")
	update.Flags().IntVar(&angle, "angle", 0, "angle of a Rotate command")

	show.AddCommand(update)

	return show
}
