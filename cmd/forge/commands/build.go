package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/forge/internal/app"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [targets...]",
		Short: "Build the specified rule targets",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			force, _ := cmd.Flags().GetBool("force")
			stopOnError, _ := cmd.Flags().GetBool("stop-on-error")
			jobs, _ := cmd.Flags().GetInt("jobs")
			_, err := c.app.Build(cmd.Context(), args, app.BuildOptions{
				Force:       force,
				StopOnError: stopOnError,
				Parallelism: jobs,
			})
			return err
		},
	}
	cmd.Flags().BoolP("force", "f", false, "Force rebuild, bypassing the rule cache")
	cmd.Flags().Bool("stop-on-error", false, "Drop queued rules after the first failure")
	cmd.Flags().IntP("jobs", "j", 0, "Number of concurrent tasks (0 means one per CPU)")
	return cmd
}
