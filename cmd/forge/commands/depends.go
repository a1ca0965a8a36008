package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newDependsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "depends [targets...]",
		Short: "Print the rules a build of the targets would execute, in order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := c.app.Sequence(args)
			if err != nil {
				return err
			}
			for _, path := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
}
