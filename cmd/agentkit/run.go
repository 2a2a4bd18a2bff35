package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRunCmd(o *rootOptions) *cobra.Command {
	var agentName string

	cmd := &cobra.Command{
		Use:   "run TASK...",
		Short: "Run a single task and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.TrimSpace(strings.Join(args, " "))
			if task == "" {
				return fmt.Errorf("task must not be empty")
			}

			ctx := cmd.Context()
			a, _, err := o.buildApp(ctx)
			if err != nil {
				return err
			}
			defer shutdownApp(a)

			ag, err := pickAgent(a, agentName)
			if err != nil {
				return err
			}
			out, err := ag.Run(ctx, task)
			if err != nil {
				return fmt.Errorf("agent %q: %w", ag.Name(), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "agent to run (default: first configured agent)")
	return cmd
}
