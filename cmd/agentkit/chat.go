package main

import (
	"github.com/spf13/cobra"

	"github.com/ltejedor/building-ai-agents/internal/repl"
)

func newChatCmd(o *rootOptions) *cobra.Command {
	var agentName string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with an agent in the terminal",
		Long: "Starts an interactive loop against one agent. Type a task and press\n" +
			"enter; /new clears the conversation and exit quits.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			return repl.Run(ctx, ag, cmd.InOrStdin(), cmd.OutOrStdout(), repl.Options{Label: ag.Name()})
		},
	}
	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "agent to chat with (default: first configured agent)")
	return cmd
}
