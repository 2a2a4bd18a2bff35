package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ltejedor/building-ai-agents/internal/agent"
)

func newToolsCmd(o *rootOptions) *cobra.Command {
	var agentName string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the sanitized tool names each agent is offered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := o.buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer shutdownApp(a)

			agents := a.Agents()
			if agentName != "" {
				ag, err := a.Agent(agentName)
				if err != nil {
					return err
				}
				agents = []agent.Agent{ag}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for i, ag := range agents {
				defs, err := a.Tools(ag.Name())
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(tw)
				}
				fmt.Fprintf(tw, "%s (%d tools)\n", ag.Name(), len(defs))
				for _, d := range defs {
					fmt.Fprintf(tw, "  %s\t%s\n", d.Name, firstLine(d.Description))
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "only list tools for this agent")
	return cmd
}

func firstLine(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	return s
}
