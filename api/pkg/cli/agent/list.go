package agent

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixml/agentbuilder/api/pkg/config"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List agents in a workspace",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadCliConfig()
		if err != nil {
			return err
		}

		apiClient, err := newClient(&cfg)
		if err != nil {
			return err
		}

		agents, err := apiClient.ListAgents(cmd.Context(), workspaceID(cmd, &cfg))
		if err != nil {
			return fmt.Errorf("failed to list agents: %w", err)
		}

		return printAgents(cmd.OutOrStdout(), agents)
	},
}
