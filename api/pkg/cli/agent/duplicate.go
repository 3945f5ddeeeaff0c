package agent

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixml/agentbuilder/api/pkg/config"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

func init() {
	duplicateCmd.Flags().String("name", "", "Name of the copy, defaults to \"<name> (copy)\"")
	rootCmd.AddCommand(duplicateCmd)
}

var duplicateCmd = &cobra.Command{
	Use:     "duplicate [agent ID or name]",
	Aliases: []string{"dup", "copy"},
	Short:   "Copy an agent into a new draft",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadCliConfig()
		if err != nil {
			return err
		}

		apiClient, err := newClient(&cfg)
		if err != nil {
			return err
		}

		agent, err := lookupAgent(cmd.Context(), apiClient, workspaceID(cmd, &cfg), args[0])
		if err != nil {
			return err
		}

		name, _ := cmd.Flags().GetString("name")
		dup, err := apiClient.DuplicateAgent(cmd.Context(), agent.ID, &types.DuplicateAgentRequest{Name: name})
		if err != nil {
			return fmt.Errorf("failed to duplicate agent: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Draft created: %s (%s)\n", dup.Name, dup.ID)
		return nil
	},
}
