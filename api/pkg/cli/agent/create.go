package agent

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/helixml/agentbuilder/api/pkg/config"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

func init() {
	createCmd.Flags().StringP("filename", "f", "", "File holding the instructions")
	rootCmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a draft agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadCliConfig()
		if err != nil {
			return err
		}

		workspace := workspaceID(cmd, &cfg)
		if workspace == "" {
			return errWorkspaceRequired
		}

		var instructions string
		if filename, _ := cmd.Flags().GetString("filename"); filename != "" {
			data, err := os.ReadFile(filename)
			if err != nil {
				return fmt.Errorf("failed to read file %s: %w", filename, err)
			}
			instructions = string(data)
		}

		apiClient, err := newClient(&cfg)
		if err != nil {
			return err
		}

		agent, err := apiClient.CreateAgent(cmd.Context(), &types.Agent{
			WorkspaceID:  workspace,
			Name:         args[0],
			Instructions: instructions,
		})
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Agent created: %s\n", agent.ID)
		return nil
	},
}
