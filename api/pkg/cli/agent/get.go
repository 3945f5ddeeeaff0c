package agent

import (
	"github.com/spf13/cobra"

	"github.com/helixml/agentbuilder/api/pkg/config"
)

func init() {
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:     "get [agent ID or name]",
	Aliases: []string{"inspect"},
	Short:   "Print an agent as JSON",
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

		return printJSON(cmd.OutOrStdout(), agent)
	},
}
