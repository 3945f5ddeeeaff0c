package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/helixml/agentbuilder/api/pkg/client"
	"github.com/helixml/agentbuilder/api/pkg/config"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

var rootCmd = &cobra.Command{
	Use:     "agent",
	Short:   "Edit and test automation agents",
	Aliases: []string{"agents", "a"},
	RunE: func(cmd *cobra.Command, args []string) error {
		// By default run the list command
		return listCmd.RunE(cmd, args)
	},
}

func New() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringP("workspace", "w", "", "Workspace ID, defaults to AGENTBUILDER_WORKSPACE_ID")
}

// lookupAgent resolves an agent by ID, falling back to a name match inside
// the workspace.
func lookupAgent(ctx context.Context, apiClient client.Client, workspaceID, ref string) (*types.Agent, error) {
	agent, err := apiClient.GetAgent(ctx, ref)
	if err == nil {
		return agent, nil
	}
	if !client.IsNotFound(err) || workspaceID == "" {
		return nil, fmt.Errorf("failed to get agent %s: %w", ref, err)
	}

	agents, err := apiClient.ListAgents(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}

	for _, agent := range agents {
		if agent.Name == ref || agent.ID == ref {
			return agent, nil
		}
	}

	return nil, fmt.Errorf("agent not found: %s", ref)
}

func workspaceID(cmd *cobra.Command, cfg *config.CliConfig) string {
	if workspace, _ := cmd.Flags().GetString("workspace"); workspace != "" {
		return workspace
	}
	return cfg.WorkspaceID
}

func newClient(cfg *config.CliConfig) (*client.AgentClient, error) {
	return client.NewClient(cfg.URL, cfg.APIKey,
		client.WithRetryMax(cfg.RetryMax),
		client.WithTLSSkipVerify(cfg.TLSSkipVerify),
		client.WithUser(cfg.User),
	)
}

// expandHome resolves a leading ~ against the user's home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func printJSON(w io.Writer, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonBytes))
	return err
}

func printAgents(w io.Writer, agents []*types.Agent) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Name", "Status", "Updated By", "Updated At")

	for _, a := range agents {
		row := []string{
			a.ID,
			a.Name,
			string(a.Status),
			a.UpdatedBy,
			a.UpdatedAt,
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}

	return table.Render()
}

var errWorkspaceRequired = errors.New("workspace is required, pass --workspace or set AGENTBUILDER_WORKSPACE_ID")
