package targets

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/helixml/agentbuilder/api/pkg/client"
	"github.com/helixml/agentbuilder/api/pkg/config"
	"github.com/helixml/agentbuilder/api/pkg/targets"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

func init() {
	searchCmd.Flags().StringP("workspace", "w", "", "Workspace ID, defaults to AGENTBUILDER_WORKSPACE_ID")
	searchCmd.Flags().String("type", "contact", "Target type, contact or deal")
	searchCmd.Flags().IntP("limit", "l", 20, "Maximum number of targets to print, 0 for all")

	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:     "search [term]",
	Aliases: []string{"ls", "list"},
	Short:   "Search contacts or deals by name, email or company",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadCliConfig()
		if err != nil {
			return err
		}

		workspace, _ := cmd.Flags().GetString("workspace")
		if workspace == "" {
			workspace = cfg.WorkspaceID
		}
		if workspace == "" {
			return errors.New("workspace is required, pass --workspace or set AGENTBUILDER_WORKSPACE_ID")
		}

		typeFlag, _ := cmd.Flags().GetString("type")
		targetType, err := types.ValidateTestTargetType(typeFlag, false)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		var term string
		if len(args) > 0 {
			term = args[0]
		}

		apiClient, err := client.NewClient(cfg.URL, cfg.APIKey,
			client.WithRetryMax(cfg.RetryMax),
			client.WithTLSSkipVerify(cfg.TLSSkipVerify),
		)
		if err != nil {
			return err
		}

		return search(cmd.Context(), cmd.OutOrStdout(), apiClient, types.TestTargetSearchQuery{
			WorkspaceID: workspace,
			Type:        targetType,
			SearchTerm:  term,
		}, limit)
	},
}

func search(ctx context.Context, w io.Writer, fetcher targets.PageFetcher, q types.TestTargetSearchQuery, limit int) error {
	searcher, err := targets.NewSearcher(fetcher)
	if err != nil {
		return err
	}
	defer searcher.Close()

	options, err := searcher.All(ctx, q, limit)
	if err != nil {
		return fmt.Errorf("failed to search test targets: %w", err)
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Name", "Details")

	for _, option := range options {
		if err := table.Append([]string{option.ID, option.Label, option.Subtitle}); err != nil {
			return err
		}
	}

	return table.Render()
}
