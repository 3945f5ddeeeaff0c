package agent

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helixml/agentbuilder/api/pkg/config"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

func init() {
	reviewCmd.Flags().StringP("filename", "f", "", "Review the instructions in this file instead of the saved ones")
	rootCmd.AddCommand(reviewCmd)
}

var reviewCmd = &cobra.Command{
	Use:   "review [agent ID or name]",
	Short: "Get feedback on an agent's instructions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadCliConfig()
		if err != nil {
			return err
		}

		var req types.ReviewRequest
		if filename, _ := cmd.Flags().GetString("filename"); filename != "" {
			data, err := os.ReadFile(filename)
			if err != nil {
				return fmt.Errorf("failed to read file %s: %w", filename, err)
			}
			req.Instructions = string(data)
		}

		apiClient, err := newClient(&cfg)
		if err != nil {
			return err
		}

		agent, err := lookupAgent(cmd.Context(), apiClient, workspaceID(cmd, &cfg), args[0])
		if err != nil {
			return err
		}

		result, err := apiClient.ReviewInstructions(cmd.Context(), agent.ID, &req)
		if err != nil {
			return fmt.Errorf("failed to review instructions: %w", err)
		}

		printReview(cmd.OutOrStdout(), result)
		return nil
	},
}

func printReview(w io.Writer, result *types.ReviewResult) {
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(w, "%s:\n", title)
		for _, item := range items {
			fmt.Fprintf(w, "  - %s\n", item)
		}
	}

	section("Good", result.Good)
	section("Suggestions", result.Suggestions)
	section("Optimizations", result.Optimizations)

	if len(result.ValidationWarnings) > 0 {
		fmt.Fprintln(w, "Unknown references:")
		for _, warning := range result.ValidationWarnings {
			line := "  - " + warning.Message
			if len(warning.Alternatives) > 0 {
				line += " (did you mean " + strings.Join(warning.Alternatives, ", ") + "?)"
			}
			fmt.Fprintln(w, line)
		}
	}
}
