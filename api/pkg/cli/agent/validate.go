package agent

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/helixml/agentbuilder/api/pkg/config"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

var errInvalidInstructions = errors.New("instructions are not valid")

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate [agent ID or name]",
	Short: "Check an agent's saved instructions for unknown references",
	Args:  cobra.ExactArgs(1),
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

		result, err := apiClient.ValidateInstructions(cmd.Context(), agent.ID)
		if err != nil {
			return fmt.Errorf("failed to validate instructions: %w", err)
		}

		if err := printValidation(cmd.OutOrStdout(), result); err != nil {
			return err
		}
		if !result.Valid {
			return errInvalidInstructions
		}
		return nil
	},
}

func printValidation(w io.Writer, result *types.ValidationResult) error {
	fmt.Fprintf(w, "%d errors, %d warnings\n", result.Summary.ErrorCount, result.Summary.WarningCount)

	issues := append(append([]types.ValidationIssue{}, result.Errors...), result.Warnings...)
	if len(issues) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Line", "Severity", "Message")

	for _, issue := range issues {
		line := ""
		if issue.LineNumber > 0 {
			line = strconv.Itoa(issue.LineNumber)
		}
		if err := table.Append([]string{line, string(issue.Severity), issue.Message}); err != nil {
			return err
		}
	}

	return table.Render()
}
