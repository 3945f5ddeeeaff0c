package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/helixml/agentbuilder/api/pkg/client"
	"github.com/helixml/agentbuilder/api/pkg/config"
	"github.com/helixml/agentbuilder/api/pkg/editor"
	"github.com/helixml/agentbuilder/api/pkg/estimates"
	"github.com/helixml/agentbuilder/api/pkg/notification"
	"github.com/helixml/agentbuilder/api/pkg/testrun"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

var errTestFailed = errors.New("test run failed")

func init() {
	testCmd.Flags().String("contact", "", "Contact ID to test against")
	testCmd.Flags().String("deal", "", "Deal ID to test against")
	testCmd.Flags().StringToString("set", nil, "Manual test data, e.g. --set contact.email=ada@example.com")
	testCmd.MarkFlagsMutuallyExclusive("contact", "deal", "set")

	rootCmd.AddCommand(testCmd)
}

var testCmd = &cobra.Command{
	Use:   "test [agent ID or name]",
	Short: "Dry run an agent against a contact, a deal or manual data",
	Long: `Dry run an agent's saved instructions. Nothing is sent or written, every
step is simulated by the server and printed as it arrives. Press Ctrl+C to
cancel the run.

Examples:
  agentbuilder agent test agt_01H... --contact con_01H...
  agentbuilder agent test "Renewal follow-up" --set contact.firstName=Ada`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadCliConfig()
		if err != nil {
			return err
		}

		target, err := targetFromFlags(cmd)
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

		path, err := expandHome(cfg.Estimates.DatabasePath)
		if err != nil {
			return err
		}
		estimateStore, err := estimates.NewGormStore(path)
		if err != nil {
			return err
		}
		defer func() {
			if err := estimateStore.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close estimates database")
			}
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runTest(cmd.Context(), ctx, cmd.OutOrStdout(), testOptions{
			client:    apiClient,
			agent:     agent,
			target:    target,
			estimates: estimateStore,
			notifier:  notification.NewWriterNotifier(cmd.ErrOrStderr()),
			editor:    cfg.Editor,
		})
	},
}

type testOptions struct {
	client    client.Client
	agent     *types.Agent
	target    types.TestTarget
	estimates estimates.Store
	notifier  notification.Notifier
	editor    config.Editor
}

func targetFromFlags(cmd *cobra.Command) (types.TestTarget, error) {
	contactID, _ := cmd.Flags().GetString("contact")
	dealID, _ := cmd.Flags().GetString("deal")
	manual, err := cmd.Flags().GetStringToString("set")
	if err != nil {
		return types.TestTarget{}, err
	}

	switch {
	case contactID != "":
		return types.TestTarget{Type: types.TestTargetTypeContact, ID: contactID}, nil
	case dealID != "":
		return types.TestTarget{Type: types.TestTargetTypeDeal, ID: dealID}, nil
	default:
		return types.TestTarget{Type: types.TestTargetTypeNone, ManualData: manual}, nil
	}
}

// runTest streams one test run to out. Once interrupt is done the run is
// cancelled on the server and locally.
func runTest(ctx, interrupt context.Context, out io.Writer, opts testOptions) error {
	session, err := editor.NewSession(ctx, editor.Options{
		Client:    opts.client,
		Agent:     opts.agent,
		Estimates: opts.estimates,
		Notifier:  opts.notifier,
		Editor:    opts.editor,
		ReadOnly:  true,
	})
	if err != nil {
		return err
	}
	defer session.Close(context.WithoutCancel(ctx))

	runner := session.TestRun()
	updates, unsubscribe := runner.Subscribe()
	defer unsubscribe()

	if err := session.StartTest(ctx, opts.target); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-interrupt.Done():
			if err := session.CancelTest(context.WithoutCancel(ctx)); err != nil {
				log.Warn().Err(err).Msg("failed to cancel test run")
			}
		case <-done:
		}
	}()

	printed := 0
	for snapshot := range updates {
		for ; printed < len(snapshot.Steps); printed++ {
			printStep(out, snapshot.Steps[printed], snapshot.Progress)
		}
		if snapshot.Status.Terminal() {
			break
		}
	}

	runner.Wait()
	final := runner.Snapshot()
	for ; printed < len(final.Steps); printed++ {
		printStep(out, final.Steps[printed], final.Progress)
	}

	if err := printSummary(out, final); err != nil {
		return err
	}
	if final.Status == testrun.StatusFailed {
		return errTestFailed
	}
	return nil
}

var statusIcons = map[types.StepStatus]string{
	types.StepStatusSuccess:     "ok",
	types.StepStatusSimulated:   "ok",
	types.StepStatusWarning:     "warn",
	types.StepStatusError:       "error",
	types.StepStatusSkipped:     "skip",
	types.StepStatusNotExecuted: "-",
}

func printStep(w io.Writer, step types.StepResult, progress *types.TestRunProgress) {
	total := "?"
	if progress != nil && progress.Total > 0 {
		total = strconv.Itoa(progress.Total)
	}

	fmt.Fprintf(w, "[%d/%s] %-5s %s", step.StepNumber, total, statusIcons[step.Status], step.ActionLabel)
	if step.Message != "" {
		fmt.Fprintf(w, ": %s", step.Message)
	}
	fmt.Fprintln(w)

	for _, suggestion := range step.Suggestions {
		fmt.Fprintf(w, "        %s\n", suggestion)
	}
}

func printSummary(w io.Writer, snapshot testrun.Snapshot) error {
	elapsed := snapshot.Elapsed.Round(100 * time.Millisecond)

	switch snapshot.Status {
	case testrun.StatusCancelled:
		fmt.Fprintf(w, "\nTest run cancelled after %s\n", elapsed)
		return nil
	case testrun.StatusCompleted:
		fmt.Fprintf(w, "\nTest run completed in %s\n", elapsed)
	case testrun.StatusFailed:
		fmt.Fprintf(w, "\nTest run failed after %s\n", elapsed)
	}

	if !snapshot.ShowSummary() {
		if snapshot.StreamError != "" {
			fmt.Fprintf(w, "Connection to the server was lost: %s\n", snapshot.StreamError)
		}
		return nil
	}

	result := snapshot.Result
	if result != nil {
		if result.TimedOut {
			fmt.Fprintln(w, "The run hit the time limit, results are partial")
		}
		if result.Error != "" {
			fmt.Fprintln(w, result.Error)
		}
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "warning: %s\n", warning)
		}
	}

	summary := snapshot.Summary()
	table := tablewriter.NewWriter(w)
	table.Header("Completed", "Warnings", "Errors", "Skipped", "Not executed")
	err := table.Append([]string{
		strconv.Itoa(summary.Completed),
		strconv.Itoa(summary.Warnings),
		strconv.Itoa(summary.Errors),
		strconv.Itoa(summary.Skipped),
		strconv.Itoa(summary.NotExecuted),
	})
	if err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if snapshot.Estimate != nil {
		printEstimate(w, estimates.Compare(snapshot.PreviousEstimate, snapshot.Estimate))
	}
	return nil
}

func printEstimate(w io.Writer, delta *estimates.Delta) {
	fmt.Fprintf(w, "Estimated time per contact: %ss, credits: %s\n",
		humanize.FtoaWithDigits(delta.Current.Time, 1),
		humanize.FtoaWithDigits(delta.Current.Credits, 2))

	if !delta.HasPrevious() {
		return
	}

	fmt.Fprintf(w, "Compared to the run %s: time %s, credits %s\n",
		humanize.Time(delta.Previous.Timestamp),
		signed(delta.Time, 1, "s"),
		signed(delta.Credits, 2, ""))
}

func signed(v float64, digits int, unit string) string {
	if v == 0 {
		return "unchanged"
	}
	sign := "+"
	if v < 0 {
		sign = "-"
	}
	return sign + humanize.FtoaWithDigits(math.Abs(v), digits) + unit
}
