package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/helixml/agentbuilder/api/pkg/client"
	"github.com/helixml/agentbuilder/api/pkg/config"
	"github.com/helixml/agentbuilder/api/pkg/editor"
	"github.com/helixml/agentbuilder/api/pkg/notification"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

var errConflict = errors.New("instructions were changed by someone else, rerun with --force to overwrite them")

func init() {
	editCmd.Flags().StringP("filename", "f", "", "File holding the instructions")
	editCmd.Flags().Bool("watch", false, "Keep saving the file every time it changes until interrupted")
	editCmd.Flags().Bool("force", false, "Overwrite instructions changed by someone else")
	editCmd.Flags().Bool("validate", false, "Validate the instructions after saving")
	_ = editCmd.MarkFlagRequired("filename")

	rootCmd.AddCommand(editCmd)
}

var editCmd = &cobra.Command{
	Use:   "edit [agent ID or name]",
	Short: "Save instructions from a file",
	Long: `Save an agent's instructions from a local file. With --watch the file is
saved every time it changes, edits are debounced the same way the editor does.

Examples:
  agentbuilder agent edit agt_01H... -f instructions.txt
  agentbuilder agent edit "Renewal follow-up" -f instructions.txt --watch`,
	Args: cobra.ExactArgs(1),
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

		filename, _ := cmd.Flags().GetString("filename")
		watch, _ := cmd.Flags().GetBool("watch")
		force, _ := cmd.Flags().GetBool("force")
		validate, _ := cmd.Flags().GetBool("validate")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return edit(ctx, cmd.OutOrStdout(), editOptions{
			client:   apiClient,
			agent:    agent,
			notifier: notification.NewWriterNotifier(cmd.ErrOrStderr()),
			editor:   cfg.Editor,
			path:     filename,
			watch:    watch,
			force:    force,
			validate: validate,
		})
	},
}

type editOptions struct {
	client   client.Client
	agent    *types.Agent
	notifier notification.Notifier
	editor   config.Editor

	path     string
	watch    bool
	force    bool
	validate bool
}

// edit loads path into an editor session and saves it. In watch mode it
// keeps feeding file changes into the session until ctx is done.
func edit(ctx context.Context, out io.Writer, opts editOptions) error {
	path, err := filepath.Abs(opts.path)
	if err != nil {
		return err
	}

	conflicts := make(chan types.Conflict, 1)
	session, err := editor.NewSession(ctx, editor.Options{
		Client:   opts.client,
		Agent:    opts.agent,
		Notifier: opts.notifier,
		Editor:   opts.editor,
		OnConflict: func(conflict types.Conflict) {
			select {
			case conflicts <- conflict:
			default:
			}
		},
		OnSaveStatus: func(status types.SaveStatus) {
			if status == types.SaveStatusSaved {
				fmt.Fprintln(out, "Saved")
			}
		},
	})
	if err != nil {
		return err
	}
	defer session.Close(context.WithoutCancel(ctx))

	if err := load(session, path); err != nil {
		return err
	}

	if !opts.watch {
		session.Autosave().Flush()
		return settle(ctx, out, session, conflicts, opts)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// editors often replace the file, so watch the directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	fmt.Fprintf(out, "Watching %s, press Ctrl+C to stop\n", path)

	for {
		select {
		case <-ctx.Done():
			session.Autosave().Flush()
			return nil

		case conflict := <-conflicts:
			if err := resolve(ctx, out, session, conflict, opts.force); err != nil {
				return err
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if err := load(session, path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to reload instructions")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func load(session *editor.Session, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}
	session.SetText(string(data))
	return nil
}

// settle handles the outcome of a one-shot save.
func settle(ctx context.Context, out io.Writer, session *editor.Session, conflicts <-chan types.Conflict, opts editOptions) error {
	select {
	case conflict := <-conflicts:
		if err := resolve(ctx, out, session, conflict, opts.force); err != nil {
			return err
		}
	default:
	}

	state := session.Autosave().State()
	switch state.Status {
	case types.SaveStatusError:
		return fmt.Errorf("failed to save instructions: %s", state.LastError)
	case types.SaveStatusIdle:
		fmt.Fprintln(out, "No changes to save")
	}

	if !opts.validate {
		return nil
	}

	result, err := session.Validate(ctx)
	if err != nil {
		return err
	}
	if err := printValidation(out, result); err != nil {
		return err
	}
	if !result.Valid {
		return errInvalidInstructions
	}
	return nil
}

func resolve(ctx context.Context, out io.Writer, session *editor.Session, conflict types.Conflict, force bool) error {
	fmt.Fprintf(out, "Instructions were updated by %s at %s\n", conflict.UpdatedBy, conflict.UpdatedAt)
	if !force {
		return errConflict
	}
	return session.ResolveConflict(ctx, true)
}
