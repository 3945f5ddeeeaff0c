package agentbuilder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/helixml/agentbuilder/api/pkg/config"
	"github.com/helixml/agentbuilder/api/pkg/pubsub"
	"github.com/helixml/agentbuilder/api/pkg/server"
	"github.com/helixml/agentbuilder/api/pkg/store"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the development api server.",
		Long: `Start the development api server. It stores agents, contacts and deals in
sqlite and simulates test runs, speaking the same protocol as the production
backend.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			level, err := zerolog.ParseLevel(os.Getenv(logLevelEnv))
			if err != nil || level == zerolog.NoLevel {
				level = zerolog.InfoLevel
			}
			zerolog.SetGlobalLevel(level)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return fmt.Errorf("failed to load server config: %w", err)
			}
			return serve(cmd.Context(), &cfg)
		},
	}

	serveCmd.Long += "\n\nEnvironment Variables:\n" + generateEnvHelpText(config.ServerConfig{}, "")

	return serveCmd
}

func serve(ctx context.Context, cfg *config.ServerConfig) error {
	// Context ensures main goroutine waits until killed with ctrl+c:
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := store.NewSqliteStore(cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}()

	if cfg.Store.Seed {
		if err := db.Seed(ctx); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	ps, err := newPubSub(cfg.PubSub)
	if err != nil {
		return err
	}
	defer func() {
		if err := ps.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close pubsub")
		}
	}()

	apiServer, err := server.NewServer(cfg, db, ps)
	if err != nil {
		return err
	}

	return apiServer.ListenAndServe(ctx)
}

// newPubSub connects to an external NATS server when one is configured,
// otherwise it starts an embedded one.
func newPubSub(cfg config.PubSub) (pubsub.PubSub, error) {
	if cfg.URL != "" {
		ps, err := pubsub.NewNats(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to nats at %s: %w", cfg.URL, err)
		}
		return ps, nil
	}

	ps, err := pubsub.NewInMemoryNats()
	if err != nil {
		return nil, fmt.Errorf("failed to start embedded nats: %w", err)
	}
	return ps, nil
}
