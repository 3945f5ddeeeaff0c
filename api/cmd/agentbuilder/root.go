package agentbuilder

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/helixml/agentbuilder/api/pkg/cli/agent"
	"github.com/helixml/agentbuilder/api/pkg/cli/targets"
)

const logLevelEnv = "AGENTBUILDER_LOG_LEVEL"

var Fatal = FatalErrorHandler

func NewRootCmd() *cobra.Command {
	RootCmd := &cobra.Command{
		Use:   getCommandLineExecutable(),
		Short: "Agent builder",
		Long:  `Edit, validate and dry run automation agents`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogging(os.Getenv(logLevelEnv))
		},
		SilenceUsage: true,
	}

	RootCmd.AddCommand(agent.New())
	RootCmd.AddCommand(targets.New())

	RootCmd.AddCommand(newServeCmd())
	RootCmd.AddCommand(newVersionCommand())

	return RootCmd
}

func Execute() {
	RootCmd := NewRootCmd()
	RootCmd.SetContext(context.Background())
	RootCmd.SetOut(os.Stdout)

	if err := RootCmd.Execute(); err != nil {
		Fatal(RootCmd, err.Error(), 1)
	}
}

// setupLogging writes human readable logs to stderr at the given level,
// falling back to info.
func setupLogging(levelName string) {
	level, err := zerolog.ParseLevel(levelName)
	if err != nil || levelName == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
