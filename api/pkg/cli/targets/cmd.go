package targets

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:     "targets",
	Short:   "Find contacts and deals to test agents against",
	Aliases: []string{"target", "t"},
}

func New() *cobra.Command {
	return rootCmd
}
