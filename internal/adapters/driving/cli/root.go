// Package cli provides the command-line interface built on Cobra.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/qwant1k/rag/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath  string
	verboseMode bool
)

var rootCmd = &cobra.Command{
	Use:   "rag",
	Short: "Chat with your documents",
	Long: `rag indexes a directory of documents into a local vector store and
answers questions about them, citing the passages it used.

Documents are chunked, embedded and kept in sync with the directory
automatically while the server runs.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseMode)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (TOML)")
	rootCmd.PersistentFlags().BoolVarP(&verboseMode, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
