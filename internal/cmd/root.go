package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for devscan
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devscan",
		Short: "Find and tag developer projects on local disks",
		Long: `devscan walks local filesystem trees, suggests which directories are
developer projects, and proposes tags for the projects you accept.

Scans run per root, across every local volume, or over roots flagged as
changed. Decisions are stored so rejected suggestions stay rejected, and
the regress command replays saved snapshots to detect classifier drift.

Data lives under $DEVSCAN_HOME (default ~/.devscan).`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error (default from config)")
	cmd.PersistentFlags().String("db", "", "Path to the SQLite database (default $DEVSCAN_HOME/devscan.db)")

	cmd.AddCommand(NewRootsCommand())
	cmd.AddCommand(NewScanCommand())
	cmd.AddCommand(NewSessionsCommand())
	cmd.AddCommand(NewSuggestionsCommand())
	cmd.AddCommand(NewProjectsCommand())
	cmd.AddCommand(NewTagsCommand())
	cmd.AddCommand(NewRegressCommand())

	return cmd
}
