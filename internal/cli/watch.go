package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild on source changes (not implemented by the core)",
	Long: `Watch rebuilds the site whenever a source file changes. Filesystem
watching and incremental scheduling are external-collaborator concerns
(spec.md §1 Non-goals); the core only guarantees it can reconstruct a full
dependency graph from scratch on every cold build, per spec.md §6 "Persisted
state: none". This command performs one full build and stops.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := runBuild(cmd, args); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(),
		"build complete; continuous watch is implemented by an external file-watcher driving repeated builds")
	return nil
}
