package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the built output over HTTP (not implemented by the core)",
	Long: `Serve starts a local HTTP server over the output directory for local
preview. Live reload, file watching, and HTTP serving are external-collaborator
concerns (spec.md §1 Non-goals); this command builds once and reports where
the output landed rather than implementing a server itself.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := runBuild(cmd, args); err != nil {
		return err
	}
	fv := GlobalFlags()
	fmt.Fprintf(cmd.OutOrStdout(),
		"build complete; serve the %q directory at %s:%d with an external HTTP server\n",
		fv.Output, fv.Host, fv.Port)
	return nil
}
