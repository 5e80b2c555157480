package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter unify.toml in the current directory",
	Long: `Init writes a minimal unify.toml with the built-in defaults made
explicit, as a starting point for customization. It does not scaffold a
source tree or layouts.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

const starterConfig = `# unify.toml -- generated by "unify init"

source = "."
output = "dist"
auto_ignore = true
pretty_urls = false
clean = false
sitemap = false
fail_on = "error"
minify = false

ignore = [".git", "node_modules"]
`

func runInit(cmd *cobra.Command, args []string) error {
	fv := GlobalFlags()
	path := filepath.Join(fv.Source, "unify.toml")

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
