// Package cli implements the Cobra command hierarchy for the unify CLI tool.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fwdslsh/unify/internal/config"
)

// configCmd is the parent command for configuration-related subcommands.
// Running `unify config` with no subcommand prints the help text.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long: `Configuration management commands for unify.

Use these subcommands to inspect and debug your unify configuration:

  debug  Show the fully resolved configuration with per-field source annotations
  show   Show the resolved configuration as annotated TOML`,
	// No RunE: default Cobra behaviour will print help when no subcommand is given.
}

// configDebugCmd shows the fully resolved configuration with source annotations.
var configDebugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Show resolved configuration with source annotations",
	Long: `Displays the complete resolved configuration showing exactly which source
(built-in default, repo config, environment variable, or CLI flag) provided
each value. Useful for diagnosing unexpected configuration behavior.`,
	RunE: runConfigDebug,
}

// configShowCmd shows the resolved configuration rendered as annotated TOML.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration as annotated TOML",
	RunE:  runConfigShow,
}

func init() {
	configDebugCmd.Flags().Bool("json", false, "output as structured JSON")
	configShowCmd.Flags().Bool("json", false, "output as JSON instead of annotated TOML")

	configCmd.AddCommand(configDebugCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigDebug implements `unify config debug`.
func runConfigDebug(cmd *cobra.Command, _ []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	fv := GlobalFlags()
	result, err := config.BuildDebugOutput(config.DebugOptions{
		TargetDir: fv.Source,
		CLIFlags:  config.ToCLIFlags(fv, cmd.Root()),
	})
	if err != nil {
		return fmt.Errorf("building debug output: %w", err)
	}

	if asJSON {
		if err := config.FormatDebugOutputJSON(result, out); err != nil {
			return fmt.Errorf("formatting debug output as JSON: %w", err)
		}
		return nil
	}

	if err := config.FormatDebugOutput(result, out); err != nil {
		return fmt.Errorf("formatting debug output: %w", err)
	}
	return nil
}

// runConfigShow implements `unify config show`.
func runConfigShow(cmd *cobra.Command, _ []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	fv := GlobalFlags()
	resolved, err := config.Resolve(config.ResolveOptions{
		TargetDir: fv.Source,
		CLIFlags:  config.ToCLIFlags(fv, cmd.Root()),
	})
	if err != nil {
		return fmt.Errorf("resolving config: %w", err)
	}

	if asJSON {
		rendered, err := config.ShowSettingsJSON(resolved.Settings)
		if err != nil {
			return fmt.Errorf("rendering config as JSON: %w", err)
		}
		fmt.Fprintln(out, rendered)
		return nil
	}

	fmt.Fprint(out, config.ShowSettings(config.ShowOptions{
		Settings:   resolved.Settings,
		Sources:    resolved.Sources,
		ConfigFile: resolved.ConfigFile,
	}))
	return nil
}
