// Package cli implements the Cobra command hierarchy for the unify CLI tool.
// The root command defined here is the entry point for all subcommands and
// handles cross-cutting concerns like logging initialization and error handling.
package cli

import (
	"errors"
	"fmt"
	"log/slog"

	edlib "github.com/hbollon/go-edlib"
	"github.com/spf13/cobra"

	"github.com/fwdslsh/unify/internal/config"
	"github.com/fwdslsh/unify/internal/unifyerr"
)

// flagValues holds the parsed global flag values, populated by config.BindFlags
// during command initialization and validated in PersistentPreRunE.
var flagValues *config.FlagValues

var rootCmd = &cobra.Command{
	Use:   "unify",
	Short: "Build static sites from layouts, includes, and content.",
	Long: `Unify walks a source tree, classifies every file, expands includes,
resolves layout chains, and composes the result into a static output tree.

Running 'unify' with no subcommand is equivalent to running 'unify build'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	// Args rejects stray positional arguments (cobra only dispatches to a
	// subcommand on an exact name match; anything else reaches here as a
	// leftover arg for the root command, which never takes positional
	// arguments of its own).
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return nil
		}
		if msg := suggestForUnknownCommand(args[0]); msg != "" {
			return errors.New(msg)
		}
		return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ValidateFlags(flagValues, cmd); err != nil {
			return err
		}

		level := config.ResolveLogLevel(flagValues.Verbose, flagValues.Quiet)
		format := config.ResolveLogFormat()
		config.SetupLogging(level, format)

		slog.Debug("logging initialized", "level", level, "format", format)
		return nil
	},
	// When no subcommand is given, delegate to the build command.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd, args)
	},
}

func init() {
	flagValues = config.BindFlags(rootCmd)

	rootCmd.RegisterFlagCompletionFunc("fail-on", completeFailOn)
}

// completeFailOn returns the valid values for the --fail-on flag.
func completeFailOn(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{"none", "warning", "error", "security"}, cobra.ShellCompDirectiveNoFileComp
}

// Execute runs the root command and returns an appropriate exit code.
// If the error is a *unifyerr.BuildError, its Code is used.
// Generic errors return ExitBuild (1). Nil returns ExitSuccess (0).
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		slog.Error(err.Error())
		return extractExitCode(err)
	}
	return int(unifyerr.ExitSuccess)
}

// extractExitCode determines the process exit code from an error.
// If the error is a *unifyerr.BuildError, its Code field is used.
// Otherwise, ExitBuild (1) is returned for any non-nil error.
func extractExitCode(err error) int {
	if err == nil {
		return int(unifyerr.ExitSuccess)
	}
	var buildErr *unifyerr.BuildError
	if errors.As(err, &buildErr) {
		return buildErr.Code
	}
	return int(unifyerr.ExitBuild)
}

// RootCmd returns the root cobra.Command for use in testing and subcommand registration.
func RootCmd() *cobra.Command {
	return rootCmd
}

// GlobalFlags returns the parsed global flag values. This is available after
// PersistentPreRunE has run. Subcommands use this to access shared configuration.
func GlobalFlags() *config.FlagValues {
	return flagValues
}

// suggestionSimilarityThreshold is the minimum Levenshtein similarity score
// (0-1) a candidate must reach to be offered as a suggestion, corresponding
// roughly to spec.md §6's "edit distance <= 2" for typical command-length
// strings.
const suggestionSimilarityThreshold = 0.5

// knownCommandNames lists every registered top-level command name and alias,
// used for edit-distance suggestions when a user mistypes a subcommand
// (spec.md §6 "Unknown options or unknown commands emit a suggestion via
// edit distance <= 2 to the closest known name").
func knownCommandNames() []string {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
		names = append(names, c.Aliases...)
	}
	return names
}

// suggestClosest returns the candidate most similar to input by
// Levenshtein similarity, or "" when no candidate clears
// suggestionSimilarityThreshold.
func suggestClosest(input string, candidates []string) string {
	best := ""
	var bestScore float32
	for _, c := range candidates {
		score, err := edlib.StringsSimilarity(input, c, edlib.Levenshtein)
		if err != nil {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if bestScore < suggestionSimilarityThreshold {
		return ""
	}
	return best
}

// suggestForUnknownCommand builds a "did you mean" hint for an unrecognized
// subcommand name, or "" if nothing is close enough to suggest.
func suggestForUnknownCommand(name string) string {
	suggestion := suggestClosest(name, knownCommandNames())
	if suggestion == "" {
		return ""
	}
	return fmt.Sprintf("unknown command %q for %q, did you mean %q?", name, rootCmd.CommandPath(), suggestion)
}
