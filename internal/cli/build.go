package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fwdslsh/unify/internal/build"
	"github.com/fwdslsh/unify/internal/classify"
	"github.com/fwdslsh/unify/internal/unifyerr"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the static site from a source tree",
	Long: `Classify every file under the source tree, expand includes, resolve
layout chains, merge heads, and compose the result into the output directory.

This is the primary workflow command. Running 'unify' with no subcommand
is equivalent to running 'unify build'.`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

// runBuild converts the resolved CLI/config flags into a build.Config, runs
// the orchestrator, prints a dry-run report in place of writing output when
// requested, and otherwise reports the build's outcome.
func runBuild(cmd *cobra.Command, args []string) error {
	fv := GlobalFlags()

	cfg := build.Config{
		SourceRoot: fv.Source,
		OutputRoot: fv.Output,
		Patterns: classify.PatternConfig{
			Copy:          fv.Copy,
			Ignore:        fv.Ignore,
			Render:        fv.Render,
			IgnoreRender:  fv.IgnoreRender,
			IgnoreCopy:    fv.IgnoreCopy,
			DefaultLayout: fv.DefaultLayout,
			AutoIgnore:    fv.AutoIgnore,
		},
		PrettyURLs:  fv.PrettyURLs,
		Clean:       fv.Clean,
		FailOn:      build.FailOn(fv.FailOn),
		Concurrency: fv.Concurrency,
	}

	if fv.DryRun {
		return runDryRun(cmd, cfg)
	}

	orch := build.New(cfg)
	report, err := orch.Build(cmd.Context())
	if err != nil {
		return err
	}

	printBuildSummary(cmd, report)

	if report.ExitCode != unifyerr.ExitSuccess {
		return unifyerr.NewBuildError(
			fmt.Sprintf("build finished with failures (fail-on=%s)", fv.FailOn),
			fmt.Errorf("exit code %d", report.ExitCode))
	}
	return nil
}

// runDryRun classifies the source tree without writing output, per
// spec.md §4.2/§8 and SPEC_FULL.md §A.3/§C's dry-run report rendering.
func runDryRun(cmd *cobra.Command, cfg build.Config) error {
	if err := classify.ValidateConfig(cfg.Patterns); err != nil {
		return unifyerr.NewBuildError("invalid classifier configuration", err)
	}

	classifier := classify.NewClassifier(cfg.Patterns)
	classifications, err := classifier.ClassifyAll(cfg.SourceRoot)
	if err != nil {
		return unifyerr.NewBuildError("classifying source tree", err)
	}

	report := classify.GenerateDryRunReport(classifications, nil)
	fv := GlobalFlags()
	fmt.Fprint(cmd.OutOrStdout(), report.Render(fv.Verbose))

	if warnings := classifier.Warnings(); len(warnings) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "\npattern warnings:\n  %s\n", strings.Join(warnings, "\n  "))
	}
	return nil
}

// printBuildSummary writes a one-line-per-outcome summary of a completed
// build's page results.
func printBuildSummary(cmd *cobra.Command, report *build.Report) {
	out := cmd.OutOrStdout()

	var errCount, warnCount int
	for _, p := range build.SortedPages(report) {
		for _, e := range p.Errors {
			errCount++
			fmt.Fprintf(out, "error: %s: %v\n", p.Path, e)
		}
		for _, w := range p.Warnings {
			warnCount++
			fmt.Fprintf(out, "warning: %s: %s\n", p.Path, w.Message)
		}
	}

	fmt.Fprintf(out, "built %d files (%d errors, %d warnings)\n",
		len(report.Pages), errCount, warnCount)
}
