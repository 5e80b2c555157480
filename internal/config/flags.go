package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// DefaultOutput is the default output directory when --output is not
// specified.
const DefaultOutput = "dist"

// FlagValues collects all parsed `build` command flag values from the CLI.
// This struct is populated by BindFlags and converted into Settings
// overrides via ToCLIFlags.
type FlagValues struct {
	Source         string
	Output         string
	Render         []string
	Copy           []string
	Ignore         []string
	IgnoreRender   []string
	IgnoreCopy     []string
	DefaultLayout  []string
	ExcludePattern []string
	AutoIgnore     bool
	PrettyURLs     bool
	BaseURL        string
	Clean          bool
	Sitemap        bool
	FailOn         string
	Minify         bool
	Concurrency    int
	Verbose        bool
	Quiet          bool
	DryRun         bool
	Port           int
	Host           string
}

// BindFlags registers the `build` command's flags as persistent flags on
// cmd and returns a FlagValues pointer that is populated when the command
// is executed. Persistent registration lets subcommands (e.g. an explicit
// "build" alias under the root) inherit the same flag set. Callers should
// access the returned struct after flag parsing.
func BindFlags(cmd *cobra.Command) *FlagValues {
	fv := &FlagValues{}

	fl := cmd.PersistentFlags()
	fl.StringVarP(&fv.Source, "source", "s", ".", "source directory to build")
	fl.StringVarP(&fv.Output, "output", "o", DefaultOutput, "output directory")
	fl.StringArrayVar(&fv.Render, "render", nil, "force-render a glob pattern (repeatable)")
	fl.StringArrayVar(&fv.Copy, "copy", nil, "force-copy a glob pattern (repeatable)")
	fl.StringArrayVar(&fv.Ignore, "ignore", nil, "ignore a glob pattern (repeatable)")
	fl.StringArrayVar(&fv.IgnoreRender, "ignore-render", nil, "ignore a renderable glob pattern (repeatable)")
	fl.StringArrayVar(&fv.IgnoreCopy, "ignore-copy", nil, "ignore a non-renderable glob pattern (repeatable)")
	fl.StringArrayVar(&fv.DefaultLayout, "default-layout", nil, "glob=layoutPath fallback layout mapping (repeatable)")
	fl.StringArrayVar(&fv.ExcludePattern, "exclude-pattern", nil, "additional ignore glob pattern (repeatable)")
	fl.BoolVar(&fv.AutoIgnore, "auto-ignore", true, "auto-ignore underscore-prefixed paths and registered layouts/includes")
	fl.BoolVar(&fv.PrettyURLs, "pretty-urls", false, "rewrite page.html to page/index.html")
	fl.StringVar(&fv.BaseURL, "base-url", "", "base URL for absolute links and sitemap generation")
	fl.BoolVar(&fv.Clean, "clean", false, "remove the output directory before building")
	fl.BoolVar(&fv.Sitemap, "sitemap", false, "enable sitemap.xml generation")
	fl.StringVar(&fv.FailOn, "fail-on", "error", "exit non-zero on: none, warning, error, security")
	fl.BoolVar(&fv.Minify, "minify", false, "enable output minification")
	fl.IntVar(&fv.Concurrency, "concurrency", 0, "worker pool size (0 = runtime.NumCPU())")
	fl.BoolVarP(&fv.Verbose, "verbose", "v", false, "enable debug logging")
	fl.BoolVarP(&fv.Quiet, "quiet", "q", false, "suppress all output except errors")
	fl.BoolVar(&fv.DryRun, "dry-run", false, "print the classification report without writing output")
	fl.IntVar(&fv.Port, "port", 8080, "local preview server port (serve/watch)")
	fl.StringVar(&fv.Host, "host", "localhost", "local preview server host (serve/watch)")

	return fv
}

// ValidateFlags checks the parsed flag values for correctness and mutual
// exclusion, and applies environment variable fallbacks for flags not
// explicitly set. Call this from PersistentPreRunE after Cobra has parsed
// the flags.
func ValidateFlags(fv *FlagValues, cmd *cobra.Command) error {
	applyEnvOverrides(fv, cmd)

	if fv.Verbose && fv.Quiet {
		return fmt.Errorf("--verbose and --quiet are mutually exclusive")
	}

	info, err := os.Stat(fv.Source)
	if err != nil {
		return fmt.Errorf("--source: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("--source: %s is not a directory", fv.Source)
	}

	switch fv.FailOn {
	case "", "none", "warning", "error", "security":
		// valid
	default:
		return fmt.Errorf("--fail-on: invalid value %q (allowed: none, warning, error, security)", fv.FailOn)
	}

	return nil
}

// applyEnvOverrides applies UNIFY_* environment variable fallbacks for flags
// that were not explicitly set on the command line.
func applyEnvOverrides(fv *FlagValues, cmd *cobra.Command) {
	if v := os.Getenv(EnvSource); v != "" && !cmd.Flags().Changed("source") {
		fv.Source = v
	}
	if v := os.Getenv(EnvOutput); v != "" && !cmd.Flags().Changed("output") {
		fv.Output = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" && !cmd.Flags().Changed("base-url") {
		fv.BaseURL = v
	}
	if v := os.Getenv(EnvFailOn); v != "" && !cmd.Flags().Changed("fail-on") {
		fv.FailOn = v
	}

	if EnvDebugSet() && !cmd.Flags().Changed("verbose") {
		fv.Verbose = true
	}
}

// ToCLIFlags converts fv into the flat map Resolve's ResolveOptions.CLIFlags
// expects, including only flags the user actually changed on cmd -- an
// unchanged flag's zero/default value must not shadow a file or env layer.
func ToCLIFlags(fv *FlagValues, cmd *cobra.Command) map[string]any {
	m := make(map[string]any)
	fl := cmd.Flags()

	changed := func(name string) bool { return fl.Changed(name) }

	if changed("source") {
		m["source"] = fv.Source
	}
	if changed("output") {
		m["output"] = fv.Output
	}
	if changed("render") {
		m["render"] = fv.Render
	}
	if changed("copy") {
		m["copy"] = fv.Copy
	}
	if changed("ignore") {
		m["ignore"] = fv.Ignore
	}
	if changed("ignore-render") {
		m["ignore_render"] = fv.IgnoreRender
	}
	if changed("ignore-copy") {
		m["ignore_copy"] = fv.IgnoreCopy
	}
	if changed("default-layout") {
		m["default_layout"] = fv.DefaultLayout
	}
	if changed("exclude-pattern") {
		m["exclude_pattern"] = fv.ExcludePattern
	}
	if changed("auto-ignore") {
		m["auto_ignore"] = fv.AutoIgnore
	}
	if changed("pretty-urls") {
		m["pretty_urls"] = fv.PrettyURLs
	}
	if changed("base-url") {
		m["base_url"] = fv.BaseURL
	}
	if changed("clean") {
		m["clean"] = fv.Clean
	}
	if changed("sitemap") {
		m["sitemap"] = fv.Sitemap
	}
	if changed("fail-on") {
		m["fail_on"] = fv.FailOn
	}
	if changed("minify") {
		m["minify"] = fv.Minify
	}
	if changed("concurrency") {
		m["concurrency"] = fv.Concurrency
	}
	if fv.Verbose {
		m["verbose"] = true
	}
	if fv.Quiet {
		m["quiet"] = true
	}
	if changed("dry-run") {
		m["dry_run"] = fv.DryRun
	}
	if changed("port") {
		m["port"] = fv.Port
	}
	if changed("host") {
		m["host"] = fv.Host
	}

	return m
}
