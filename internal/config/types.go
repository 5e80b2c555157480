package config

// Config is the top-level structure parsed from a unify.toml (or
// .unify.toml) file. Unlike the source this package was adapted from, Unify
// has a single active settings object per build rather than a map of named,
// inheriting profiles -- a site build has one source tree and one output
// tree, so there is nothing for a second profile to select between. See
// DESIGN.md's Open Question Decisions for the rationale.
type Config struct {
	Settings
}

// Settings holds every build knob spec.md names: the pattern sets that feed
// the file classifier (§4.2), layout/output behavior (§4.3, §5), the
// dependency tracker's failure policy (§7), and server/test knobs for the
// `serve` command.
type Settings struct {
	// Render, Copy, Ignore, IgnoreRender, IgnoreCopy, and DefaultLayout are
	// the classifier's raw pattern sets (spec.md §3, §4.2). Entries may
	// carry a leading "!" to negate a prior match (pathutil.PatternList).
	Render        []string `toml:"render"`
	Copy          []string `toml:"copy"`
	Ignore        []string `toml:"ignore"`
	IgnoreRender  []string `toml:"ignore_render"`
	IgnoreCopy    []string `toml:"ignore_copy"`
	DefaultLayout []string `toml:"default_layout"`

	// AutoIgnore excludes underscore-prefixed paths and registered
	// layout/include files from emission (spec.md §4.2). Defaults to true.
	AutoIgnore bool `toml:"auto_ignore"`

	// ExcludePattern is evaluated the same way as Ignore. Kept distinct so
	// a --exclude-pattern CLI flag never has to be positionally merged
	// into the Ignore slice.
	ExcludePattern []string `toml:"exclude_pattern"`

	// Source and Output are the build's root directories.
	Source string `toml:"source"`
	Output string `toml:"output"`

	// PrettyURLs rewrites "about.html" to "about/index.html" (spec.md §5).
	PrettyURLs bool `toml:"pretty_urls"`

	// BaseURL prefixes absolute-link/sitemap generation. Empty means
	// root-relative.
	BaseURL string `toml:"base_url"`

	// Clean removes Output before a build runs.
	Clean bool `toml:"clean"`

	// Sitemap is a pass-through knob for the external sitemap-generation
	// collaborator (spec.md §1 Non-goals); the core never writes one.
	Sitemap bool `toml:"sitemap"`

	// FailOn selects which page outcome turns into a non-zero exit code:
	// "", "none", "warning", "error", or "security" (spec.md §7).
	FailOn string `toml:"fail_on"`

	// Minify is a pass-through knob for an external minifier collaborator
	// (spec.md §1 Non-goals); the core never minifies output itself.
	Minify bool `toml:"minify"`

	// Concurrency bounds the orchestrator's worker pool. Zero means
	// runtime.NumCPU().
	Concurrency int `toml:"concurrency"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `toml:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `toml:"log_format"`

	// Verbose and Quiet adjust LogLevel the same way ResolveLogLevel does,
	// without overriding an explicitly set LogLevel.
	Verbose bool `toml:"verbose"`
	Quiet   bool `toml:"quiet"`

	// DryRun switches the CLI to classify.GenerateDryRunReport instead of
	// running a build (spec.md §4.2, §8).
	DryRun bool `toml:"dry_run"`

	// Port and Host configure the `serve` command's local HTTP server.
	Port int    `toml:"port"`
	Host string `toml:"host"`
}
