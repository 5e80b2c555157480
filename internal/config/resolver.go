package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/knadh/koanf/providers/confmap"
	koanf "github.com/knadh/koanf/v2"
)

// ResolveOptions configures the multi-source configuration resolution.
type ResolveOptions struct {
	// ConfigFile is an explicit unify.toml/.unify.toml path.
	// When empty, TargetDir is searched via DiscoverRepoConfig.
	ConfigFile string

	// TargetDir is the directory to search for unify.toml. Defaults to "."
	// if empty and ConfigFile is unset.
	TargetDir string

	// CLIFlags holds explicit CLI flag overrides (highest precedence).
	// Keys are flat snake_case config keys: "source", "output", "fail_on", etc.
	CLIFlags map[string]any
}

// ResolvedConfig is the result of multi-source configuration resolution.
type ResolvedConfig struct {
	// Settings is the final merged settings object ready for use by the
	// build orchestrator and CLI.
	Settings Settings

	// Sources tracks which layer each field value came from.
	Sources SourceMap

	// ConfigFile is the path of the unify.toml that was loaded, or "" if
	// none was found.
	ConfigFile string
}

// Resolve runs the configuration resolution pipeline (spec.md §A.3):
//  1. Built-in defaults
//  2. Repository config (unify.toml/.unify.toml, discovered from TargetDir
//     unless ConfigFile is set explicitly)
//  3. Environment variables (UNIFY_* prefix)
//  4. CLI flags (highest precedence)
//
// A missing config file is silently ignored. An invalid file returns an
// error.
func Resolve(opts ResolveOptions) (*ResolvedConfig, error) {
	k := koanf.New(".")
	sources := make(SourceMap)

	// ── Layer 1: built-in defaults ─────────────────────────────────────────
	if err := loadLayer(k, settingsToFlatMap(DefaultSettings()), sources, SourceDefault); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// ── Layer 2: repo config file ────────────────────────────────────────
	configPath := opts.ConfigFile
	if configPath == "" {
		targetDir := opts.TargetDir
		if targetDir == "" {
			targetDir = "."
		}
		found, err := DiscoverRepoConfig(targetDir)
		if err != nil {
			return nil, fmt.Errorf("discovering repo config: %w", err)
		}
		configPath = found
	}

	if configPath != "" {
		flat, err := extractSettingsFlat(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", configPath, err)
		}
		if flat != nil {
			slog.Debug("loading settings from config", "path", configPath)
			if err := loadLayer(k, flat, sources, SourceRepo); err != nil {
				return nil, err
			}
		}
	}

	// ── Layer 3: environment variables ─────────────────────────────────────
	envMap := buildEnvMap()
	if len(envMap) > 0 {
		if err := loadLayer(k, envMap, sources, SourceEnv); err != nil {
			return nil, fmt.Errorf("loading env vars: %w", err)
		}
	}

	// ── Layer 4: CLI flags ──────────────────────────────────────────────────
	if len(opts.CLIFlags) > 0 {
		if err := loadLayer(k, opts.CLIFlags, sources, SourceFlag); err != nil {
			return nil, fmt.Errorf("loading CLI flags: %w", err)
		}
	}

	final := flatMapToSettings(k)

	slog.Debug("config resolved",
		"source", final.Source,
		"output", final.Output,
		"failOn", final.FailOn,
		"prettyUrls", final.PrettyURLs,
	)

	return &ResolvedConfig{
		Settings:   final,
		Sources:    sources,
		ConfigFile: configPath,
	}, nil
}

// extractSettingsFlat parses a TOML config file into a raw Go map and
// returns a flat koanf-compatible map containing only the fields that are
// explicitly present in the TOML. Returns nil if the file does not exist.
func extractSettingsFlat(path string) (map[string]any, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			slog.Debug("config file not found, skipping", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	var raw map[string]interface{}
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	warnUndecodedKeys(meta, path)

	return flattenSettingsRaw(raw), nil
}

// flattenSettingsRaw converts a raw TOML map (as decoded by BurntSushi/toml
// into map[string]interface{}) into a flat koanf-compatible map. Only fields
// explicitly present in the raw map are included, so a field absent from
// unify.toml never shadows a value set by an earlier layer.
func flattenSettingsRaw(raw map[string]interface{}) map[string]any {
	flat := make(map[string]any)

	for _, key := range []string{"source", "output", "base_url", "fail_on", "log_level", "log_format", "host"} {
		if v, ok := raw[key]; ok {
			flat[key] = v
		}
	}

	for _, key := range []string{"auto_ignore", "pretty_urls", "clean", "sitemap", "minify", "verbose", "quiet", "dry_run"} {
		if v, ok := raw[key]; ok {
			flat[key] = v
		}
	}

	for _, key := range []string{"concurrency", "port"} {
		if v, ok := raw[key]; ok {
			flat[key] = toInt(v)
		}
	}

	for _, key := range []string{"render", "copy", "ignore", "ignore_render", "ignore_copy", "default_layout", "exclude_pattern"} {
		if v, ok := raw[key]; ok {
			flat[key] = rawToStringSlice(v)
		}
	}

	return flat
}

// rawToStringSlice converts a raw TOML array value ([]interface{}) into
// []string. Returns nil for unrecognised types.
func rawToStringSlice(v interface{}) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []interface{}:
		result := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	default:
		return nil
	}
}

// toInt normalizes a raw TOML scalar (BurntSushi/toml decodes integers as
// int64 into map[string]interface{}) to int.
func toInt(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

// loadLayer merges a flat map into k and marks every key in the map as
// originating from src. This approach correctly attributes source even when
// a later layer provides the same value as a prior layer (e.g. a CLI flag
// setting the same value as an env var).
func loadLayer(k *koanf.Koanf, m map[string]any, sources SourceMap, src Source) error {
	if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
		return fmt.Errorf("merge layer %s: %w", src.String(), err)
	}
	for key := range m {
		sources[key] = src
	}
	return nil
}

// settingsToFlatMap converts a Settings value to a flat map for koanf's
// confmap provider. All fields are included (used for the defaults layer,
// where every field has an authoritative default value).
func settingsToFlatMap(s Settings) map[string]any {
	return map[string]any{
		"render":          s.Render,
		"copy":            s.Copy,
		"ignore":          s.Ignore,
		"ignore_render":   s.IgnoreRender,
		"ignore_copy":     s.IgnoreCopy,
		"default_layout":  s.DefaultLayout,
		"auto_ignore":     s.AutoIgnore,
		"exclude_pattern": s.ExcludePattern,

		"source":      s.Source,
		"output":      s.Output,
		"pretty_urls": s.PrettyURLs,
		"base_url":    s.BaseURL,
		"clean":       s.Clean,
		"sitemap":     s.Sitemap,
		"fail_on":     s.FailOn,
		"minify":      s.Minify,
		"concurrency": s.Concurrency,

		"log_level":  s.LogLevel,
		"log_format": s.LogFormat,
		"verbose":    s.Verbose,
		"quiet":      s.Quiet,
		"dry_run":    s.DryRun,

		"port": s.Port,
		"host": s.Host,
	}
}

// flatMapToSettings converts the current koanf state into a Settings value.
func flatMapToSettings(k *koanf.Koanf) Settings {
	return Settings{
		Render:        k.Strings("render"),
		Copy:          k.Strings("copy"),
		Ignore:        k.Strings("ignore"),
		IgnoreRender:  k.Strings("ignore_render"),
		IgnoreCopy:    k.Strings("ignore_copy"),
		DefaultLayout: k.Strings("default_layout"),
		AutoIgnore:    k.Bool("auto_ignore"),
		ExcludePattern: k.Strings("exclude_pattern"),

		Source:      k.String("source"),
		Output:      k.String("output"),
		PrettyURLs:  k.Bool("pretty_urls"),
		BaseURL:     k.String("base_url"),
		Clean:       k.Bool("clean"),
		Sitemap:     k.Bool("sitemap"),
		FailOn:      k.String("fail_on"),
		Minify:      k.Bool("minify"),
		Concurrency: k.Int("concurrency"),

		LogLevel:  k.String("log_level"),
		LogFormat: k.String("log_format"),
		Verbose:   k.Bool("verbose"),
		Quiet:     k.Bool("quiet"),
		DryRun:    k.Bool("dry_run"),

		Port: k.Int("port"),
		Host: k.String("host"),
	}
}
