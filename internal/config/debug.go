package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
)

// ConfigFileStatus represents the found/not-found status of the repo config
// file, along with a display-friendly path.
type ConfigFileStatus struct {
	Path  string `json:"path"`
	Found bool   `json:"found"`
}

// EnvVarStatus tracks whether a known UNIFY_* environment variable is
// currently set and active.
type EnvVarStatus struct {
	Name    string `json:"name"`
	Value   string `json:"value,omitempty"`
	Applied bool   `json:"applied"`
}

// ConfigEntry is one row in the resolved configuration table, pairing a flat
// field key with its display value and the source layer that provided it.
type ConfigEntry struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// DebugOutput is the complete structured result produced by BuildDebugOutput.
// It is consumed by FormatDebugOutput for human-readable text and by
// FormatDebugOutputJSON for machine-readable JSON.
type DebugOutput struct {
	ConfigFile ConfigFileStatus `json:"config_file"`
	EnvVars    []EnvVarStatus   `json:"env_vars"`
	Config     []ConfigEntry    `json:"config"`
}

// DebugOptions configures BuildDebugOutput.
type DebugOptions struct {
	// TargetDir is the directory to search for unify.toml. Defaults to ".".
	TargetDir string
	// ConfigFile overrides automatic discovery with an explicit path.
	ConfigFile string
	// CLIFlags holds explicit CLI flag overrides (highest precedence layer).
	CLIFlags map[string]any
}

// BuildDebugOutput collects all configuration debug information and returns a
// structured DebugOutput ready for rendering. It runs the full resolution
// pipeline and annotates each field with its origin.
func BuildDebugOutput(opts DebugOptions) (*DebugOutput, error) {
	targetDir := opts.TargetDir
	if targetDir == "" {
		targetDir = "."
	}

	resolved, err := Resolve(ResolveOptions{
		ConfigFile: opts.ConfigFile,
		TargetDir:  targetDir,
		CLIFlags:   opts.CLIFlags,
	})
	if err != nil {
		return nil, fmt.Errorf("resolving config: %w", err)
	}

	return &DebugOutput{
		ConfigFile: buildConfigFileStatus(resolved.ConfigFile, targetDir),
		EnvVars:    buildEnvVarStatuses(),
		Config:     buildConfigEntries(resolved.Settings, resolved.Sources),
	}, nil
}

// FormatDebugOutput renders a DebugOutput as a human-readable text report.
// The resolved configuration table is aligned using text/tabwriter.
//
// Example output:
//
//	Unify Configuration Debug
//	==========================
//
//	Config File:
//	  ./unify.toml (loaded)
//
//	Environment Variables:
//	  UNIFY_OUTPUT   = (not set)
//	  UNIFY_FAIL_ON  = error (applied)
//
//	Resolved Configuration:
//	  KEY      VALUE   SOURCE
//	  output   dist    repo
func FormatDebugOutput(out *DebugOutput, w io.Writer) error {
	fmt.Fprintln(w, "Unify Configuration Debug")
	fmt.Fprintln(w, "==========================")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Config File:")
	status := "not found"
	if out.ConfigFile.Found {
		status = "loaded"
	}
	fmt.Fprintf(w, "  %s (%s)\n", out.ConfigFile.Path, status)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment Variables:")
	if len(out.EnvVars) > 0 {
		maxLen := 0
		for _, ev := range out.EnvVars {
			if len(ev.Name) > maxLen {
				maxLen = len(ev.Name)
			}
		}
		for _, ev := range out.EnvVars {
			padded := ev.Name + strings.Repeat(" ", maxLen-len(ev.Name))
			if ev.Applied {
				fmt.Fprintf(w, "  %s = %s (applied)\n", padded, ev.Value)
			} else {
				fmt.Fprintf(w, "  %s = (not set)\n", padded)
			}
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Resolved Configuration:")
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "  KEY\tVALUE\tSOURCE")
	for _, ce := range out.Config {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", ce.Key, ce.Value, ce.Source)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing config table: %w", err)
	}

	return nil
}

// FormatDebugOutputJSON marshals a DebugOutput to indented JSON and writes it
// to w. The output includes a trailing newline.
func FormatDebugOutputJSON(out *DebugOutput, w io.Writer) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal debug output to JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// ── Internal builders ────────────────────────────────────────────────────────

func buildConfigFileStatus(resolvedPath, targetDir string) ConfigFileStatus {
	if resolvedPath == "" {
		return ConfigFileStatus{Path: displayDotPath(targetDir+"/unify.toml", targetDir), Found: false}
	}
	return ConfigFileStatus{Path: displayDotPath(resolvedPath, targetDir), Found: true}
}

// buildEnvVarStatuses returns the Applied/not-applied status of every known
// UNIFY_* environment variable in a consistent display order.
func buildEnvVarStatuses() []EnvVarStatus {
	known := []string{
		EnvSource, EnvOutput, EnvBaseURL, EnvPrettyURLs, EnvFailOn,
		EnvConcurrency, EnvLogLevel, EnvLogFormat, EnvDebug, EnvPort, EnvHost,
	}

	statuses := make([]EnvVarStatus, 0, len(known))
	for _, name := range known {
		value := os.Getenv(name)
		statuses = append(statuses, EnvVarStatus{
			Name:    name,
			Value:   value,
			Applied: value != "",
		})
	}
	return statuses
}

// buildConfigEntries constructs the ordered list of configuration rows from a
// resolved Settings and its source attribution map.
func buildConfigEntries(s Settings, sources SourceMap) []ConfigEntry {
	entries := make([]ConfigEntry, 0, 20)

	entries = append(entries, stringEntryField("source", s.Source, sources))
	entries = append(entries, stringEntryField("output", s.Output, sources))
	entries = append(entries, boolEntryField("auto_ignore", s.AutoIgnore, sources))
	entries = append(entries, boolEntryField("pretty_urls", s.PrettyURLs, sources))
	entries = append(entries, stringEntryField("base_url", s.BaseURL, sources))
	entries = append(entries, boolEntryField("clean", s.Clean, sources))
	entries = append(entries, boolEntryField("sitemap", s.Sitemap, sources))
	entries = append(entries, stringEntryField("fail_on", s.FailOn, sources))
	entries = append(entries, boolEntryField("minify", s.Minify, sources))
	entries = append(entries, intEntryField("concurrency", s.Concurrency, sources))
	entries = append(entries, stringEntryField("log_level", s.LogLevel, sources))

	entries = append(entries, sliceEntryField("render", s.Render, sources))
	entries = append(entries, sliceEntryField("copy", s.Copy, sources))
	entries = append(entries, sliceEntryField("ignore", s.Ignore, sources))
	entries = append(entries, sliceEntryField("ignore_render", s.IgnoreRender, sources))
	entries = append(entries, sliceEntryField("ignore_copy", s.IgnoreCopy, sources))
	entries = append(entries, sliceEntryField("default_layout", s.DefaultLayout, sources))
	entries = append(entries, sliceEntryField("exclude_pattern", s.ExcludePattern, sources))

	return entries
}

func stringEntryField(key, value string, sources SourceMap) ConfigEntry {
	if value == "" {
		return ConfigEntry{Key: key, Value: "(not set)", Source: "-"}
	}
	return ConfigEntry{Key: key, Value: value, Source: sourceLabel(sources, key)}
}

func boolEntryField(key string, value bool, sources SourceMap) ConfigEntry {
	return ConfigEntry{Key: key, Value: strconv.FormatBool(value), Source: sourceLabel(sources, key)}
}

func intEntryField(key string, value int, sources SourceMap) ConfigEntry {
	return ConfigEntry{Key: key, Value: strconv.Itoa(value), Source: sourceLabel(sources, key)}
}

func sliceEntryField(key string, values []string, sources SourceMap) ConfigEntry {
	abbreviated := abbreviateSlice(values)
	if abbreviated == "" {
		return ConfigEntry{Key: key, Value: "(not set)", Source: "-"}
	}
	return ConfigEntry{Key: key, Value: abbreviated, Source: sourceLabel(sources, key)}
}

// displayDotPath converts path to a "./" prefixed path relative to baseDir.
// Falls back to the absolute form of path when the relative path would
// escape baseDir (i.e. start with "..") or when any path computation fails.
func displayDotPath(path, baseDir string) string {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return path
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return absPath
	}
	return "./" + rel
}

// abbreviateSlice formats a string slice for compact single-line display.
//
//   - 0 items → "" (caller shows "(not set)")
//   - 1–3 items → "[item1, item2, item3]"
//   - >3 items → "[item1, item2, item3 ...N more]" where N = len-3
func abbreviateSlice(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1, 2, 3:
		return "[" + strings.Join(items, ", ") + "]"
	default:
		head := strings.Join(items[:3], ", ")
		more := strconv.Itoa(len(items) - 3)
		return "[" + head + " ..." + more + " more]"
	}
}
