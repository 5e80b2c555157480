package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// validFailOn lists the only accepted values for Settings.FailOn. An empty
// string is treated the same as "none".
var validFailOn = map[string]bool{
	"":         true,
	"none":     true,
	"warning":  true,
	"error":    true,
	"security": true,
}

// validLogLevels lists the only accepted values for Settings.LogLevel.
var validLogLevels = map[string]bool{
	"":      true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate inspects cfg and returns a slice of ValidationErrors describing
// hard errors and warnings found in the configuration. It does not stop at
// the first error; all findings are accumulated before returning.
//
// The returned slice is nil when no issues are found. Each element carries
// a Severity field of either "error" or "warning". Validate does not modify
// cfg.
func Validate(cfg *Config) []ValidationError {
	if cfg == nil {
		return nil
	}

	var results []ValidationError
	s := cfg.Settings

	// ── Hard errors ────────────────────────────────────────────────────────

	if !validFailOn[s.FailOn] {
		results = append(results, ValidationError{
			Severity: "error",
			Field:    "fail_on",
			Message:  fmt.Sprintf("fail_on %q is invalid", s.FailOn),
			Suggest:  "Valid values: none, warning, error, security",
		})
	}

	if !validLogLevels[s.LogLevel] {
		results = append(results, ValidationError{
			Severity: "error",
			Field:    "log_level",
			Message:  fmt.Sprintf("log_level %q is invalid", s.LogLevel),
			Suggest:  "Valid values: debug, info, warn, error",
		})
	}

	if s.Concurrency < 0 {
		results = append(results, ValidationError{
			Severity: "error",
			Field:    "concurrency",
			Message:  fmt.Sprintf("concurrency %d is negative", s.Concurrency),
			Suggest:  "Set concurrency to a positive integer or 0 to use runtime.NumCPU()",
		})
	}

	if s.Port < 0 || s.Port > 65535 {
		results = append(results, ValidationError{
			Severity: "error",
			Field:    "port",
			Message:  fmt.Sprintf("port %d is out of range", s.Port),
			Suggest:  "Set port to a value between 0 and 65535",
		})
	}

	results = append(results, validateGlobPatterns(s)...)

	// ── Warnings ───────────────────────────────────────────────────────────

	results = append(results, warnPatternOverlap(s)...)

	if s.Output != "" {
		if strings.HasPrefix(s.Output, "../") || filepath.IsAbs(s.Output) {
			results = append(results, ValidationError{
				Severity: "warning",
				Field:    "output",
				Message:  fmt.Sprintf("output path %q is outside the source directory tree", s.Output),
				Suggest:  "Use a relative path within the project directory, e.g. \"dist\"",
			})
		}
	}

	if len(results) > 0 {
		slog.Debug("config validation complete", "total_issues", len(results))
	}

	return results
}

// validateGlobPatterns validates every glob pattern list in s and returns
// errors for any syntactically invalid pattern.
func validateGlobPatterns(s Settings) []ValidationError {
	var results []ValidationError

	lists := []struct {
		field    string
		patterns []string
	}{
		{"render", s.Render},
		{"copy", s.Copy},
		{"ignore", s.Ignore},
		{"ignore_render", s.IgnoreRender},
		{"ignore_copy", s.IgnoreCopy},
		{"exclude_pattern", s.ExcludePattern},
	}

	for _, list := range lists {
		for i, pattern := range list.patterns {
			body := strings.TrimPrefix(pattern, "!")
			if err := validateGlobPattern(body); err != nil {
				results = append(results, ValidationError{
					Severity: "error",
					Field:    fmt.Sprintf("%s[%d]", list.field, i),
					Message:  fmt.Sprintf("invalid glob pattern %q: %s", pattern, err.Error()),
					Suggest:  "Use doublestar glob syntax, e.g. \"**/*.html\" or \"assets/**\"",
				})
			}
		}
	}

	return results
}

// validateGlobPattern checks whether pattern is syntactically valid
// according to the doublestar library.
func validateGlobPattern(pattern string) error {
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("syntax error in pattern %q", pattern)
	}
	return nil
}

// warnPatternOverlap returns a warning when the same pattern string appears
// in both render and ignore_render, since the outcome then depends
// entirely on classifier tier precedence rather than the file being
// readable from the config alone (spec.md §4.2's documented render-wins
// tie-break still applies -- this is a readability warning, not an error).
func warnPatternOverlap(s Settings) []ValidationError {
	if len(s.Render) == 0 {
		return nil
	}
	renderSet := make(map[string]bool, len(s.Render))
	for _, p := range s.Render {
		renderSet[p] = true
	}

	var results []ValidationError
	for i, p := range s.IgnoreRender {
		if renderSet[p] {
			results = append(results, ValidationError{
				Severity: "warning",
				Field:    fmt.Sprintf("ignore_render[%d]", i),
				Message:  fmt.Sprintf("pattern %q is in both render and ignore_render; render always wins", p),
				Suggest:  fmt.Sprintf("Remove %q from ignore_render or render to avoid confusion", p),
			})
		}
	}
	return results
}

// Lint runs all Validate checks and additionally flags patterns with no
// file-extension suffix in the ignore/copy sets, since such a pattern
// matches every file under its directory regardless of type -- a common
// misconfiguration when the author meant a narrower match.
//
// The returned slice is nil when no issues are found.
func Lint(cfg *Config) []LintResult {
	if cfg == nil {
		return nil
	}

	var results []LintResult
	for _, ve := range Validate(cfg) {
		results = append(results, LintResult{ValidationError: ve})
	}

	results = append(results, lintNoExtPatterns(cfg.Settings)...)
	return results
}

// lintNoExtPatterns detects ignore/copy patterns that contain no
// file-extension-like suffix.
func lintNoExtPatterns(s Settings) []LintResult {
	var results []LintResult

	lists := []struct {
		field    string
		patterns []string
	}{
		{"ignore", s.Ignore},
		{"copy", s.Copy},
	}

	for _, list := range lists {
		for i, pattern := range list.patterns {
			if !patternHasExtension(pattern) {
				results = append(results, LintResult{
					ValidationError: ValidationError{
						Severity: "warning",
						Field:    fmt.Sprintf("%s[%d]", list.field, i),
						Message:  fmt.Sprintf("pattern %q has no file extension; it will match files of any type", pattern),
						Suggest:  "Add an extension suffix (e.g. \"assets/**/*.css\") unless matching all file types is intentional",
					},
					Code: "no-ext-match",
				})
			}
		}
	}

	return results
}

// patternHasExtension reports whether pattern contains a dot after the last
// path separator, indicating it matches a specific file extension. This is
// a heuristic, not a precise check.
func patternHasExtension(pattern string) bool {
	last := pattern
	if idx := strings.LastIndex(pattern, "/"); idx >= 0 {
		last = pattern[idx+1:]
	}
	dotIdx := strings.LastIndex(last, ".")
	if dotIdx < 0 {
		return false
	}
	if dotIdx == 0 && !strings.Contains(last[1:], ".") {
		return false
	}
	return true
}
