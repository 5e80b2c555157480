package config

import (
	"os"
	"strconv"
)

// Environment variable name constants for UNIFY_ prefixed overrides
// (spec.md §A.1, §A.3).
const (
	// EnvSource overrides the source directory.
	EnvSource = "UNIFY_SOURCE"
	// EnvOutput overrides the output directory.
	EnvOutput = "UNIFY_OUTPUT"
	// EnvBaseURL overrides the base URL used for absolute links/sitemaps.
	EnvBaseURL = "UNIFY_BASE_URL"
	// EnvPrettyURLs overrides the pretty-URL output-path rewrite.
	EnvPrettyURLs = "UNIFY_PRETTY_URLS"
	// EnvFailOn overrides the failure policy ("warning", "error", "security").
	EnvFailOn = "UNIFY_FAIL_ON"
	// EnvConcurrency overrides the worker pool size.
	EnvConcurrency = "UNIFY_CONCURRENCY"
	// EnvLogFormat overrides the log output format ("text" or "json").
	EnvLogFormat = "UNIFY_LOG_FORMAT"
	// EnvLogLevel overrides the log level directly.
	EnvLogLevel = "UNIFY_LOG_LEVEL"
	// EnvDebug forces debug-level logging when set to a truthy value,
	// taking precedence over --verbose/--quiet (spec.md §A.1).
	EnvDebug = "UNIFY_DEBUG"
	// EnvPort overrides the `serve` command's listen port.
	EnvPort = "UNIFY_PORT"
	// EnvHost overrides the `serve` command's listen host.
	EnvHost = "UNIFY_HOST"
)

// buildEnvMap reads UNIFY_* environment variables and returns a flat map
// suitable for use with a koanf confmap provider. Only non-empty env vars
// that parse successfully are included. Invalid numeric/boolean values are
// silently skipped so that a bad env var does not block the rest of the
// resolution pipeline.
func buildEnvMap() map[string]any {
	m := make(map[string]any)

	if v := os.Getenv(EnvSource); v != "" {
		m["source"] = v
	}
	if v := os.Getenv(EnvOutput); v != "" {
		m["output"] = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		m["base_url"] = v
	}
	if v := os.Getenv(EnvPrettyURLs); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			m["pretty_urls"] = b
		}
	}
	if v := os.Getenv(EnvFailOn); v != "" {
		m["fail_on"] = v
	}
	if v := os.Getenv(EnvConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m["concurrency"] = n
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		m["log_level"] = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m["port"] = n
		}
	}
	if v := os.Getenv(EnvHost); v != "" {
		m["host"] = v
	}

	return m
}

// EnvLogFormatValue returns the UNIFY_LOG_FORMAT override, or "" if unset.
// logging.go reads this directly rather than through buildEnvMap because
// log format must be resolvable before the rest of the config pipeline runs.
func EnvLogFormatValue() string {
	return os.Getenv(EnvLogFormat)
}

// EnvDebugSet reports whether UNIFY_DEBUG is set to a truthy value.
func EnvDebugSet() bool {
	v := os.Getenv(EnvDebug)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
