package config

// DefaultSettings returns a new Settings populated with the built-in
// defaults (spec.md §A.3). These are the lowest-precedence layer: a
// unify.toml, an env var, or a CLI flag each override a field here.
//
// Callers receive a fresh copy each time; mutating the returned value does
// not affect subsequent calls.
func DefaultSettings() Settings {
	return Settings{
		Source:     ".",
		Output:     "dist",
		AutoIgnore: true,
		PrettyURLs: false,
		Clean:      false,
		Sitemap:    false,
		FailOn:     "error",
		Minify:     false,
		Concurrency: 0,
		LogLevel:   "info",
		LogFormat:  "text",
		Port:       8080,
		Host:       "localhost",
		Ignore: []string{
			".git",
			"node_modules",
		},
	}
}
