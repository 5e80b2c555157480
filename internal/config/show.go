package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ShowOptions controls the rendering of a resolved settings object.
type ShowOptions struct {
	// Settings is the fully merged settings to display.
	Settings Settings

	// Sources maps flat field names to their origin layer.
	Sources SourceMap

	// ConfigFile is the unify.toml path that was loaded, or "" if none.
	ConfigFile string
}

// ShowSettings renders a resolved Settings value as annotated TOML. Each
// field is printed with an inline comment indicating which configuration
// layer provided its value (mirrors the teacher's debug-output style).
func ShowSettings(opts ShowOptions) string {
	var b strings.Builder

	if opts.ConfigFile != "" {
		fmt.Fprintf(&b, "# Config file: %s\n", opts.ConfigFile)
	} else {
		fmt.Fprintf(&b, "# Config file: (none found, using defaults)\n")
	}
	b.WriteString("\n")

	s := opts.Settings
	src := opts.Sources

	writeStringField(&b, "source", s.Source, sourceLabel(src, "source"))
	writeStringField(&b, "output", s.Output, sourceLabel(src, "output"))
	writeBoolField(&b, "auto_ignore", s.AutoIgnore, sourceLabel(src, "auto_ignore"))
	writeBoolField(&b, "pretty_urls", s.PrettyURLs, sourceLabel(src, "pretty_urls"))
	if s.BaseURL != "" {
		writeStringField(&b, "base_url", s.BaseURL, sourceLabel(src, "base_url"))
	}
	writeBoolField(&b, "clean", s.Clean, sourceLabel(src, "clean"))
	writeBoolField(&b, "sitemap", s.Sitemap, sourceLabel(src, "sitemap"))
	writeStringField(&b, "fail_on", s.FailOn, sourceLabel(src, "fail_on"))
	writeBoolField(&b, "minify", s.Minify, sourceLabel(src, "minify"))
	writeIntField(&b, "concurrency", s.Concurrency, sourceLabel(src, "concurrency"))
	writeStringField(&b, "log_level", s.LogLevel, sourceLabel(src, "log_level"))

	b.WriteString("\n")
	writeStringSliceField(&b, "render", s.Render, sourceLabel(src, "render"))
	writeStringSliceField(&b, "copy", s.Copy, sourceLabel(src, "copy"))
	writeStringSliceField(&b, "ignore", s.Ignore, sourceLabel(src, "ignore"))
	writeStringSliceField(&b, "ignore_render", s.IgnoreRender, sourceLabel(src, "ignore_render"))
	writeStringSliceField(&b, "ignore_copy", s.IgnoreCopy, sourceLabel(src, "ignore_copy"))
	writeStringSliceField(&b, "default_layout", s.DefaultLayout, sourceLabel(src, "default_layout"))
	writeStringSliceField(&b, "exclude_pattern", s.ExcludePattern, sourceLabel(src, "exclude_pattern"))

	return b.String()
}

// ShowSettingsJSON serializes the resolved settings to indented JSON.
func ShowSettingsJSON(s Settings) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal settings to JSON: %w", err)
	}
	return string(data), nil
}

// sourceLabel returns the Source.String() for a given flat key, defaulting
// to "default" when the key is absent from the SourceMap.
func sourceLabel(src SourceMap, key string) string {
	if s, ok := src[key]; ok {
		return s.String()
	}
	return "default"
}

func writeStringField(b *strings.Builder, key, value, source string) {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
	fmt.Fprintf(b, "%-16s = %-30s # %s\n", key, `"`+escaped+`"`, source)
}

func writeIntField(b *strings.Builder, key string, value int, source string) {
	fmt.Fprintf(b, "%-16s = %-30s # %s\n", key, strconv.Itoa(value), source)
}

func writeBoolField(b *strings.Builder, key string, value bool, source string) {
	fmt.Fprintf(b, "%-16s = %-30s # %s\n", key, strconv.FormatBool(value), source)
}

func writeStringSliceField(b *strings.Builder, key string, values []string, source string) {
	if len(values) == 0 {
		fmt.Fprintf(b, "%-16s = []%-27s # %s\n", key, "", source)
		return
	}
	fmt.Fprintf(b, "%-16s = [%-29s # %s\n", key, "", source)
	for _, v := range values {
		fmt.Fprintf(b, "  %q,\n", v)
	}
	b.WriteString("]\n")
}
