package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromString_ValidConfig(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromString(`
source = "site"
output = "public"
auto_ignore = false
pretty_urls = true
base_url = "https://example.com"
clean = true
sitemap = true
fail_on = "security"
minify = true
concurrency = 4
log_level = "debug"
render = ["*.xml"]
copy = ["assets/**"]
ignore = ["drafts/**"]
`, "inline")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "site", cfg.Source)
	assert.Equal(t, "public", cfg.Output)
	assert.False(t, cfg.AutoIgnore)
	assert.True(t, cfg.PrettyURLs)
	assert.Equal(t, "https://example.com", cfg.BaseURL)
	assert.True(t, cfg.Clean)
	assert.True(t, cfg.Sitemap)
	assert.Equal(t, "security", cfg.FailOn)
	assert.True(t, cfg.Minify)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"*.xml"}, cfg.Render)
	assert.Equal(t, []string{"assets/**"}, cfg.Copy)
	assert.Equal(t, []string{"drafts/**"}, cfg.Ignore)
}

func TestLoadFromString_MinimalConfig(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromString(`output = "dist"`, "minimal")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "dist", cfg.Output)
	assert.Empty(t, cfg.Render)
}

func TestLoadFromString_EmptyConfig(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromString("", "empty")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "", cfg.Output)
}

func TestLoadFromString_InvalidSyntax(t *testing.T) {
	t.Parallel()

	_, err := LoadFromString(`output = `, "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestLoadFromString_UnknownKeysWarnNotError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	prevHandler := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prevHandler)

	cfg, err := LoadFromString(`
output = "dist"
totally_unknown_field = "surprise"
`, "forward-compat")
	require.NoError(t, err, "unknown keys must not cause a hard error")
	require.NotNil(t, cfg)
	assert.Equal(t, "dist", cfg.Output)

	assert.Contains(t, buf.String(), "unknown config keys will be ignored")
	assert.Contains(t, buf.String(), "totally_unknown_field")
}

func TestLoadFromString_NoWarningWhenAllKeysKnown(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	prevHandler := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prevHandler)

	_, err := LoadFromString(`output = "dist"
render = ["*.html"]`, "clean")
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "unknown config keys")
}

func TestLoadFromFile_NonExistentFile(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile("/nonexistent/path/unify.toml")
	require.Error(t, err)
}

func TestLoadFromFile_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "unify.toml")
	content := "output = \"built\"\nminify = true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "built", cfg.Output)
	assert.True(t, cfg.Minify)
}
