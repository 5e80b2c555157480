package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSettings_AllScalarFields(t *testing.T) {
	t.Parallel()

	s := DefaultSettings()

	assert.Equal(t, ".", s.Source)
	assert.Equal(t, "dist", s.Output)
	assert.True(t, s.AutoIgnore)
	assert.False(t, s.PrettyURLs)
	assert.Equal(t, "", s.BaseURL)
	assert.False(t, s.Clean)
	assert.False(t, s.Sitemap)
	assert.Equal(t, "error", s.FailOn)
	assert.False(t, s.Minify)
	assert.Equal(t, 0, s.Concurrency)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, "text", s.LogFormat)
	assert.Equal(t, 8080, s.Port)
	assert.Equal(t, "localhost", s.Host)
}

func TestDefaultSettings_SliceFieldsStartEmptyExceptIgnore(t *testing.T) {
	t.Parallel()

	s := DefaultSettings()

	assert.Equal(t, []string{".git", "node_modules"}, s.Ignore)
	assert.Empty(t, s.Render)
	assert.Empty(t, s.Copy)
	assert.Empty(t, s.IgnoreRender)
	assert.Empty(t, s.IgnoreCopy)
	assert.Empty(t, s.DefaultLayout)
	assert.Empty(t, s.ExcludePattern)
}

func TestDefaultSettings_IndependentCopies(t *testing.T) {
	t.Parallel()

	a := DefaultSettings()
	b := DefaultSettings()

	a.Ignore[0] = "mutated"
	assert.Equal(t, ".git", b.Ignore[0], "mutating one copy's slice must not affect another's")
}
