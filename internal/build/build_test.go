package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwdslsh/unify/internal/classify"
	"github.com/fwdslsh/unify/internal/unifyerr"
)

func writeSourceFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func readOutputFile(t *testing.T, root, relPath string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(relPath)))
	require.NoError(t, err)
	return string(data)
}

func TestBuild_NoLayoutEmitsPageUnchanged(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()

	// Scenario 1 from spec.md §8.
	writeSourceFile(t, src, "index.html", "<h1>Hi</h1>")

	o := New(Config{SourceRoot: src, OutputRoot: out})
	report, err := o.Build(context.Background())
	require.NoError(t, err)
	require.Empty(t, flattenErrors(report))

	assert.Equal(t, "<h1>Hi</h1>", readOutputFile(t, out, "index.html"))
}

func TestBuild_CopiesAssetFilesVerbatim(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()

	writeSourceFile(t, src, "assets/site.css", "body { color: red; }")

	o := New(Config{SourceRoot: src, OutputRoot: out})
	report, err := o.Build(context.Background())
	require.NoError(t, err)
	require.Empty(t, flattenErrors(report))

	assert.Equal(t, "body { color: red; }", readOutputFile(t, out, "assets/site.css"))
}

func TestBuild_MarkdownPageRendersAndComposesWithLayout(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()

	writeSourceFile(t, src, "_layout.html", `<html><head><title>Site</title></head><body><main class="unify-content">default</main></body></html>`)
	writeSourceFile(t, src, "post.md", "---\ntitle: My Post\n---\n# Hello\n")

	// autoIgnore defaults to true at the configuration layer (spec.md §4.2);
	// set explicitly here since the orchestrator takes whatever Patterns it
	// is handed.
	o := New(Config{SourceRoot: src, OutputRoot: out, Patterns: classify.PatternConfig{AutoIgnore: true}})
	report, err := o.Build(context.Background())
	require.NoError(t, err)
	require.Empty(t, flattenErrors(report))

	rendered := readOutputFile(t, out, "post.html")
	assert.Contains(t, rendered, "<h1")
	assert.Contains(t, rendered, "Hello")
	assert.Contains(t, rendered, "<title>My Post</title>")
}

func TestBuild_FragmentHTMLPageWithoutHeadWrapperWinsOverLayoutTitle(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()

	// Scenario 2 from spec.md §8: blog/post.html has no <head>/<html>
	// wrapper at all, just a loose <title> ahead of the content area.
	writeSourceFile(t, src, "_layout.html", `<html><head><title>Site</title></head><body><main class="unify-content">default</main></body></html>`)
	writeSourceFile(t, src, "blog/post.html", `<title>Post</title><main class="unify-content"><p>Body</p></main>`)

	o := New(Config{SourceRoot: src, OutputRoot: out, Patterns: classify.PatternConfig{AutoIgnore: true}})
	report, err := o.Build(context.Background())
	require.NoError(t, err)
	require.Empty(t, flattenErrors(report))

	rendered := readOutputFile(t, out, "blog/post.html")
	assert.Equal(t, 1, strings.Count(rendered, "<title>"), "expected exactly one <title> element")
	assert.Contains(t, rendered, "<title>Post</title>")
	assert.NotContains(t, rendered, "<title>Site</title>")
}

func TestBuild_HeadTagInMarkdownBodyProducesRecoverableError(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()

	writeSourceFile(t, src, "post.md", "---\ntitle: My Post\n---\n# Hello\n\n<head><title>Nested</title></head>\n")

	o := New(Config{SourceRoot: src, OutputRoot: out})
	report, err := o.Build(context.Background())
	require.NoError(t, err)

	errs := flattenErrors(report)
	require.Len(t, errs, 1)
	var pageErr *unifyerr.PageError
	require.ErrorAs(t, errs[0], &pageErr)
	assert.Equal(t, unifyerr.KindHeadInBody, pageErr.Kind)
	assert.Equal(t, "post.md", pageErr.File)

	// Recoverable: the page still renders despite the error.
	rendered := readOutputFile(t, out, "post.html")
	assert.Contains(t, rendered, "Hello")
}

func TestBuild_PrettyURLsRewritesOutputPath(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()

	writeSourceFile(t, src, "about.html", "<p>About</p>")

	o := New(Config{SourceRoot: src, OutputRoot: out, PrettyURLs: true})
	report, err := o.Build(context.Background())
	require.NoError(t, err)
	require.Empty(t, flattenErrors(report))

	assert.Equal(t, "<p>About</p>", readOutputFile(t, out, "about/index.html"))
}

func TestBuild_MissingIncludeProducesWarningCommentNotFatalError(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()

	writeSourceFile(t, src, "index.html", `<p>before</p><!--#include file="missing.html" --><p>after</p>`)

	o := New(Config{SourceRoot: src, OutputRoot: out})
	report, err := o.Build(context.Background())
	require.NoError(t, err)

	rendered := readOutputFile(t, out, "index.html")
	assert.Contains(t, rendered, "WARNING")
	assert.Contains(t, rendered, "before")
	assert.Contains(t, rendered, "after")
}

func TestBuild_DependencyTrackerRecordsLayoutDependency(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()

	writeSourceFile(t, src, "_layout.html", `<html><head></head><body><main>default</main></body></html>`)
	writeSourceFile(t, src, "index.html", "<p>x</p>")

	o := New(Config{SourceRoot: src, OutputRoot: out, Patterns: classify.PatternConfig{AutoIgnore: true}})
	report, err := o.Build(context.Background())
	require.NoError(t, err)
	require.Empty(t, flattenErrors(report))

	affected := o.tracker.AffectedPages(filepath.Join(src, "_layout.html"))
	assert.Contains(t, affected, "index.html")
}

func TestBuild_FailOnErrorSetsNonZeroExit(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()

	writeSourceFile(t, src, "index.html", `<p><!--#include file="nope.html" --></p>`)

	o := New(Config{SourceRoot: src, OutputRoot: out, FailOn: FailOnError})
	report, err := o.Build(context.Background())
	require.NoError(t, err)

	// A missing include degrades to a warning comment but is still recorded
	// as a recoverable page error, so failOn=error trips here.
	assert.Equal(t, int(unifyerr.ExitBuild), int(report.ExitCode))
}

func TestBuild_CancelledContextBeforeStartIsFatal(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()
	writeSourceFile(t, src, "index.html", "<p>x</p>")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(Config{SourceRoot: src, OutputRoot: out})
	report, err := o.Build(ctx)
	require.Error(t, err)
	assert.Nil(t, report)
}

func TestBuild_MissingSourceDirectoryIsFatal(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	o := New(Config{SourceRoot: filepath.Join(out, "does-not-exist"), OutputRoot: out})
	report, err := o.Build(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
}

func TestSortedPages_OrdersByPath(t *testing.T) {
	t.Parallel()

	report := &Report{Pages: []PageResult{
		{Path: "z.html"},
		{Path: "a.html"},
		{Path: "m.html"},
	}}

	sorted := SortedPages(report)
	assert.Equal(t, []string{"a.html", "m.html", "z.html"},
		[]string{sorted[0].Path, sorted[1].Path, sorted[2].Path})
}

func flattenErrors(report *Report) []error {
	var out []error
	for _, p := range report.Pages {
		out = append(out, p.Errors...)
	}
	return out
}
