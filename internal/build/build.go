// Package build implements the Build Orchestrator (spec.md §2, §5): it
// walks the source tree, dispatches per-file work across a bounded worker
// pool, and aggregates classification, composition, and dependency-tracking
// results into a single build report.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fwdslsh/unify/internal/cascade"
	"github.com/fwdslsh/unify/internal/classify"
	"github.com/fwdslsh/unify/internal/depgraph"
	"github.com/fwdslsh/unify/internal/domutil"
	"github.com/fwdslsh/unify/internal/include"
	"github.com/fwdslsh/unify/internal/layoutresolve"
	"github.com/fwdslsh/unify/internal/markdown"
	"github.com/fwdslsh/unify/internal/security"
	"github.com/fwdslsh/unify/internal/unifyerr"
)

// FailOn controls which build conditions cause a non-zero exit, per
// spec.md §6/§7.
type FailOn string

const (
	FailOnNone     FailOn = ""
	FailOnWarning  FailOn = "warning"
	FailOnError    FailOn = "error"
	FailOnSecurity FailOn = "security"
)

// Config is the configuration the core build engine consumes, independent
// of how the CLI layer gathered it (spec.md §6).
type Config struct {
	SourceRoot string
	OutputRoot string
	Patterns   classify.PatternConfig
	PrettyURLs bool
	Clean      bool
	FailOn     FailOn
	Concurrency int
	Scanner    security.Scanner
}

// PageResult is one file's outcome.
type PageResult struct {
	Path      string
	Action    classify.Action
	Errors    []error
	Warnings  []security.Warning
	Cancelled bool
}

// Report aggregates an entire build's outcome.
type Report struct {
	Pages           []PageResult
	Classifications []classify.Classification
	DepStats        depgraph.Stats
	ExitCode        unifyerr.ExitCode
}

// Orchestrator runs builds against a single configuration.
type Orchestrator struct {
	cfg       Config
	classifier *classify.Classifier
	resolver  *layoutresolve.Resolver
	expander  *include.Expander
	tracker   *depgraph.Tracker
	logger    *slog.Logger

	cacheMu     sync.RWMutex
	layoutCache map[string]string
}

// New constructs an Orchestrator for cfg. It does not touch the filesystem.
func New(cfg Config) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.Scanner == nil {
		cfg.Scanner = security.NoopScanner{}
	}

	o := &Orchestrator{
		cfg:         cfg,
		classifier:  classify.NewClassifier(cfg.Patterns),
		resolver:    layoutresolve.NewResolver(cfg.SourceRoot),
		tracker:     depgraph.New(),
		logger:      slog.Default().With("component", "orchestrator"),
		layoutCache: make(map[string]string),
	}
	o.expander = include.NewExpander(cfg.SourceRoot, o.renderMarkdown)
	return o
}

func (o *Orchestrator) renderMarkdown(source string) (string, error) {
	page, err := markdown.Parse([]byte(source), "")
	if err != nil {
		return "", err
	}
	return page.BodyHTML, nil
}

// Build runs a full build and returns the aggregated report. A fatal error
// (missing source directory, inability to create the output directory,
// cancellation before any work starts) is returned as a *unifyerr.BuildError
// and no report is produced.
func (o *Orchestrator) Build(ctx context.Context) (*Report, error) {
	if err := classify.ValidateConfig(o.cfg.Patterns); err != nil {
		return nil, unifyerr.NewBuildError("invalid classifier configuration", err)
	}

	info, err := os.Stat(o.cfg.SourceRoot)
	if err != nil {
		return nil, unifyerr.NewBuildError("source directory missing", err)
	}
	if !info.IsDir() {
		return nil, unifyerr.NewBuildError("source path is not a directory", fmt.Errorf("%s", o.cfg.SourceRoot))
	}

	if o.cfg.Clean {
		if err := os.RemoveAll(o.cfg.OutputRoot); err != nil {
			return nil, unifyerr.NewBuildError("cleaning output directory", err)
		}
	}
	if err := os.MkdirAll(o.cfg.OutputRoot, 0o755); err != nil {
		return nil, unifyerr.NewBuildError("creating output directory", err)
	}

	classifications, err := o.classifier.ClassifyAll(o.cfg.SourceRoot)
	if err != nil {
		return nil, unifyerr.NewBuildError("classifying source tree", err)
	}

	select {
	case <-ctx.Done():
		return nil, unifyerr.NewBuildError("build cancelled", ctx.Err())
	default:
	}

	results := make([]PageResult, len(classifications))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)

	for i, cl := range classifications {
		i, cl := i, cl
		if cl.Action != classify.EMIT && cl.Action != classify.COPY {
			results[i] = PageResult{Path: cl.FilePath, Action: cl.Action}
			continue
		}
		g.Go(func() error {
			results[i] = o.processFile(gctx, cl)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{
		Pages:           results,
		Classifications: classifications,
		DepStats:        o.tracker.Stats(),
	}
	report.ExitCode = aggregateExitCode(report, o.cfg.FailOn)
	return report, nil
}

func (o *Orchestrator) processFile(ctx context.Context, cl classify.Classification) PageResult {
	select {
	case <-ctx.Done():
		return PageResult{Path: cl.FilePath, Action: cl.Action, Cancelled: true,
			Errors: []error{unifyerr.NewPageError(unifyerr.KindCancelled, cl.FilePath, "build cancelled")}}
	default:
	}

	if cl.Action == classify.COPY {
		return o.processCopy(cl)
	}
	return o.processEmit(ctx, cl)
}

func (o *Orchestrator) processCopy(cl classify.Classification) PageResult {
	src := path.Join(o.cfg.SourceRoot, cl.FilePath)
	data, err := os.ReadFile(src)
	if err != nil {
		return PageResult{Path: cl.FilePath, Action: cl.Action,
			Errors: []error{fmt.Errorf("reading %s: %w", cl.FilePath, err)}}
	}

	outPath := path.Join(o.cfg.OutputRoot, cl.FilePath)
	if err := writeFile(outPath, data); err != nil {
		return PageResult{Path: cl.FilePath, Action: cl.Action,
			Errors: []error{fmt.Errorf("writing %s: %w", cl.FilePath, err)}}
	}
	return PageResult{Path: cl.FilePath, Action: cl.Action}
}

func (o *Orchestrator) processEmit(ctx context.Context, cl classify.Classification) PageResult {
	result := PageResult{Path: cl.FilePath, Action: cl.Action}

	src := path.Join(o.cfg.SourceRoot, cl.FilePath)
	raw, err := os.ReadFile(src)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("reading %s: %w", cl.FilePath, err))
		return result
	}

	isMarkdown := classify.CategoryOf(cl.FilePath) == classify.CategoryMarkdown

	var bodyHTML, headHTML, override string
	var htmlAttrs, bodyAttrs map[string]string

	if isMarkdown {
		page, mdErr := markdown.Parse(raw, cl.FilePath)
		if mdErr != nil {
			result.Errors = append(result.Errors, unifyerr.NewPageError(
				unifyerr.KindMalformedFrontmatter, cl.FilePath, mdErr.Error()))
			return result
		}
		bodyHTML = page.BodyHTML
		headHTML = page.HeadContribution()
		override = page.Layout
		htmlAttrs = page.HTMLAttrs
		bodyAttrs = page.BodyAttrs
		if page.HeadInBody {
			result.Errors = append(result.Errors, unifyerr.NewPageError(
				unifyerr.KindHeadInBody, cl.FilePath,
				"markdown body contains a <head> element; move head-level markup to frontmatter"))
		}
	} else {
		bodyHTML, headHTML, override = splitHTMLPage(string(raw))
	}

	deps := o.expander.ExtractDependencies(bodyHTML, cl.FilePath)

	expanded, expandErrs := o.expander.Expand(bodyHTML, cl.FilePath)
	for _, e := range expandErrs {
		result.Errors = append(result.Errors, toPageError(cl.FilePath, e))
	}
	bodyHTML = expanded

	chain, chainErr := o.resolver.GetLayoutChain(cl.FilePath, override)
	if chainErr != nil {
		result.Errors = append(result.Errors, chainErr)
	}

	layoutContents := make([]string, 0, len(chain))
	for _, layoutPath := range chain {
		content, lerr := o.loadLayout(layoutPath)
		if lerr != nil {
			result.Errors = append(result.Errors, unifyerr.NewPageError(
				unifyerr.KindUnresolvedLayout, cl.FilePath, lerr.Error()))
			continue
		}
		layoutContents = append(layoutContents, content)
		deps = append(deps, path.Join(o.cfg.SourceRoot, layoutPath))
	}

	composeResult := cascade.Compose(cascade.Input{
		BodyHTML:  bodyHTML,
		HeadHTML:  headHTML,
		HTMLAttrs: htmlAttrs,
		BodyAttrs: bodyAttrs,
	}, layoutContents, o.cfg.Scanner)

	for _, e := range composeResult.Errors {
		result.Errors = append(result.Errors, toPageError(cl.FilePath, e))
	}
	result.Warnings = composeResult.Warnings

	o.tracker.Record(cl.FilePath, deps, composeResult.HTML)

	outPath := o.outputPath(cl.FilePath)
	if err := writeFile(outPath, []byte(composeResult.HTML)); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("writing %s: %w", cl.FilePath, err))
	}

	return result
}

// loadLayout reads and caches a layout file's contents by source-relative
// path. The cache is read-mostly: entries are inserted once and thereafter
// immutable, per spec.md §5 "layout cache... read-mostly".
func (o *Orchestrator) loadLayout(relPath string) (string, error) {
	o.cacheMu.RLock()
	if v, ok := o.layoutCache[relPath]; ok {
		o.cacheMu.RUnlock()
		return v, nil
	}
	o.cacheMu.RUnlock()

	data, err := os.ReadFile(path.Join(o.cfg.SourceRoot, relPath))
	if err != nil {
		return "", err
	}
	content := string(data)

	o.cacheMu.Lock()
	o.layoutCache[relPath] = content
	o.cacheMu.Unlock()
	return content, nil
}

// splitHTMLPage separates an HTML page's head-eligible elements from its
// body, and reads any data-unify layout override, without requiring the
// source to be a complete document -- spec.md §3's Page model treats
// declared layout the same way for HTML and Markdown sources. Every page is
// run through a full document parse, even a bare fragment with no
// <head>/<html> wrapper: the HTML5 tree construction algorithm relocates
// title/meta/link/script/style/base elements encountered in body content
// into the synthesized <head> on its own, so a fragment page that opens with
// e.g. <title>Post</title> gets the same head/body split as a complete
// document instead of leaving that element stranded in the body where the
// area scheme would silently drop it.
func splitHTMLPage(raw string) (bodyHTML, headHTML, override string) {
	doc, err := domutil.ParseDocument(raw)
	if err != nil {
		return raw, "", ""
	}
	if v, ok := domutil.DataUnify(doc); ok {
		override = v
	}
	headHTML, _ = domutil.InnerHTML(doc.Find("head").First())
	bodyHTML, _ = domutil.InnerHTML(doc.Find("body").First())
	return bodyHTML, headHTML, override
}

// outputPath computes the output-relative path for relPath, applying the
// prettyURLs rewrite rule (spec.md §6): a renderable X.html (except
// index.html) emits to X/index.html; Markdown inputs always emit .html.
func (o *Orchestrator) outputPath(relPath string) string {
	out := relPath
	if classify.CategoryOf(relPath) == classify.CategoryMarkdown {
		out = strings.TrimSuffix(relPath, path.Ext(relPath)) + ".html"
	}

	if o.cfg.PrettyURLs {
		base := path.Base(out)
		if base != "index.html" && strings.HasSuffix(base, ".html") {
			dir := path.Dir(out)
			name := strings.TrimSuffix(base, ".html")
			if dir == "." {
				out = path.Join(name, "index.html")
			} else {
				out = path.Join(dir, name, "index.html")
			}
		}
	}

	return path.Join(o.cfg.OutputRoot, out)
}

func writeFile(outPath string, data []byte) error {
	if err := os.MkdirAll(path.Dir(outPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}

func toPageError(filePath string, err error) error {
	switch e := err.(type) {
	case *include.CircularDependencyError:
		return unifyerr.NewPageError(unifyerr.KindCircularInclude, filePath, e.Error())
	case *include.MaxDepthExceededError:
		return unifyerr.NewPageError(unifyerr.KindMaxDepthExceeded, filePath, e.Error())
	default:
		return unifyerr.NewPageError(unifyerr.KindMissingInclude, filePath, err.Error())
	}
}

// aggregateExitCode consults failOn to decide the build's overall exit
// status, per spec.md §7.
func aggregateExitCode(report *Report, failOn FailOn) unifyerr.ExitCode {
	hasErrors, hasWarnings := false, false
	for _, p := range report.Pages {
		if len(p.Errors) > 0 {
			hasErrors = true
		}
		if len(p.Warnings) > 0 {
			hasWarnings = true
		}
	}

	if hasWarnings && failOn == FailOnSecurity {
		return unifyerr.ExitSecurity
	}
	if hasErrors && (failOn == FailOnError || failOn == FailOnWarning) {
		return unifyerr.ExitBuild
	}
	if hasWarnings && failOn == FailOnWarning {
		return unifyerr.ExitBuild
	}
	return unifyerr.ExitSuccess
}

// SortedPages returns report.Pages sorted lexicographically by path, for
// stable, deterministic reporting (spec.md §5).
func SortedPages(report *Report) []PageResult {
	out := make([]PageResult, len(report.Pages))
	copy(out, report.Pages)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
