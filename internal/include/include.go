// Package include implements the Include Expander (spec.md §4.4): it expands
// server-side include directives recursively, guarding against circular
// dependencies and excessive nesting.
package include

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/fwdslsh/unify/internal/pathutil"
	"github.com/fwdslsh/unify/internal/unifyerr"
)

// MaxDepth bounds recursive include nesting, per spec.md §4.4 "suggested 10".
const MaxDepth = 10

// directiveRE matches exactly the two forms spec.md §3 and §4.4 define:
// <!--#include file="P" --> and <!--#include virtual="P" -->. The pattern
// is a static, non-backtracking shape (no nested quantifiers) and the
// captured path is bounded so a malicious file cannot force super-linear
// matching cost (spec.md §9).
var directiveRE = regexp.MustCompile(`<!--#include\s+(file|virtual)="([^"<>]{0,4096})"\s*-->`)

// MarkdownRenderer renders Markdown source to HTML. It is the opaque
// transform boundary spec.md §1 describes; the include expander calls it
// when an included file has a .md extension, but never parses Markdown
// itself.
type MarkdownRenderer func(source string) (string, error)

// Expander expands include directives against a single source tree.
type Expander struct {
	sourceRoot string
	renderMD   MarkdownRenderer
	logger     *slog.Logger
}

// NewExpander constructs an Expander rooted at sourceRoot. renderMD may be
// nil, in which case Markdown includes are substituted verbatim (unrendered)
// rather than failing the expansion.
func NewExpander(sourceRoot string, renderMD MarkdownRenderer) *Expander {
	return &Expander{
		sourceRoot: sourceRoot,
		renderMD:   renderMD,
		logger:     slog.Default().With("component", "include-expander"),
	}
}

// CircularDependencyError names the files that form an include cycle.
type CircularDependencyError struct {
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular include dependency: %s", strings.Join(e.Cycle, " -> "))
}

// MaxDepthExceededError reports nesting beyond MaxDepth.
type MaxDepthExceededError struct {
	Path  string
	Depth int
}

func (e *MaxDepthExceededError) Error() string {
	return fmt.Sprintf("include nesting exceeds maximum depth of %d at %s", e.Depth, e.Path)
}

func (x *Expander) abs(relPosix string) string {
	return path.Join(x.sourceRoot, relPosix)
}

// resolveDirective computes the source-relative POSIX path an include
// directive refers to. kind is "file" (relative to the including file's
// directory) or "virtual" (relative to source root, leading "/" optional).
func resolveDirective(kind, raw, includingFile string) string {
	raw = pathutil.ToPosix(raw)
	switch kind {
	case "virtual":
		return strings.TrimPrefix(raw, "/")
	default: // "file"
		dir := path.Dir(pathutil.ToPosix(includingFile))
		if dir == "." {
			return raw
		}
		return path.Clean(path.Join(dir, raw))
	}
}

// Expand expands all include directives in content, which was read from
// filePath (source-relative, POSIX). It returns the expanded text and any
// recoverable errors encountered. A missing include is replaced by an inline
// warning comment (spec.md §4.4 step 6), expansion continues, and it is also
// reported as a *unifyerr.PageError of kind KindMissingInclude.
func (x *Expander) Expand(content, filePath string) (string, []error) {
	visited := []string{pathutil.ToPosix(filePath)}
	return x.expand(content, filePath, visited, 0)
}

func (x *Expander) expand(content, filePath string, visited []string, depth int) (string, []error) {
	var errs []error

	if depth > MaxDepth {
		return content, []error{&MaxDepthExceededError{Path: filePath, Depth: MaxDepth}}
	}

	result := directiveRE.ReplaceAllStringFunc(content, func(directive string) string {
		m := directiveRE.FindStringSubmatch(directive)
		kind, raw := m[1], m[2]
		target := resolveDirective(kind, raw, filePath)

		if contains(visited, target) {
			cycle := append(append([]string{}, visited...), target)
			errs = append(errs, &CircularDependencyError{Cycle: cycle})
			x.logger.Debug("circular include detected", "cycle", cycle)
			return ""
		}

		body, readErr := os.ReadFile(x.abs(target))
		if readErr != nil {
			x.logger.Debug("include target not found", "target", target, "error", readErr)
			errs = append(errs, unifyerr.NewPageError(unifyerr.KindMissingInclude, filePath,
				fmt.Sprintf("include file not found: %s", target)))
			return fmt.Sprintf("<!-- WARNING: Include file not found: %s -->", target)
		}

		text := string(body)
		if strings.HasSuffix(strings.ToLower(target), ".md") && x.renderMD != nil {
			rendered, mdErr := x.renderMD(text)
			if mdErr != nil {
				errs = append(errs, fmt.Errorf("rendering markdown include %s: %w", target, mdErr))
				return fmt.Sprintf("<!-- WARNING: Failed to render include: %s -->", target)
			}
			text = rendered
		}

		nextVisited := append(append([]string{}, visited...), target)
		expanded, childErrs := x.expand(text, target, nextVisited, depth+1)
		errs = append(errs, childErrs...)
		return expanded
	})

	return result, errs
}

// extractDependencies walks content the same way Expand does, but only
// records the paths it would attempt to read -- it does not substitute
// content or invoke the Markdown renderer. The walk stops following a
// branch once a path repeats (the point where Expand's cycle guard would
// fire), per spec.md §4.4 "extractDependencies returns the set of paths
// that expand would attempt to read (before cycle guard fires)". Returned
// paths are absolute filesystem paths, source-relative order of first
// encounter.
func (x *Expander) ExtractDependencies(content, filePath string) []string {
	var deps []string
	seenOrder := make(map[string]bool)
	visited := []string{pathutil.ToPosix(filePath)}
	x.collectDeps(content, filePath, visited, 0, &deps, seenOrder)
	return deps
}

func (x *Expander) collectDeps(content, filePath string, visited []string, depth int, deps *[]string, seen map[string]bool) {
	if depth > MaxDepth {
		return
	}
	for _, m := range directiveRE.FindAllStringSubmatch(content, -1) {
		kind, raw := m[1], m[2]
		target := resolveDirective(kind, raw, filePath)
		if contains(visited, target) {
			continue
		}
		abs := x.abs(target)
		if !seen[abs] {
			seen[abs] = true
			*deps = append(*deps, abs)
		}
		body, err := os.ReadFile(abs)
		if err != nil {
			continue
		}
		nextVisited := append(append([]string{}, visited...), target)
		x.collectDeps(string(body), target, nextVisited, depth+1, deps, seen)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
