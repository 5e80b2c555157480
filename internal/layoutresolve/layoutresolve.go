// Package layoutresolve implements the Layout Resolver (spec.md §4.3): it
// discovers a page's layout chain by climbing the directory tree and
// consulting the short-name search order and the _includes/ fallback.
package layoutresolve

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/fwdslsh/unify/internal/domutil"
	"github.com/fwdslsh/unify/internal/pathutil"
	"github.com/fwdslsh/unify/internal/unifyerr"
)

// MaxChainDepth bounds layout chain length, per spec.md §4.3 "guard chain
// depth with a bound (suggested 16)".
const MaxChainDepth = 16

// autoDiscoverNames are the exact filenames recognized by auto-discovery in
// a directory, .html preferred over .htm.
var autoDiscoverNames = []string{"_layout.html", "_layout.htm"}

// fallbackNames are the global fallback layout filenames under
// <sourceRoot>/_includes/.
var fallbackNames = []string{"layout.html", "layout.htm"}

// Resolver resolves layout chains for pages under a single source tree.
type Resolver struct {
	sourceRoot string
	logger     *slog.Logger
}

// NewResolver constructs a Resolver rooted at sourceRoot (an absolute,
// OS-native path).
func NewResolver(sourceRoot string) *Resolver {
	return &Resolver{
		sourceRoot: sourceRoot,
		logger:     slog.Default().With("component", "layout-resolver"),
	}
}

func (r *Resolver) abs(relPosix string) string {
	return path.Join(r.sourceRoot, relPosix)
}

func (r *Resolver) exists(relPosix string) bool {
	info, err := os.Stat(r.abs(relPosix))
	return err == nil && !info.IsDir()
}

// ancestorDirs returns the POSIX-relative directories from dir up to and
// including the source root ("."), most-specific first.
func ancestorDirs(dir string) []string {
	dir = pathutil.ToPosix(dir)
	if dir == "" {
		dir = "."
	}
	var dirs []string
	for {
		dirs = append(dirs, dir)
		if dir == "." {
			break
		}
		parent := path.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return dirs
}

// discoverInDir looks for the auto-discovery filenames in dir (POSIX,
// relative to source root), preferring .html over .htm.
func (r *Resolver) discoverInDir(dir string) (string, bool) {
	for _, name := range autoDiscoverNames {
		candidate := pathutil.Join(dir, name)
		if dir == "." {
			candidate = name
		}
		if r.exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// fallbackLayout returns the _includes/ fallback layout, if any.
func (r *Resolver) fallbackLayout() (string, bool) {
	for _, name := range fallbackNames {
		candidate := pathutil.Join("_includes", name)
		if r.exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// FindLayoutForPage returns the innermost auto-discovered layout for a page
// in pageDir (POSIX, relative to source root): the nearest ancestor
// directory's _layout.html/.htm, or the _includes/ fallback if none exists.
// Returns ("", false) if neither is found (spec.md §8 layout resolver
// invariant).
func (r *Resolver) FindLayoutForPage(pageDir string) (string, bool) {
	for _, dir := range ancestorDirs(pageDir) {
		if found, ok := r.discoverInDir(dir); ok {
			return found, true
		}
	}
	return r.fallbackLayout()
}

// shortNameCandidates returns the ordered filename candidates considered for
// a short-name layout spec, preferring .layout. variants over plain
// variants, per spec.md §4.3.
func shortNameCandidates(name string) []string {
	return []string{
		"_" + name + ".layout.html",
		"_" + name + ".layout.htm",
		"_" + name + ".html",
		"_" + name + ".htm",
	}
}

// ResolveOverride resolves a layout specification string (from frontmatter
// `layout:` or a `data-unify` attribute) relative to pageDir, per spec.md
// §4.3's three spec forms. Returns the resolved path (POSIX, relative to
// source root) or an error if unresolvable.
func (r *Resolver) ResolveOverride(spec, pageDir string) (string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", fmt.Errorf("empty layout spec")
	}

	// Absolute-from-source.
	if strings.HasPrefix(spec, "/") {
		candidate := pathutil.ToPosix(strings.TrimPrefix(spec, "/"))
		if r.exists(candidate) {
			return candidate, nil
		}
		return "", fmt.Errorf("layout %q not found under source root", spec)
	}

	// Relative with extension or path separator.
	if strings.Contains(spec, "/") || path.Ext(spec) != "" {
		candidate := pathutil.ToPosix(pathutil.Join(pageDir, spec))
		if pageDir == "." || pageDir == "" {
			candidate = pathutil.ToPosix(spec)
		}
		if r.exists(candidate) {
			return candidate, nil
		}
		return "", fmt.Errorf("layout %q not found relative to %s", spec, pageDir)
	}

	// Short name: search same directory then each ancestor, then _includes/.
	for _, dir := range ancestorDirs(pageDir) {
		for _, name := range shortNameCandidates(spec) {
			candidate := name
			if dir != "." {
				candidate = pathutil.Join(dir, name)
			}
			if r.exists(candidate) {
				return candidate, nil
			}
		}
	}
	for _, prefix := range []string{"_" + spec, spec} {
		for _, ext := range []string{".html", ".htm"} {
			candidate := pathutil.Join("_includes", prefix+ext)
			if r.exists(candidate) {
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("short-name layout %q not found", spec)
}

// readDataUnify reads layoutPath (POSIX, relative to source root) and
// returns the data-unify attribute declared on its root <html>/<body>
// element, if any.
func (r *Resolver) readDataUnify(layoutPath string) (string, bool) {
	content, err := os.ReadFile(r.abs(layoutPath))
	if err != nil {
		r.logger.Debug("reading layout for data-unify lookup failed", "path", layoutPath, "error", err)
		return "", false
	}
	doc, err := domutil.ParseDocument(string(content))
	if err != nil {
		return "", false
	}
	return domutil.DataUnify(doc)
}

// GetLayoutChain resolves the full layout chain for a page, ordered
// innermost-first, per spec.md §4.3.
//
// When override is non-empty, it is resolved as the page's innermost layout
// and the chain continues purely by following each layout's own data-unify
// declaration (explicit chaining) -- auto-discovery directory climbing does
// not resume once a page has opted into an explicit override. When override
// is empty, the chain is built by directory climbing from pageDir to the
// source root, collecting each ancestor's auto-discovered layout; if any
// collected layout itself declares a data-unify parent that would not be the
// next ancestor's own auto-discovered layout, the chain switches to
// following that explicit declaration for the remainder, matching spec.md
// §4.3's "if a layout's own root element declares data-unify, recursively
// resolve its parent layout."
//
// Returns a recoverable *unifyerr.PageError (KindLayoutTooDeep) if the chain
// exceeds MaxChainDepth.
func (r *Resolver) GetLayoutChain(pagePath, override string) ([]string, error) {
	pageDir := path.Dir(pathutil.ToPosix(pagePath))
	if pageDir == "" {
		pageDir = "."
	}

	seen := make(map[string]bool)
	var chain []string

	add := func(p string) bool {
		if seen[p] {
			return false
		}
		seen[p] = true
		chain = append(chain, p)
		return true
	}

	followExplicit := func(start string) error {
		current := start
		for {
			if len(chain) > MaxChainDepth {
				return unifyerr.NewPageError(unifyerr.KindLayoutTooDeep, pagePath,
					fmt.Sprintf("layout chain exceeds maximum depth of %d", MaxChainDepth))
			}
			parentDir := path.Dir(current)
			parentSpec, ok := r.readDataUnify(current)
			if !ok {
				return nil
			}
			resolved, err := r.ResolveOverride(parentSpec, parentDir)
			if err != nil {
				r.logger.Debug("unresolvable parent layout override", "spec", parentSpec, "error", err)
				return nil
			}
			if !add(resolved) {
				return nil
			}
			current = resolved
		}
	}

	if override != "" {
		resolved, err := r.ResolveOverride(override, pageDir)
		if err != nil {
			r.logger.Debug("unresolvable layout override, falling back to auto-discovery", "spec", override, "error", err)
		} else {
			add(resolved)
			if err := followExplicit(resolved); err != nil {
				return chain, err
			}
			return chain, nil
		}
	}

	// Auto-discovery: directory climbing.
	for _, dir := range ancestorDirs(pageDir) {
		found, ok := r.discoverInDir(dir)
		if !ok {
			continue
		}
		if len(chain) >= MaxChainDepth {
			return chain, unifyerr.NewPageError(unifyerr.KindLayoutTooDeep, pagePath,
				fmt.Sprintf("layout chain exceeds maximum depth of %d", MaxChainDepth))
		}
		if !add(found) {
			continue
		}
		// If this layout declares its own explicit parent, switch to
		// explicit-chain mode for the rest of the walk.
		if parentSpec, ok := r.readDataUnify(found); ok {
			parentDir := path.Dir(found)
			resolved, err := r.ResolveOverride(parentSpec, parentDir)
			if err == nil && add(resolved) {
				if err := followExplicit(resolved); err != nil {
					return chain, err
				}
			}
			return chain, nil
		}
	}

	if len(chain) == 0 {
		if found, ok := r.fallbackLayout(); ok {
			add(found)
		}
	}

	return chain, nil
}

// GetLayoutDependencies returns the layout chain deduplicated in first-seen
// order -- GetLayoutChain already guarantees this, so this is a thin,
// documented alias used by the dependency tracker (spec.md §4.3).
func (r *Resolver) GetLayoutDependencies(pagePath, override string) ([]string, error) {
	return r.GetLayoutChain(pagePath, override)
}
