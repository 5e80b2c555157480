// Package classify implements the File Classifier (spec.md §4.2): it assigns
// every file discovered under a source tree an action -- EMIT, COPY, SKIP, or
// IGNORED -- using a three-tier precedence resolution over user-supplied
// glob pattern sets.
package classify

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fwdslsh/unify/internal/pathutil"
)

// Action is the verb assigned to a classified file.
type Action string

const (
	EMIT    Action = "EMIT"
	COPY    Action = "COPY"
	SKIP    Action = "SKIP"
	IGNORED Action = "IGNORED"
)

// Tier identifies the precedence level that produced a Classification.
type Tier int

const (
	ExplicitOverrides Tier = 1
	IgnoreRules       Tier = 2
	DefaultBehavior   Tier = 3
)

// ExtCategory categorizes a file by extension, per spec.md §3 File Record.
type ExtCategory string

const (
	CategoryHTML     ExtCategory = "html"
	CategoryMarkdown ExtCategory = "markdown"
	CategoryAsset    ExtCategory = "asset"
	CategoryOther    ExtCategory = "other"
)

var htmlExts = map[string]bool{".html": true, ".htm": true}
var markdownExts = map[string]bool{".md": true, ".markdown": true}
var assetExts = map[string]bool{
	".css": true, ".js": true, ".mjs": true, ".json": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true, ".webp": true, ".ico": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true, ".otf": true,
	".mp4": true, ".webm": true, ".mp3": true, ".wav": true,
	".pdf": true, ".txt": true, ".xml": true, ".csv": true,
}

// CategoryOf returns the extension category for a POSIX-form path.
func CategoryOf(posixPath string) ExtCategory {
	ext := strings.ToLower(path.Ext(posixPath))
	switch {
	case htmlExts[ext]:
		return CategoryHTML
	case markdownExts[ext]:
		return CategoryMarkdown
	case assetExts[ext]:
		return CategoryAsset
	default:
		return CategoryOther
	}
}

// IsRenderable reports whether a file of this category is a page source
// (HTML or Markdown).
func (c ExtCategory) IsRenderable() bool {
	return c == CategoryHTML || c == CategoryMarkdown
}

// Classification is the single per-file verdict produced by Classify.
type Classification struct {
	FilePath string
	Action   Action
	Reason   string
	Tier     Tier
}

// PatternConfig holds the raw pattern sets from spec.md §3. All fields are
// optional.
type PatternConfig struct {
	Copy          []string
	Ignore        []string
	Render        []string
	IgnoreRender  []string
	IgnoreCopy    []string
	DefaultLayout []string // "glob=layoutPath" pairs, or a single bare fallback path
	AutoIgnore    bool
	// AssetDirNames lists directory-name segments (case-insensitive) that
	// mark an "assets"-style directory for tier-3 default COPY behavior.
	// Defaults to {"assets", "static", "public"} when nil.
	AssetDirNames []string
}

// Classifier evaluates the three-tier classification algorithm for a single
// source tree. Construct once per build via NewClassifier and reuse for
// every discovered file.
type Classifier struct {
	copy         *pathutil.PatternList
	ignore       *pathutil.PatternList
	render       *pathutil.PatternList
	ignoreRender *pathutil.PatternList
	ignoreCopy   *pathutil.PatternList

	autoIgnore bool
	assetDirs  map[string]bool

	mu       sync.RWMutex
	layouts  map[string]bool
	includes map[string]bool

	logger *slog.Logger
}

// NewClassifier compiles a PatternConfig into a Classifier. Invalid patterns
// are recorded on Warnings() rather than failing construction (spec.md §4.2
// "invalid pattern -> record as warning, skip pattern, continue"); NUL bytes
// or oversize patterns are likewise recorded as warnings since they are
// detected by the same per-pattern validation path. Configuration-level
// rejection (before any file is processed) is the caller's responsibility --
// see ValidateConfig.
func NewClassifier(cfg PatternConfig) *Classifier {
	assetDirs := cfg.AssetDirNames
	if assetDirs == nil {
		assetDirs = []string{"assets", "static", "public"}
	}
	dirSet := make(map[string]bool, len(assetDirs))
	for _, d := range assetDirs {
		dirSet[strings.ToLower(d)] = true
	}

	return &Classifier{
		copy:         pathutil.NewPatternList(cfg.Copy),
		ignore:       pathutil.NewPatternList(cfg.Ignore),
		render:       pathutil.NewPatternList(cfg.Render),
		ignoreRender: pathutil.NewPatternList(cfg.IgnoreRender),
		ignoreCopy:   pathutil.NewPatternList(cfg.IgnoreCopy),
		autoIgnore:   cfg.AutoIgnore,
		assetDirs:    dirSet,
		layouts:      make(map[string]bool),
		includes:     make(map[string]bool),
		logger:       slog.Default().With("component", "classifier"),
	}
}

// Warnings aggregates pattern-compilation warnings across all pattern sets.
func (c *Classifier) Warnings() []string {
	var out []string
	for _, pl := range []*pathutil.PatternList{c.copy, c.ignore, c.render, c.ignoreRender, c.ignoreCopy} {
		out = append(out, pl.Warnings()...)
	}
	return out
}

// RegisterLayout marks path (source-relative, POSIX form) as a layout file.
// Registered layout files are auto-ignored during classification (spec.md
// §4.2 tier 2) so they never appear twice in the output tree.
func (c *Classifier) RegisterLayout(relPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layouts[pathutil.ToPosix(relPath)] = true
}

// RegisterInclude marks path as an include file, auto-ignored the same way
// as a registered layout.
func (c *Classifier) RegisterInclude(relPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.includes[pathutil.ToPosix(relPath)] = true
}

func (c *Classifier) isRegistered(relPath string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.layouts[relPath] || c.includes[relPath]
}

// hasUnderscoreSegment reports whether the file name or any ancestor
// directory component begins with "_".
func hasUnderscoreSegment(posixPath string) bool {
	for _, seg := range strings.Split(posixPath, "/") {
		if strings.HasPrefix(seg, "_") {
			return true
		}
	}
	return false
}

func (c *Classifier) isAssetDir(posixPath string) bool {
	dir := path.Dir(posixPath)
	if dir == "." {
		return false
	}
	for _, seg := range strings.Split(dir, "/") {
		if c.assetDirs[strings.ToLower(seg)] {
			return true
		}
	}
	return false
}

// Classify assigns a Classification to relPath using the three-tier
// algorithm from spec.md §4.2.
func (c *Classifier) Classify(relPath string) Classification {
	p := pathutil.ToPosix(relPath)
	cat := CategoryOf(p)

	// Tier 1: explicit overrides. Render always wins over copy (spec.md §4.2
	// tie-break, and the Open Question decision in DESIGN.md: render always
	// beats ignoreRender regardless of pattern-set evaluation order).
	if c.render.MatchAny(p) {
		return Classification{FilePath: p, Action: EMIT, Reason: "--render", Tier: ExplicitOverrides}
	}
	if c.copy.MatchAny(p) {
		return Classification{FilePath: p, Action: COPY, Reason: "--copy", Tier: ExplicitOverrides}
	}

	// Tier 2: ignore rules.
	if c.ignore.Match(p) {
		return Classification{FilePath: p, Action: IGNORED, Reason: "--ignore", Tier: IgnoreRules}
	}
	if cat.IsRenderable() && c.ignoreRender.Match(p) {
		return Classification{FilePath: p, Action: IGNORED, Reason: "--ignore-render", Tier: IgnoreRules}
	}
	if !cat.IsRenderable() && c.ignoreCopy.Match(p) {
		return Classification{FilePath: p, Action: IGNORED, Reason: "--ignore-copy", Tier: IgnoreRules}
	}
	if c.autoIgnore {
		if hasUnderscoreSegment(p) {
			return Classification{FilePath: p, Action: IGNORED, Reason: "auto-ignore (underscore)", Tier: IgnoreRules}
		}
		if c.isRegistered(p) {
			return Classification{FilePath: p, Action: IGNORED, Reason: "auto-ignore (registered layout/include)", Tier: IgnoreRules}
		}
	}

	// Tier 3: defaults.
	if cat.IsRenderable() {
		return Classification{FilePath: p, Action: EMIT, Reason: "default (renderable)", Tier: DefaultBehavior}
	}
	if c.isAssetDir(p) {
		return Classification{FilePath: p, Action: COPY, Reason: "default (assets directory)", Tier: DefaultBehavior}
	}
	return Classification{FilePath: p, Action: SKIP, Reason: "default (no matching rule)", Tier: DefaultBehavior}
}

// ClassifyAll walks root and classifies every regular file found, returning
// classifications sorted lexicographically by path for deterministic
// output (spec.md §5 "file-classification order does not affect output").
// Directories are not classified; they are only traversed.
func (c *Classifier) ClassifyAll(root string) ([]Classification, error) {
	var results []Classification
	err := filepath.WalkDir(root, func(fullPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			c.logger.Debug("walk error", "path", fullPath, "error", walkErr)
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := pathutil.Rel(root, fullPath)
		if err != nil {
			return nil
		}
		results = append(results, c.Classify(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking source tree %s: %w", root, err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].FilePath < results[j].FilePath
	})
	return results, nil
}

// ValidateConfig rejects a PatternConfig before any file is processed when it
// contains patterns with NUL bytes or exceeding the maximum length, per
// spec.md §4.2 "NUL byte or oversize pattern -> reject configuration before
// classification."
func ValidateConfig(cfg PatternConfig) error {
	all := [][]string{cfg.Copy, cfg.Ignore, cfg.Render, cfg.IgnoreRender, cfg.IgnoreCopy}
	for _, set := range all {
		for _, raw := range set {
			body := strings.TrimPrefix(raw, "!")
			if strings.IndexByte(body, 0) >= 0 {
				return fmt.Errorf("pattern %q contains a NUL byte", raw)
			}
			if len(body) > pathutil.MaxPatternLength {
				return fmt.Errorf("pattern %q exceeds maximum length of %d bytes", raw, pathutil.MaxPatternLength)
			}
		}
	}
	return nil
}
