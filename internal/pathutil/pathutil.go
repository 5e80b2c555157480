// Package pathutil normalizes source-tree paths to POSIX form and evaluates
// ordered glob pattern lists with negation, the shared substrate the file
// classifier and layout resolver build on.
package pathutil

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MaxPatternLength is the hard cap on a single pattern's length, guarding
// against pathological input before it ever reaches the glob engine.
const MaxPatternLength = 4096

// MaxPatternComplexity bounds the number of brace/class expansion points a
// pattern may contain. Patterns above this are rejected rather than risk
// super-linear backtracking during matching.
const MaxPatternComplexity = 64

// ToPosix normalizes path separators to forward slash for matching and
// comparison, trimming a leading "./". The OS-native form is preserved only
// at filesystem I/O call sites; every other part of unify operates on the
// POSIX form this function returns.
func ToPosix(p string) string {
	p = filepath.ToSlash(p)
	p = strings.TrimPrefix(p, "./")
	return p
}

// Rel returns the POSIX-form path of target relative to root. Both inputs
// may use OS-native separators.
func Rel(root, target string) (string, error) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", fmt.Errorf("computing relative path of %s from %s: %w", target, root, err)
	}
	return ToPosix(rel), nil
}

// ValidatePattern checks a pattern string for safety before it is ever
// compiled into a matcher: rejects NUL bytes, oversize patterns, and
// patterns whose expansion complexity exceeds MaxPatternComplexity (a
// defense against ReDoS-style catastrophic matching cost). It does not
// check doublestar syntax validity; callers should also call
// doublestar.ValidatePattern.
func ValidatePattern(pattern string) error {
	if strings.IndexByte(pattern, 0) >= 0 {
		return fmt.Errorf("pattern contains a NUL byte")
	}
	if len(pattern) > MaxPatternLength {
		return fmt.Errorf("pattern exceeds maximum length of %d bytes", MaxPatternLength)
	}
	if complexity(pattern) > MaxPatternComplexity {
		return fmt.Errorf("pattern exceeds maximum complexity of %d expansion points", MaxPatternComplexity)
	}
	return nil
}

// complexity is a cheap upper bound on how many alternation/class expansion
// points a pattern contains: each "{", "[", "*", and "?" contributes to the
// potential backtracking search space. It is intentionally crude -- the
// goal is to reject pathological input, not to precisely model doublestar's
// matching cost.
func complexity(pattern string) int {
	n := 0
	for _, r := range pattern {
		switch r {
		case '{', '[', '*', '?':
			n++
		}
	}
	return n
}

// Match reports whether path matches the given doublestar glob pattern. A
// leading "!" in pattern is stripped by the caller (see PatternList); Match
// itself only evaluates the glob.
func Match(pattern, posixPath string) (bool, error) {
	return doublestar.Match(pattern, posixPath)
}

// PatternEntry is a single compiled pattern with its negation flag, as
// accumulated per option in spec.md §3 Pattern Sets.
type PatternEntry struct {
	Pattern  string
	Negate   bool
	Original string
}

// PatternList holds an ordered sequence of glob patterns, evaluated per
// spec.md §4.1: within a set, the last matching non-negated pattern wins,
// and a trailing negation that matches re-includes (i.e. un-matches) a
// previously ignored path.
type PatternList struct {
	entries  []PatternEntry
	warnings []string
}

// NewPatternList compiles patterns into a PatternList. Invalid patterns
// (those failing ValidatePattern or doublestar.ValidatePattern) are recorded
// as warnings and skipped rather than aborting construction, per spec.md §4.2
// "Failure modes: invalid pattern -> record as warning, skip pattern,
// continue."
func NewPatternList(patterns []string) *PatternList {
	pl := &PatternList{}
	for _, raw := range patterns {
		negate := strings.HasPrefix(raw, "!")
		body := raw
		if negate {
			body = raw[1:]
		}
		if err := ValidatePattern(body); err != nil {
			pl.warnings = append(pl.warnings, fmt.Sprintf("pattern %q: %v", raw, err))
			continue
		}
		if !doublestar.ValidatePattern(body) {
			pl.warnings = append(pl.warnings, fmt.Sprintf("pattern %q: invalid glob syntax", raw))
			continue
		}
		pl.entries = append(pl.entries, PatternEntry{Pattern: body, Negate: negate, Original: raw})
	}
	return pl
}

// Warnings returns the list of patterns that were rejected at construction
// time, for surfacing in a configuration validation report.
func (pl *PatternList) Warnings() []string {
	return pl.warnings
}

// Empty reports whether the pattern list has no usable entries.
func (pl *PatternList) Empty() bool {
	return len(pl.entries) == 0
}

// Match evaluates the pattern list against posixPath and returns whether the
// path is matched by the set, following last-match-wins semantics: the
// verdict from the last entry (in declared order) that matches the path
// wins, whether that entry is a plain match (verdict true) or a negation
// (verdict false). A path matching nothing returns false.
func (pl *PatternList) Match(posixPath string) bool {
	matched := false
	for _, e := range pl.entries {
		ok, err := doublestar.Match(e.Pattern, posixPath)
		if err != nil || !ok {
			continue
		}
		matched = !e.Negate
	}
	return matched
}

// MatchAny reports whether any non-negated pattern in the list matches
// posixPath, ignoring negation re-inclusion bookkeeping. Used where only a
// simple "does this path match the set" check is needed (e.g. defaultLayout
// glob keys), not the stateful ignore/re-include pattern.
func (pl *PatternList) MatchAny(posixPath string) bool {
	for _, e := range pl.entries {
		if e.Negate {
			continue
		}
		ok, err := doublestar.Match(e.Pattern, posixPath)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// Join joins POSIX-form path segments with "/", cleaning the result. It is a
// thin wrapper around path.Join kept here so callers never need to reach for
// both path and path/filepath in the same file and risk mixing separator
// conventions.
func Join(elems ...string) string {
	return path.Join(elems...)
}
