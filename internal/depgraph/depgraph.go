// Package depgraph implements the Dependency Tracker (spec.md §4.7): a
// bidirectional graph between pages and the includes/layouts they depend on,
// maintained for incremental rebuilds by an external watcher.
package depgraph

import (
	"sync"

	"github.com/zeebo/xxh3"
)

// Stats summarizes the graph's current size, per spec.md §4.7 "stats()".
type Stats struct {
	TotalFiles       int
	PagesWithDeps    int
	IncludeFiles     int
	TotalRelationships int
}

// Tracker maintains includesInPage and pagesByInclude, plus the set of all
// known files, per spec.md §3 "Dependency Graph".
type Tracker struct {
	mu             sync.RWMutex
	includesInPage map[string][]string
	pagesByInclude map[string]map[string]bool
	knownFiles     map[string]bool
	contentHash    map[string]uint64
}

// New constructs an empty Tracker.
func New() *Tracker {
	return &Tracker{
		includesInPage: make(map[string][]string),
		pagesByInclude: make(map[string]map[string]bool),
		knownFiles:     make(map[string]bool),
		contentHash:    make(map[string]uint64),
	}
}

// Record replaces page's outgoing edges atomically and updates reverse
// edges, per spec.md §4.7 "record(page, includes[], layouts[])". deps is the
// union of includes and layouts, in encounter order; duplicates are
// harmless. content, if non-empty, is hashed with XXH3 and stored so a
// caller can detect whether a dependency's content actually changed between
// builds (an addition beyond the literal spec text, grounded on the
// teacher's FileDescriptor.ContentHash field).
func (t *Tracker) Record(page string, deps []string, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.knownFiles[page] = true
	if content != "" {
		t.contentHash[page] = xxh3.HashString(content)
	}

	// Remove page's existing outgoing edges from the reverse map before
	// installing the new set, so stale reverse entries never linger.
	for _, old := range t.includesInPage[page] {
		t.unlinkReverse(page, old)
	}

	deduped := dedupe(deps)
	t.includesInPage[page] = deduped
	for _, d := range deduped {
		t.knownFiles[d] = true
		if t.pagesByInclude[d] == nil {
			t.pagesByInclude[d] = make(map[string]bool)
		}
		t.pagesByInclude[d][page] = true
	}
}

// unlinkReverse removes page from dep's reverse set, deleting the reverse
// key entirely once it becomes empty. Caller must hold t.mu.
func (t *Tracker) unlinkReverse(page, dep string) {
	set, ok := t.pagesByInclude[dep]
	if !ok {
		return
	}
	delete(set, page)
	if len(set) == 0 {
		delete(t.pagesByInclude, dep)
	}
}

// ContentHash returns the last-recorded XXH3 content hash for file, if any.
func (t *Tracker) ContentHash(file string) (uint64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.contentHash[file]
	return h, ok
}

// AffectedPages traverses pagesByInclude transitively from dependency,
// returning every page that depends on it directly or indirectly. Detects
// cycles with a per-call visited set, bounding work to O(nodes+edges) of the
// reachable subgraph, per spec.md §4.7 and §8 "affectedPages(d) terminates
// even with cycles in the include graph".
func (t *Tracker) AffectedPages(dependency string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	visited := make(map[string]bool)
	var result []string
	var visit func(string)
	visit = func(dep string) {
		for page := range t.pagesByInclude[dep] {
			if visited[page] {
				continue
			}
			visited[page] = true
			result = append(result, page)
			// A page can itself be a dependency of another page (a layout
			// that is also composed as a page, or a chained include); follow
			// that edge too.
			visit(page)
		}
	}
	visit(dependency)
	return result
}

// Remove deletes file's outgoing edges (as a page) and scrubs it from every
// reverse set (as a dependency), releasing any reverse key left empty, per
// spec.md §4.7 "remove(file)".
func (t *Tracker) Remove(file string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, dep := range t.includesInPage[file] {
		t.unlinkReverse(file, dep)
	}
	delete(t.includesInPage, file)
	delete(t.contentHash, file)

	for dep, pages := range t.pagesByInclude {
		delete(pages, file)
		if len(pages) == 0 {
			delete(t.pagesByInclude, dep)
		}
	}
	delete(t.knownFiles, file)
}

// Clear discards all tracker state.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.includesInPage = make(map[string][]string)
	t.pagesByInclude = make(map[string]map[string]bool)
	t.knownFiles = make(map[string]bool)
	t.contentHash = make(map[string]uint64)
}

// Stats reports the graph's current size, per spec.md §4.7.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	relationships := 0
	for _, deps := range t.includesInPage {
		relationships += len(deps)
	}
	return Stats{
		TotalFiles:         len(t.knownFiles),
		PagesWithDeps:      len(t.includesInPage),
		IncludeFiles:       len(t.pagesByInclude),
		TotalRelationships: relationships,
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
