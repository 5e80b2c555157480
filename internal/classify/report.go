package classify

import (
	"fmt"
	"sort"
	"strings"
)

// DryRunReport groups a build's classifications by action with counts, for
// --dry-run mode (spec.md §4.2, §8 "The dry-run report sorts entries by
// action group then lexicographic path").
type DryRunReport struct {
	Counts  map[Action]int
	Groups  map[Action][]Classification
	Layouts map[string][]string // EMIT path -> resolved layout chain, if any
}

// actionOrder fixes the group ordering used when rendering a report.
var actionOrder = []Action{EMIT, COPY, SKIP, IGNORED}

// GenerateDryRunReport groups classifications by action, each group sorted
// lexicographically by path. layoutChains optionally supplies the resolved
// layout chain for each EMIT-classified page (source-relative paths,
// innermost first); pass nil when layout resolution has not run.
func GenerateDryRunReport(classifications []Classification, layoutChains map[string][]string) *DryRunReport {
	report := &DryRunReport{
		Counts:  make(map[Action]int),
		Groups:  make(map[Action][]Classification),
		Layouts: layoutChains,
	}

	for _, cl := range classifications {
		report.Counts[cl.Action]++
		report.Groups[cl.Action] = append(report.Groups[cl.Action], cl)
	}

	for _, group := range report.Groups {
		sort.Slice(group, func(i, j int) bool {
			return group[i].FilePath < group[j].FilePath
		})
	}

	return report
}

// Render produces a human-readable rendering of the report, grouped by
// action in fixed order (EMIT, COPY, SKIP, IGNORED). When verbose is true,
// each entry additionally shows its tier and reason, and each EMIT entry
// shows its resolved layout chain if available.
func (r *DryRunReport) Render(verbose bool) string {
	var b strings.Builder

	total := 0
	for _, a := range actionOrder {
		total += r.Counts[a]
	}
	fmt.Fprintf(&b, "classified %d files\n", total)

	for _, action := range actionOrder {
		entries := r.Groups[action]
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%d)\n", action, len(entries))
		for _, cl := range entries {
			if verbose {
				fmt.Fprintf(&b, "  %s  [tier %d: %s]\n", cl.FilePath, cl.Tier, cl.Reason)
			} else {
				fmt.Fprintf(&b, "  %s\n", cl.FilePath)
			}
			if action == EMIT {
				if chain, ok := r.Layouts[cl.FilePath]; ok && len(chain) > 0 {
					fmt.Fprintf(&b, "      layout chain: %s\n", strings.Join(chain, " -> "))
				}
			}
		}
	}

	return b.String()
}
