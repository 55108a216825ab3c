// Package report renders the subsystem-grouped inventory.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/classify"
)

// previewLimit is how many top-candidate names the summary table shows.
const previewLimit = 8

// Header is the repository metadata printed above the tables. Revision and
// Submodules are embedded verbatim.
type Header struct {
	Project     string
	Revision    string
	SourceIndex string
	Submodules  []string
}

func (h Header) project() string {
	if h.Project == "" {
		return "Repository"
	}
	return h.Project
}

// RenderMarkdown writes the grouped report for mods, which must already be
// in report order (see classify.SortClassified).
func RenderMarkdown(w io.Writer, mods []classify.ClassifiedModule, h Header) error {
	bw := bufio.NewWriter(w)
	groups := classify.Group(mods)

	fmt.Fprintf(bw, "# %s RTL modules grouped by subsystem\n\n", h.project())
	fmt.Fprintf(bw, "- %s git SHA: `%s`\n", h.project(), h.Revision)
	fmt.Fprintf(bw, "- Source index: `%s`\n", h.SourceIndex)
	fmt.Fprintf(bw, "- Total module declarations: `%d`\n", len(mods))
	fmt.Fprintf(bw, "- Submodule snapshot:\n")
	for _, line := range h.Submodules {
		fmt.Fprintf(bw, "  - `%s`\n", strings.TrimSpace(line))
	}
	bw.WriteString("\n")

	bw.WriteString("## Subsystem summary\n\n")
	bw.WriteString("| Subsystem | Modules | Top-candidate modules (heuristic) |\n")
	bw.WriteString("|---|---:|---|\n")
	for _, sub := range classify.SubsystemOrder() {
		group := groups[sub]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(bw, "| `%s` | %d | %s |\n", sub, len(group), escapeCell(topPreview(group)))
	}
	bw.WriteString("\n")

	for _, sub := range classify.SubsystemOrder() {
		group := groups[sub]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(bw, "## %s (%d)\n\n", sub, len(group))
		bw.WriteString("| Module | File | Guard | Parameters | Instantiated by |\n")
		bw.WriteString("|---|---|---|---|---|\n")
		for _, m := range group {
			guard := m.GuardedByIfdef
			if guard == "" {
				guard = "-"
			}
			fmt.Fprintf(bw, "| `%s` | `%s:%d` | `%s` | `%s` | `%s` |\n",
				escapeCell(m.ModuleName),
				escapeCell(m.FilePath), m.Line,
				escapeCell(guard),
				escapeCell(formatList(m.Parameters)),
				escapeCell(formatList(m.InstantiatedBy)),
			)
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

func topPreview(group []classify.ClassifiedModule) string {
	var names []string
	for _, m := range group {
		if m.TopCandidate {
			names = append(names, m.ModuleName)
		}
	}
	if len(names) == 0 {
		return "-"
	}
	if len(names) <= previewLimit {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s (+%d)", strings.Join(names[:previewLimit], ", "), len(names)-previewLimit)
}

// escapeCell keeps a value from splitting a markup table column.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// formatList joins non-empty items with ", ", or "-" when there are none.
func formatList(items []string) string {
	var kept []string
	for _, it := range items {
		if it != "" {
			kept = append(kept, it)
		}
	}
	if len(kept) == 0 {
		return "-"
	}
	return strings.Join(kept, ", ")
}
