package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/classify"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/facts"
)

// CSVHeader is the column order of the subsystem export.
var CSVHeader = []string{
	"subsystem",
	"module_name",
	"file_path",
	"line",
	"guarded_by_ifdef",
	"parameters",
	"instantiated_by",
	"top_candidate",
}

// WriteCSV writes one row per module in the order given.
func WriteCSV(w io.Writer, mods []classify.ClassifiedModule) error {
	cw := facts.NewCSVWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, m := range mods {
		top := "0"
		if m.TopCandidate {
			top = "1"
		}
		record := []string{
			m.Subsystem,
			m.ModuleName,
			m.FilePath,
			strconv.Itoa(m.Line),
			m.GuardedByIfdef,
			strings.Join(m.Parameters, facts.ListDelimiter),
			strings.Join(m.InstantiatedBy, facts.ListDelimiter),
			top,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", m.ModuleName, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FilterSubsystems keeps modules in the named subsystems. An empty filter
// keeps everything; an unknown name is an error.
func FilterSubsystems(mods []classify.ClassifiedModule, names []string) ([]classify.ClassifiedModule, error) {
	if len(names) == 0 {
		return mods, nil
	}
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if !classify.IsSubsystem(n) {
			return nil, fmt.Errorf("unknown subsystem %q (want one of %s)", n, strings.Join(classify.SubsystemOrder(), ", "))
		}
		keep[n] = true
	}
	out := []classify.ClassifiedModule{}
	for _, m := range mods {
		if keep[m.Subsystem] {
			out = append(out, m)
		}
	}
	return out, nil
}

// Counts returns the module count per subsystem in display order, skipping
// empty subsystems.
func Counts(mods []classify.ClassifiedModule) []SubsystemCount {
	groups := classify.Group(mods)
	var out []SubsystemCount
	for _, sub := range classify.SubsystemOrder() {
		if n := len(groups[sub]); n > 0 {
			out = append(out, SubsystemCount{Subsystem: sub, Modules: n})
		}
	}
	return out
}

// SubsystemCount is one line of the summary.
type SubsystemCount struct {
	Subsystem string
	Modules   int
}
