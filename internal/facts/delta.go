package facts

import (
	"slices"
	"strconv"
	"strings"
)

// Delta captures row-level drift between two index snapshots.
type Delta struct {
	Added   []ModuleRow `json:"added"`
	Removed []ModuleRow `json:"removed"`
	Changed []Change    `json:"changed"`
}

// Change pairs the old and new version of a declaration whose identity
// (name, file, guard) survived but whose content moved.
type Change struct {
	Before ModuleRow `json:"before"`
	After  ModuleRow `json:"after"`
	Fields []string  `json:"fields"`
}

// Empty reports whether the snapshots are identical.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// ComputeDelta computes row-level additions, removals and changes between
// two snapshots. Rows with the same identity are paired in index order, so
// repeated declarations of one name in one file under one guard line up by
// position.
func ComputeDelta(prev, next Index) Delta {
	delta := Delta{
		Added:   []ModuleRow{},
		Removed: []ModuleRow{},
		Changed: []Change{},
	}

	prevByID := groupByIdentity(prev.Modules)
	nextByID := groupByIdentity(next.Modules)

	for _, row := range next.Modules {
		id := identityKey(row)
		if len(prevByID[id]) == 0 {
			delta.Added = append(delta.Added, row)
			continue
		}
		before := prevByID[id][0]
		prevByID[id] = prevByID[id][1:]
		if fields := changedFields(before, row); len(fields) > 0 {
			delta.Changed = append(delta.Changed, Change{Before: before, After: row, Fields: fields})
		}
	}
	for _, row := range prev.Modules {
		id := identityKey(row)
		if len(nextByID[id]) == 0 {
			delta.Removed = append(delta.Removed, row)
			continue
		}
		nextByID[id] = nextByID[id][1:]
	}
	return delta
}

func groupByIdentity(rows []ModuleRow) map[string][]ModuleRow {
	out := make(map[string][]ModuleRow)
	for _, row := range rows {
		id := identityKey(row)
		out[id] = append(out[id], row)
	}
	return out
}

func identityKey(r ModuleRow) string {
	return r.ModuleName + "|" + r.FilePath + "|" + r.GuardedByIfdef
}

// rowKey is the full content key of a row.
func rowKey(r ModuleRow) string {
	return identityKey(r) + "|" + r.Language + "|" + strconv.Itoa(r.Line) + "|" +
		strings.Join(r.Parameters, ",") + "|" + strings.Join(r.InstantiatedBy, ",")
}

func changedFields(a, b ModuleRow) []string {
	var fields []string
	if a.Language != b.Language {
		fields = append(fields, "language")
	}
	if a.Line != b.Line {
		fields = append(fields, "line")
	}
	if !slices.Equal(a.Parameters, b.Parameters) {
		fields = append(fields, "parameters")
	}
	if !slices.Equal(a.InstantiatedBy, b.InstantiatedBy) {
		fields = append(fields, "instantiated_by")
	}
	return fields
}

// Equal reports whether two indexes carry the same rows in the same order.
func Equal(a, b Index) bool {
	if a.ModulesTotal != b.ModulesTotal || len(a.Modules) != len(b.Modules) {
		return false
	}
	for i := range a.Modules {
		if rowKey(a.Modules[i]) != rowKey(b.Modules[i]) {
			return false
		}
	}
	return true
}
