package facts

import (
	"sort"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/extractor"
)

// ListDelimiter joins list-valued fields in the tabular formats.
const ListDelimiter = "|"

// Index is the merged, deterministically ordered module table.
// It is the structured payload written as JSON.
type Index struct {
	ModulesTotal int         `json:"modules_total"`
	Modules      []ModuleRow `json:"modules"`
}

// ModuleRow is one textual module declaration with its resolved instantiators.
type ModuleRow struct {
	ModuleName     string   `json:"module_name"`
	FilePath       string   `json:"file_path"`
	Language       string   `json:"language"`
	Line           int      `json:"line"`
	GuardedByIfdef string   `json:"guarded_by_ifdef"`
	Parameters     []string `json:"parameters"`
	InstantiatedBy []string `json:"instantiated_by"`
}

// SkippedFile records a source file dropped from the scan.
type SkippedFile struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// BuildIndex turns per-file declarations into index rows. instantiatedBy maps
// a module name to the set of modules instantiating it; every declaration of
// that name gets the same sorted list.
func BuildIndex(files []extractor.FileFacts, instantiatedBy map[string]map[string]bool) Index {
	var rows []ModuleRow
	for _, f := range files {
		for _, d := range f.Declarations {
			params := make([]string, len(d.Parameters))
			copy(params, d.Parameters)
			rows = append(rows, ModuleRow{
				ModuleName:     d.Name,
				FilePath:       f.File,
				Language:       f.Dialect,
				Line:           d.Line,
				GuardedByIfdef: d.Guard,
				Parameters:     params,
				InstantiatedBy: sortedKeys(instantiatedBy[d.Name]),
			})
		}
	}
	return NewIndex(rows)
}

// NewIndex sorts rows and normalizes nil lists so both encodings agree.
func NewIndex(rows []ModuleRow) Index {
	if rows == nil {
		rows = []ModuleRow{}
	}
	for i := range rows {
		if rows[i].Parameters == nil {
			rows[i].Parameters = []string{}
		}
		if rows[i].InstantiatedBy == nil {
			rows[i].InstantiatedBy = []string{}
		}
	}
	SortModules(rows)
	return Index{ModulesTotal: len(rows), Modules: rows}
}

// SortModules orders rows by module name, then file path, then line.
func SortModules(rows []ModuleRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return LessModule(rows[i], rows[j])
	})
}

// LessModule is the index sort key.
func LessModule(a, b ModuleRow) bool {
	if a.ModuleName != b.ModuleName {
		return a.ModuleName < b.ModuleName
	}
	if a.FilePath != b.FilePath {
		return a.FilePath < b.FilePath
	}
	return a.Line < b.Line
}

// Names returns the distinct module names in the index, sorted.
func (idx Index) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range idx.Modules {
		if !seen[m.ModuleName] {
			seen[m.ModuleName] = true
			names = append(names, m.ModuleName)
		}
	}
	return names
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
