// Package classify buckets module declarations into reporting subsystems.
package classify

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/facts"
)

// Subsystem tags.
const (
	Top        = "top"
	Core       = "core"
	Mem        = "mem"
	Cache      = "cache"
	Raster     = "raster"
	Tex        = "tex"
	OM         = "om"
	FPU        = "fpu"
	Interfaces = "interfaces"
	AFU        = "afu"
	Libs       = "libs"
	Other      = "other"
)

// namedBuckets are the subsystem folders directly under the RTL root.
var namedBuckets = []string{Core, Mem, Cache, Raster, Tex, OM, FPU, Interfaces, AFU, Libs}

// DefaultTopCandidatePattern matches integration-level module names.
const DefaultTopCandidatePattern = `^(Vortex(_axi)?|VX_(cluster|socket|core|core_top|graphics|.*_top|.*_unit|.*_wrap|.*_afu))$`

var defaultTopCandidate = regexp.MustCompile(DefaultTopCandidatePattern)

// SubsystemOrder returns the report display order.
func SubsystemOrder() []string {
	order := []string{Top}
	order = append(order, namedBuckets...)
	return append(order, Other)
}

// Rank returns the display position of a subsystem; unknown tags sort last.
func Rank(subsystem string) int {
	for i, s := range SubsystemOrder() {
		if s == subsystem {
			return i
		}
	}
	return len(namedBuckets) + 2
}

// IsSubsystem reports whether name is a known subsystem tag.
func IsSubsystem(name string) bool {
	return Rank(name) < len(namedBuckets)+2
}

// Subsystem maps a slash-separated repo-relative file path to its bucket.
// Files in a named folder under rtlRoot take that folder's tag, files
// anywhere else under rtlRoot are top, everything else is other.
func Subsystem(filePath, rtlRoot string) string {
	root := strings.TrimSuffix(rtlRoot, "/") + "/"
	for _, name := range namedBuckets {
		if strings.HasPrefix(filePath, root+name+"/") {
			return name
		}
	}
	if strings.HasPrefix(filePath, root) {
		return Top
	}
	return Other
}

// ClassifiedModule is a module row annotated with its subsystem and
// top-level-candidate flag. The JSON shape is the report row contract.
type ClassifiedModule struct {
	facts.ModuleRow
	Subsystem    string `json:"subsystem"`
	TopCandidate bool   `json:"top_candidate"`
}

// Classifier holds the RTL root and top-candidate pattern.
type Classifier struct {
	rtlRoot string
	top     *regexp.Regexp
}

// New creates a Classifier. An empty pattern selects the default.
func New(rtlRoot, topPattern string) (*Classifier, error) {
	if rtlRoot == "" {
		rtlRoot = "hw/rtl"
	}
	top := defaultTopCandidate
	if topPattern != "" {
		re, err := regexp.Compile(topPattern)
		if err != nil {
			return nil, fmt.Errorf("compile top candidate pattern: %w", err)
		}
		top = re
	}
	return &Classifier{rtlRoot: rtlRoot, top: top}, nil
}

// IsTopCandidate reports whether name follows an integration-level naming convention.
func (c *Classifier) IsTopCandidate(name string) bool {
	return c.top.MatchString(name)
}

// Classify annotates one row.
func (c *Classifier) Classify(row facts.ModuleRow) ClassifiedModule {
	return ClassifiedModule{
		ModuleRow:    row,
		Subsystem:    Subsystem(row.FilePath, c.rtlRoot),
		TopCandidate: c.IsTopCandidate(row.ModuleName),
	}
}

// ClassifyIndex annotates every row and returns them in report order:
// subsystem display order, then module name, file path and line.
func (c *Classifier) ClassifyIndex(idx facts.Index) []ClassifiedModule {
	out := make([]ClassifiedModule, 0, len(idx.Modules))
	for _, row := range idx.Modules {
		out = append(out, c.Classify(row))
	}
	SortClassified(out)
	return out
}

// Group buckets classified modules by subsystem, preserving input order.
func Group(mods []ClassifiedModule) map[string][]ClassifiedModule {
	groups := make(map[string][]ClassifiedModule)
	for _, m := range mods {
		groups[m.Subsystem] = append(groups[m.Subsystem], m)
	}
	return groups
}

// SortClassified orders modules by subsystem display order, then by the
// index sort key.
func SortClassified(mods []ClassifiedModule) {
	sort.SliceStable(mods, func(i, j int) bool {
		ri, rj := Rank(mods[i].Subsystem), Rank(mods[j].Subsystem)
		if ri != rj {
			return ri < rj
		}
		return facts.LessModule(mods[i].ModuleRow, mods[j].ModuleRow)
	})
}
