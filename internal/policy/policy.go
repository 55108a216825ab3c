package policy

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/classify"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/config"
)

//go:embed rules/*.rego
var rulesFS embed.FS

const (
	violationsQuery = "data.rtl.inventory.all_violations"
	summaryQuery    = "data.rtl.inventory.summary"
)

// Rule names understood by the embedded policy.
var Rules = []string{
	"orphan_module",
	"duplicate_unguarded_declaration",
	"library_depends_on_subsystem",
}

// Engine evaluates OPA policies against the classified module index
type Engine struct {
	queries map[string]rego.PreparedEvalQuery
}

// Violation represents a policy violation
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Module   string `json:"module"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
}

// Result contains the evaluation results
type Result struct {
	Violations []Violation `json:"violations"`
	Summary    Summary     `json:"summary"`
}

// Summary provides aggregate counts
type Summary struct {
	TotalViolations int `json:"total_violations"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	Info            int `json:"info"`
}

// Input is the data structure passed to OPA
type Input struct {
	Modules []Module          `json:"modules"`
	Rules   map[string]string `json:"rules"`
}

// Module is one classified declaration as the rules see it.
type Module struct {
	Name           string   `json:"name"`
	File           string   `json:"file"`
	Line           int      `json:"line"`
	Guard          string   `json:"guard"`
	Subsystem      string   `json:"subsystem"`
	TopCandidate   bool     `json:"top_candidate"`
	InstantiatedBy []string `json:"instantiated_by"`
}

// BuildInput converts classified modules and the configured rule severities
// into policy input. Only rules the policy defines are passed through.
func BuildInput(mods []classify.ClassifiedModule, cfg *config.Config) Input {
	input := Input{Modules: make([]Module, 0, len(mods)), Rules: map[string]string{}}
	for _, m := range mods {
		inst := m.InstantiatedBy
		if inst == nil {
			inst = []string{}
		}
		input.Modules = append(input.Modules, Module{
			Name:           m.ModuleName,
			File:           m.FilePath,
			Line:           m.Line,
			Guard:          m.GuardedByIfdef,
			Subsystem:      m.Subsystem,
			TopCandidate:   m.TopCandidate,
			InstantiatedBy: inst,
		})
	}
	if cfg != nil {
		for _, rule := range Rules {
			if !cfg.IsRuleEnabled(rule) {
				input.Rules[rule] = "off"
				continue
			}
			if severity := cfg.GetRuleSeverity(rule, ""); severity != "" {
				input.Rules[rule] = severity
			}
		}
	}
	return input
}

// New creates a new policy engine from the embedded rule modules
func New(ctx context.Context) (*Engine, error) {
	files, err := fs.Glob(rulesFS, "rules/*.rego")
	if err != nil {
		return nil, fmt.Errorf("finding policy files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no embedded policy files")
	}

	var modules []func(*rego.Rego)
	for _, f := range files {
		content, err := rulesFS.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		modules = append(modules, rego.Module(f, string(content)))
	}

	engine := &Engine{queries: make(map[string]rego.PreparedEvalQuery)}
	for name, q := range map[string]string{"violations": violationsQuery, "summary": summaryQuery} {
		opts := append(append([]func(*rego.Rego){}, modules...), rego.Query(q))
		query, err := rego.New(opts...).PrepareForEval(ctx)
		if err != nil {
			return nil, fmt.Errorf("preparing %s query: %w", name, err)
		}
		engine.queries[name] = query
	}
	return engine, nil
}

// Evaluate runs the policies against the input data. Violations are sorted
// by file, line, rule and module.
func (e *Engine) Evaluate(ctx context.Context, input Input) (*Result, error) {
	inputMap, err := structToMap(input)
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}

	result := &Result{Violations: []Violation{}}

	rs, err := e.queries["violations"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating violations: %w", err)
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if violations, ok := rs[0].Expressions[0].Value.([]interface{}); ok {
			for _, v := range violations {
				vmap, ok := v.(map[string]interface{})
				if !ok {
					continue
				}
				result.Violations = append(result.Violations, Violation{
					Rule:     getString(vmap, "rule"),
					Severity: getString(vmap, "severity"),
					Module:   getString(vmap, "module"),
					File:     getString(vmap, "file"),
					Line:     getInt(vmap, "line"),
					Message:  getString(vmap, "message"),
				})
			}
		}
	}
	sort.Slice(result.Violations, func(i, j int) bool {
		a, b := result.Violations[i], result.Violations[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Module < b.Module
	})

	rs, err = e.queries["summary"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating summary: %w", err)
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if smap, ok := rs[0].Expressions[0].Value.(map[string]interface{}); ok {
			result.Summary = Summary{
				TotalViolations: getInt(smap, "total_violations"),
				Errors:          getInt(smap, "errors"),
				Warnings:        getInt(smap, "warnings"),
				Info:            getInt(smap, "info"),
			}
		}
	}

	return result, nil
}

var severityRank = map[string]int{"info": 1, "warning": 2, "error": 3}

// ValidSeverity reports whether s can be used as a --fail-on threshold.
func ValidSeverity(s string) bool {
	_, ok := severityRank[s]
	return ok
}

// Exceeds reports whether any violation is at or above threshold.
func (r *Result) Exceeds(threshold string) bool {
	limit, ok := severityRank[threshold]
	if !ok {
		return false
	}
	for _, v := range r.Violations {
		if severityRank[v.Severity] >= limit {
			return true
		}
	}
	return false
}

// Helper functions
func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case json.Number:
			i, _ := n.Int64()
			return int(i)
		}
	}
	return 0
}
