package extractor

import (
	"regexp"
	"strings"
)

var (
	// Pattern: module <name>
	modulePattern = regexp.MustCompile(`^\s*module\s+([A-Za-z_][A-Za-z0-9_]*)\b`)

	// Pattern: endmodule
	endModulePattern = regexp.MustCompile(`^\s*endmodule\b`)

	// Pattern: parameter [<type>] <name>
	paramPattern = regexp.MustCompile(`\bparameter\b(?:\s+\w+\s+)?\s*([A-Za-z_][A-Za-z0-9_]*)`)

	// Pattern: `ifdef/`ifndef/`elsif/`else/`endif [<macro>]
	directivePattern = regexp.MustCompile("^\\s*`(ifdef|ifndef|elsif|else|endif)\\b(?:\\s+([A-Za-z_][A-Za-z0-9_]*))?")

	// Pattern: <type> [#(<overrides>)] <instance> (
	//   VX_cluster #(.X(1)) cluster_i (
	//   VX_cluster cluster_i (
	instPattern = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*(?:#\s*\([^;]*\))?\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
)

// matchModule returns [name] if line opens a module declaration
func matchModule(line string) []string {
	if m := modulePattern.FindStringSubmatch(line); m != nil {
		return []string{m[1]}
	}
	return nil
}

// isEndModule reports whether line closes a module
func isEndModule(line string) bool {
	return endModulePattern.MatchString(line)
}

// matchParameters returns every parameter identifier introduced on line, in order
func matchParameters(line string) []string {
	matches := paramPattern.FindAllStringSubmatch(line, -1)
	if matches == nil {
		return nil
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// matchDirective returns [kind, macro] if line is a conditional-compilation directive.
// macro is empty for `else/`endif or a bare directive.
func matchDirective(line string) []string {
	if m := directivePattern.FindStringSubmatch(line); m != nil {
		return []string{m[1], m[2]}
	}
	return nil
}

// matchInstantiation returns [type, instance] if line has the shape of an instantiation header
func matchInstantiation(line string) []string {
	if m := instPattern.FindStringSubmatch(line); m != nil {
		return []string{m[1], m[2]}
	}
	return nil
}

// hasDeniedPrefix reports whether trimmed starts with any denylisted keyword prefix
func hasDeniedPrefix(trimmed string, denylist []string) bool {
	for _, prefix := range denylist {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}
