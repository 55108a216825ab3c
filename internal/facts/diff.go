package facts

import (
	"bytes"
	"fmt"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// UnifiedCSVDiff renders both indexes as tabular exports and returns a unified
// diff between them, or "" when they are identical.
func UnifiedCSVDiff(prevName string, prev Index, nextName string, next Index) (string, error) {
	var a, b bytes.Buffer
	if err := WriteCSV(&a, prev); err != nil {
		return "", err
	}
	if err := WriteCSV(&b, next); err != nil {
		return "", err
	}
	before := a.String()
	after := b.String()
	if before == after {
		return "", nil
	}
	edits := myers.ComputeEdits(span.URIFromPath(prevName), before, after)
	return fmt.Sprint(gotextdiff.ToUnified(prevName, nextName, before, edits)), nil
}
