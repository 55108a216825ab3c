package validator

// The CUE validator is the contract guard on everything rtl-inventory
// writes or reads back: the module index and the classified report rows.
// A violation means the producer drifted from the schema. Fix the producer,
// don't loosen the schema.

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/facts"
)

//go:embed schema.cue
var schemaFS embed.FS

const (
	indexDef      = "#Index"
	reportRowsDef = "#ReportRows"
)

// Validator validates inventory data against the embedded CUE schema.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// New creates a new Validator with the embedded CUE schema
func New() (*Validator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := schemaFS.ReadFile("schema.cue")
	if err != nil {
		return nil, fmt.Errorf("loading embedded schema: %w", err)
	}

	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema: %w", schema.Err())
	}

	return &Validator{
		ctx:    ctx,
		schema: schema,
	}, nil
}

// ValidateIndex checks a module index (anything that marshals to the index
// JSON shape) against #Index.
func (v *Validator) ValidateIndex(data any) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling index to JSON: %w", err)
	}
	return v.validateJSON(jsonBytes, indexDef)
}

// ValidateIndexJSON validates serialized index bytes directly
func (v *Validator) ValidateIndexJSON(jsonBytes []byte) error {
	return v.validateJSON(jsonBytes, indexDef)
}

// ValidateReportRows checks classified report rows against #ReportRows.
func (v *Validator) ValidateReportRows(rows any) error {
	jsonBytes, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshaling report rows to JSON: %w", err)
	}
	return v.validateJSON(jsonBytes, reportRowsDef)
}

// ContractError lists every violation found in one document.
type ContractError struct {
	Definition string
	Violations []string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %d violation(s): %s", e.Definition, len(e.Violations), strings.Join(e.Violations, "; "))
}

func (v *Validator) validateJSON(jsonBytes []byte, path string) error {
	unified, err := v.unify(jsonBytes, path)
	if err != nil {
		return err
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ContractError{Definition: path, Violations: violationMessages(err)}
	}
	return nil
}

func (v *Validator) unify(jsonBytes []byte, path string) (cue.Value, error) {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("compiling JSON as CUE: %w", dataValue.Err())
	}

	def := v.schema.LookupPath(cue.ParsePath(path))
	if def.Err() != nil {
		return cue.Value{}, fmt.Errorf("looking up %s definition: %w", path, def.Err())
	}

	return def.Unify(dataValue), nil
}

// violationMessages flattens a CUE error into one message per failing field.
func violationMessages(err error) []string {
	var msgs []string
	for _, e := range errors.Errors(err) {
		msgs = append(msgs, e.Error())
	}
	if len(msgs) == 0 {
		msgs = []string{err.Error()}
	}
	return msgs
}

// LoadIndex reads a structured index from disk, checks the raw document
// against #Index, and decodes it. The check runs before decoding because
// decoding recomputes modules_total.
func LoadIndex(path string) (facts.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return facts.Index{}, fmt.Errorf("read index: %w", err)
	}
	v, err := New()
	if err != nil {
		return facts.Index{}, fmt.Errorf("initialize validator: %w", err)
	}
	if err := v.ValidateIndexJSON(data); err != nil {
		return facts.Index{}, fmt.Errorf("index contract violation in %s: %w", path, err)
	}
	return facts.ReadJSON(bytes.NewReader(data))
}
