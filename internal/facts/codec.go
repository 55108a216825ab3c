package facts

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IndexCSVHeader is the column order of the tabular index.
var IndexCSVHeader = []string{
	"module_name",
	"file_path",
	"language",
	"line",
	"guarded_by_ifdef",
	"parameters",
	"instantiated_by",
}

// CSVRecord flattens a row for the tabular index.
func (m ModuleRow) CSVRecord() []string {
	return []string{
		m.ModuleName,
		m.FilePath,
		m.Language,
		strconv.Itoa(m.Line),
		m.GuardedByIfdef,
		strings.Join(m.Parameters, ListDelimiter),
		strings.Join(m.InstantiatedBy, ListDelimiter),
	}
}

// NewCSVWriter returns a csv.Writer using CRLF record terminators, the
// convention of the historical inventory files.
func NewCSVWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	return cw
}

// WriteCSV writes the tabular index.
func WriteCSV(w io.Writer, idx Index) error {
	cw := NewCSVWriter(w)
	if err := cw.Write(IndexCSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, m := range idx.Modules {
		if err := cw.Write(m.CSVRecord()); err != nil {
			return fmt.Errorf("write csv row %s: %w", m.ModuleName, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a tabular index back into rows.
func ReadCSV(r io.Reader) (Index, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return Index{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return NewIndex(nil), nil
	}
	if strings.Join(records[0], ",") != strings.Join(IndexCSVHeader, ",") {
		return Index{}, fmt.Errorf("unexpected csv header: %v", records[0])
	}

	rows := make([]ModuleRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		line, err := strconv.Atoi(rec[3])
		if err != nil {
			return Index{}, fmt.Errorf("csv row %d: bad line %q: %w", i+2, rec[3], err)
		}
		rows = append(rows, ModuleRow{
			ModuleName:     rec[0],
			FilePath:       rec[1],
			Language:       rec[2],
			Line:           line,
			GuardedByIfdef: rec[4],
			Parameters:     splitList(rec[5]),
			InstantiatedBy: splitList(rec[6]),
		})
	}
	return NewIndex(rows), nil
}

func splitList(field string) []string {
	if field == "" {
		return []string{}
	}
	return strings.Split(field, ListDelimiter)
}

// WriteJSON writes the structured index with two-space indentation.
func WriteJSON(w io.Writer, idx Index) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(idx); err != nil {
		return fmt.Errorf("encode index json: %w", err)
	}
	return nil
}

// ReadJSON decodes a structured index. Rows are re-sorted and nil lists
// normalized, so a hand-edited file still renders deterministically.
func ReadJSON(r io.Reader) (Index, error) {
	var idx Index
	if err := json.NewDecoder(r).Decode(&idx); err != nil {
		return Index{}, fmt.Errorf("decode index json: %w", err)
	}
	return NewIndex(idx.Modules), nil
}

// WriteFileAtomic renders into memory and renames a temp file into place,
// creating parent directories as needed.
func WriteFileAtomic(path string, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("temp output file: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close output file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("chmod output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename output file: %w", err)
	}
	return nil
}
