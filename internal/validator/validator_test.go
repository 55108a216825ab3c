package validator

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func moduleRow(name string) map[string]any {
	return map[string]any{
		"module_name":      name,
		"file_path":        "hw/rtl/VX_cluster.sv",
		"language":         "sv",
		"line":             3,
		"guarded_by_ifdef": "",
		"parameters":       []any{"CLUSTER_ID"},
		"instantiated_by":  []any{},
	}
}

func TestIndexContract(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	tests := []struct {
		name    string
		data    map[string]any
		wantErr bool
	}{
		{
			name:    "empty_index",
			data:    map[string]any{"modules_total": 0, "modules": []any{}},
			wantErr: false,
		},
		{
			name:    "valid_rows",
			data:    map[string]any{"modules_total": 2, "modules": []any{moduleRow("VX_cluster"), moduleRow("VX_socket")}},
			wantErr: false,
		},
		{
			name:    "total_mismatch",
			data:    map[string]any{"modules_total": 3, "modules": []any{moduleRow("VX_cluster")}},
			wantErr: true,
		},
		{
			name: "zero_line",
			data: func() map[string]any {
				row := moduleRow("VX_cluster")
				row["line"] = 0
				return map[string]any{"modules_total": 1, "modules": []any{row}}
			}(),
			wantErr: true,
		},
		{
			name: "unknown_field",
			data: func() map[string]any {
				row := moduleRow("VX_cluster")
				row["width"] = 32
				return map[string]any{"modules_total": 1, "modules": []any{row}}
			}(),
			wantErr: true,
		},
		{
			name:    "bad_identifier",
			data:    map[string]any{"modules_total": 1, "modules": []any{moduleRow("9lives")}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateIndex(tt.data)
			if tt.wantErr {
				var contractErr *ContractError
				require.True(t, errors.As(err, &contractErr), "got %v", err)
				assert.Equal(t, indexDef, contractErr.Definition)
				assert.NotEmpty(t, contractErr.Violations)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidateIndexJSON(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	require.NoError(t, v.ValidateIndexJSON([]byte(`{"modules_total": 0, "modules": []}`)))
	require.Error(t, v.ValidateIndexJSON([]byte(`{"modules_total": "zero", "modules": []}`)))
	require.Error(t, v.ValidateIndexJSON([]byte(`{not json`)))
}

func TestReportRowsContract(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	row := moduleRow("VX_cluster")
	row["subsystem"] = "top"
	row["top_candidate"] = true
	require.NoError(t, v.ValidateReportRows([]any{row}))

	bad := moduleRow("VX_cluster")
	bad["subsystem"] = "gpu"
	bad["top_candidate"] = false
	require.Error(t, v.ValidateReportRows([]any{bad}))

	missing := moduleRow("VX_cluster")
	missing["subsystem"] = "core"
	require.Error(t, v.ValidateReportRows([]any{missing}))
}

func TestContractErrorListsEveryViolation(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	first := moduleRow("VX_cluster")
	first["line"] = 0
	second := moduleRow("9lives")
	err = v.ValidateIndex(map[string]any{"modules_total": 2, "modules": []any{first, second}})

	var contractErr *ContractError
	require.True(t, errors.As(err, &contractErr), "got %v", err)
	require.NotEmpty(t, contractErr.Violations)
	assert.Contains(t, err.Error(), strings.Join(contractErr.Violations, "; "))
	assert.Contains(t, err.Error(), "violation(s)")
}

func TestLoadIndex(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"modules_total": 1, "modules": [
  {"module_name": "VX_socket", "file_path": "hw/rtl/VX_socket.sv", "language": "sv", "line": 1,
   "guarded_by_ifdef": "", "parameters": [], "instantiated_by": []}
]}`), 0o644))
	idx, err := LoadIndex(good)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.ModulesTotal)
	assert.Equal(t, "VX_socket", idx.Modules[0].ModuleName)

	// Decoding alone would recompute the total and hide the mismatch.
	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"modules_total": 2, "modules": []}`), 0o644))
	_, err = LoadIndex(broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index contract violation")
	var contractErr *ContractError
	assert.True(t, errors.As(err, &contractErr))

	_, err = LoadIndex(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}
