package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "sv", cfg.DialectFor("hw/rtl/VX_core.sv"))
	assert.Equal(t, "v", cfg.DialectFor("hw/rtl/VX_core.v"))
	assert.Equal(t, "", cfg.DialectFor("hw/rtl/VX_core.vh"))
	assert.Equal(t, "", cfg.DialectFor("hw/rtl/VX_core.SV"))
}

func TestIsExcluded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scan.Exclude = []string{"hw/syn/**", "*_tb.sv", "[bad"}

	assert.True(t, cfg.IsExcluded("hw/syn/xilinx/top.sv"))
	assert.True(t, cfg.IsExcluded("hw/rtl/core/VX_alu_tb.sv"))
	assert.False(t, cfg.IsExcluded("hw/rtl/core/VX_alu.sv"))
	assert.Equal(t, []string{"[bad"}, cfg.InvalidExcludes())
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rtl_inventory.yaml")
	content := `scan:
  hw_dir: rtl
extract:
  param_window: 0
check:
  rules:
    orphan_module: "off"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "rtl", cfg.Scan.HWDir)
	assert.Equal(t, DefaultParamWindow, cfg.Extract.ParamWindow)
	assert.Equal(t, DefaultDenylist(), cfg.Extract.InstantiationDenylist)
	assert.Equal(t, "hw/rtl", cfg.Classify.RTLRoot)
	assert.Equal(t, DefaultExtensions(), cfg.Scan.Extensions)
	assert.False(t, cfg.CacheEnabled())
	assert.Equal(t, DefaultMaxFileBytes, cfg.FileSizeCeiling())
	assert.False(t, cfg.IsRuleEnabled("orphan_module"))
	assert.True(t, cfg.IsRuleEnabled("duplicate_unguarded_declaration"))
	assert.Equal(t, "warning", cfg.GetRuleSeverity("duplicate_unguarded_declaration", "warning"))
}

func TestFileSizeCeiling(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want int64
	}{
		{"omitted", "scan:\n  hw_dir: rtl\n", DefaultMaxFileBytes},
		{"explicit zero", "scan:\n  max_file_bytes: 0\n", 0},
		{"explicit limit", "scan:\n  max_file_bytes: 4096\n", 4096},
		{"negative", "scan:\n  max_file_bytes: -5\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rtl_inventory.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			cfg, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.FileSizeCeiling())
		})
	}
	assert.Equal(t, DefaultMaxFileBytes, DefaultConfig().FileSizeCeiling())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	cfg := DefaultConfig()
	cfg.Scan.Exclude = []string{"hw/dpi/**"}

	require.NoError(t, cfg.Save(path))
	loaded, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Scan, loaded.Scan)
	assert.Equal(t, cfg.Extract, loaded.Extract)
	assert.Equal(t, cfg.Outputs, loaded.Outputs)
}

func TestLoadFindsRootConfig(t *testing.T) {
	root := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(root, "rtl_inventory.yaml"), []byte("classify:\n  rtl_root: src/rtl\n"), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "src/rtl", cfg.Classify.RTLRoot)
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/repo", "docs", "a.csv"), ResolvePath("/repo", "docs/a.csv"))
	assert.Equal(t, "/abs/a.csv", ResolvePath("/repo", "/abs/a.csv"))
}
