package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/facts"
)

func TestImpactExpansion(t *testing.T) {
	idx := facts.NewIndex([]facts.ModuleRow{
		{ModuleName: "VX_fifo", FilePath: "hw/rtl/libs/VX_fifo.sv", Line: 1, InstantiatedBy: []string{"VX_cache", "VX_alu"}},
		{ModuleName: "VX_cache", FilePath: "hw/rtl/cache/VX_cache.sv", Line: 1, InstantiatedBy: []string{"VX_socket"}},
		{ModuleName: "VX_alu", FilePath: "hw/rtl/core/VX_alu.sv", Line: 1, InstantiatedBy: []string{"VX_core", "VX_alu"}},
		{ModuleName: "VX_core", FilePath: "hw/rtl/core/VX_core.sv", Line: 1, InstantiatedBy: []string{"VX_socket"}},
		{ModuleName: "VX_socket", FilePath: "hw/rtl/VX_socket.sv", Line: 1, InstantiatedBy: []string{"VX_cluster"}},
	})

	report := Impact(idx, "VX_fifo")
	require.Len(t, report.Levels, 3)
	assert.Equal(t, []string{"VX_alu", "VX_cache"}, report.Levels[0])
	assert.Equal(t, []string{"VX_core", "VX_socket"}, report.Levels[1])
	assert.Equal(t, []string{"VX_cluster"}, report.Levels[2])
	assert.Equal(t, 5, report.Total())

	text := report.Format()
	assert.Contains(t, text, "  VX_fifo\n")
	assert.Contains(t, text, "    level 1 (2): VX_alu, VX_cache\n")
}

func TestImpactUnknownModule(t *testing.T) {
	report := Impact(facts.NewIndex(nil), "VX_missing")
	assert.Equal(t, "VX_missing", report.Root)
	assert.Empty(t, report.Levels)
	assert.Equal(t, 0, report.Total())
}
