package indexer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/collector"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/config"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/extractor"
)

func writeSampleTree(t *testing.T, root string) {
	t.Helper()
	writeRTL(t, root, "hw/rtl/VX_cluster.sv", clusterSrc)
	writeRTL(t, root, "hw/rtl/VX_socket.sv", socketSrc)
	writeRTL(t, root, "hw/rtl/cache/VX_cache_bank.sv", strings.Join([]string{
		"`ifdef EXT_CACHE",
		"module VX_cache_bank #(",
		"  parameter NUM_BANKS = 4,",
		"  parameter WORD_SIZE = 4",
		") ();",
		"  VX_fifo #(.DEPTH(2)) fifo_i (.clk(clk));",
		"  wire VX_socket (a, b);",
		"  unknown_cell u_cell (.a(a));",
		"endmodule",
		"`endif",
	}, "\n"))
	writeRTL(t, root, "hw/rtl/libs/VX_fifo.v", "module VX_fifo (input clk);\nendmodule\n")
	writeRTL(t, root, "hw/rtl/core/VX_core.sv", "module VX_core ();\n  VX_fifo q_i (.clk(clk));\n  VX_cache_bank bank_i ();\nendmodule\n")
	writeRTL(t, root, "hw/README.md", "module not_a_source ();\n")
}

func TestRunBuildsIndex(t *testing.T) {
	dir := t.TempDir()
	writeSampleTree(t, dir)

	result := runIndexerForTest(t, NewWithConfig(defaultTestConfig(false)), dir)

	assert.Equal(t, 5, result.Files)
	assert.Empty(t, result.Skipped)
	require.Equal(t, 5, result.Index.ModulesTotal)

	byName := map[string]int{}
	for i, m := range result.Index.Modules {
		byName[m.ModuleName] = i
	}
	assert.Equal(t, []string{"VX_cache_bank", "VX_cluster", "VX_core", "VX_fifo", "VX_socket"}, result.Index.Names())

	socket := result.Index.Modules[byName["VX_socket"]]
	assert.Equal(t, []string{"VX_cluster"}, socket.InstantiatedBy)

	fifo := result.Index.Modules[byName["VX_fifo"]]
	assert.Equal(t, []string{"VX_cache_bank", "VX_core"}, fifo.InstantiatedBy)
	assert.Equal(t, "v", fifo.Language)

	bank := result.Index.Modules[byName["VX_cache_bank"]]
	assert.Equal(t, "EXT_CACHE", bank.GuardedByIfdef)
	assert.Equal(t, []string{"NUM_BANKS", "WORD_SIZE"}, bank.Parameters)
	assert.Equal(t, 2, bank.Line)
	assert.Equal(t, []string{"VX_core"}, bank.InstantiatedBy)

	assert.Equal(t, []extractor.Edge{
		{Child: "VX_cache_bank", Parent: "VX_core"},
		{Child: "VX_fifo", Parent: "VX_cache_bank"},
		{Child: "VX_fifo", Parent: "VX_core"},
		{Child: "VX_socket", Parent: "VX_cluster"},
	}, result.Edges)
}

func TestRunIsDeterministicAcrossWorkerCounts(t *testing.T) {
	dir := t.TempDir()
	writeSampleTree(t, dir)

	serialCfg := defaultTestConfig(false)
	serialCfg.Scan.Workers = 1
	serial := runIndexerForTest(t, NewWithConfig(serialCfg), dir)

	parallelCfg := defaultTestConfig(false)
	parallelCfg.Scan.Workers = 8
	for range 5 {
		parallel := runIndexerForTest(t, NewWithConfig(parallelCfg), dir)
		assert.Equal(t, serial.Index, parallel.Index)
		assert.Equal(t, serial.Edges, parallel.Edges)
	}
}

func TestWriteOutputsIsByteStable(t *testing.T) {
	dir := t.TempDir()
	writeSampleTree(t, dir)
	cfg := defaultTestConfig(false)

	read := func() ([]byte, []byte) {
		result := runIndexerForTest(t, NewWithConfig(cfg), dir)
		csvPath, jsonPath, err := WriteOutputs(dir, cfg, result.Index)
		require.NoError(t, err)
		csvBytes, err := os.ReadFile(csvPath)
		require.NoError(t, err)
		jsonBytes, err := os.ReadFile(jsonPath)
		require.NoError(t, err)
		return csvBytes, jsonBytes
	}

	csv1, json1 := read()
	csv2, json2 := read()
	assert.True(t, bytes.Equal(csv1, csv2))
	assert.True(t, bytes.Equal(json1, json2))
	assert.True(t, bytes.HasPrefix(csv1, []byte("module_name,file_path,language,line,guarded_by_ifdef,parameters,instantiated_by\r\n")))
	assert.Contains(t, string(json1), `"modules_total": 5`)
}

func TestRunSkipsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	writeRTL(t, dir, "hw/rtl/VX_socket.sv", socketSrc)
	writeRTL(t, dir, "hw/rtl/VX_huge.sv", "module VX_huge ();\n"+strings.Repeat("// padding\n", 64)+"endmodule\n")

	cfg := defaultTestConfig(false)
	cfg.Scan.MaxFileBytes = config.Int64Ptr(256)
	result := runIndexerForTest(t, NewWithConfig(cfg), dir)

	assert.Equal(t, 2, result.Files)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "hw/rtl/VX_huge.sv", result.Skipped[0].File)
	assert.Contains(t, result.Skipped[0].Reason, "size ceiling")
	assert.Equal(t, []string{"VX_socket"}, result.Index.Names())
}

func TestRunMissingRoot(t *testing.T) {
	idx := NewWithConfig(defaultTestConfig(false))
	idx.Logger = quietLogger()
	_, err := idx.Run(context.Background(), "/definitely/not/here")
	require.Error(t, err)
	assert.True(t, errors.Is(err, collector.ErrRootNotFound))
}

func TestRunHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	writeSampleTree(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	idx := NewWithConfig(defaultTestConfig(false))
	idx.Logger = quietLogger()
	_, err := idx.Run(ctx, dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestProgressOutput(t *testing.T) {
	dir := t.TempDir()
	writeRTL(t, dir, "hw/rtl/VX_cluster.sv", clusterSrc)

	var out bytes.Buffer
	idx := NewWithConfig(defaultTestConfig(false))
	idx.Progress = true
	idx.Trace = true
	idx.Out = &out
	runIndexerForTest(t, idx, dir)

	text := out.String()
	assert.Contains(t, text, "[1/1] hw/rtl/VX_cluster.sv (scanned, ")
	assert.Contains(t, text, "facts: modules=1 sites=1")
	assert.Contains(t, text, "modules: VX_cluster")
}

func TestSummarizeList(t *testing.T) {
	assert.Equal(t, "", summarizeList(nil, 3))
	assert.Equal(t, "a, b", summarizeList([]string{"b", "a"}, 3))
	assert.Equal(t, "a, b, ... (+2 more)", summarizeList([]string{"d", "c", "b", "a"}, 2))
}
