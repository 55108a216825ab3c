package e2e

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// designTree is a small Vortex-shaped hardware tree. VX_dead is never
// instantiated; the wire and unknown_cell lines must not produce edges.
var designTree = map[string]string{
	"hw/rtl/VX_cluster.sv": lines(
		"module VX_cluster #(",
		"  parameter CLUSTER_ID = 0",
		") (input clk);",
		"  VX_socket socket_i (.clk(clk));",
		"endmodule",
	),
	"hw/rtl/VX_socket.sv": lines(
		"module VX_socket (input clk);",
		"  VX_core core_i (.clk(clk));",
		"endmodule",
	),
	"hw/rtl/core/VX_core.sv": lines(
		"module VX_core (input clk);",
		"  wire VX_fifo (a, b);",
		"  VX_cache_bank #(.NUM_BANKS(2)) bank_i (.clk(clk));",
		"  VX_fifo q_i (.clk(clk));",
		"endmodule",
	),
	"hw/rtl/core/VX_dead.sv": lines(
		"// unused",
		"module VX_dead ();",
		"endmodule",
	),
	"hw/rtl/cache/VX_cache_bank.sv": lines(
		"`ifdef EXT_CACHE",
		"module VX_cache_bank #(",
		"  parameter NUM_BANKS = 4",
		") (input clk);",
		"  VX_fifo #(.DEPTH(2)) fifo_i (.clk(clk));",
		"  unknown_cell u_cell (.a(clk));",
		"endmodule",
		"`endif",
	),
	"hw/rtl/libs/VX_fifo.v": lines(
		"module VX_fifo (input clk);",
		"endmodule",
	),
	"hw/syn/notes.md": "module not_rtl ();\n",
}

func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}
