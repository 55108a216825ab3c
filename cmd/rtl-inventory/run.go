package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/indexer"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/report"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build the index and render the report in one pass",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root := resolveRoot()
		cfg := loadConfig(root)

		result := runIndex(cmd, root, cfg)
		csvPath, jsonPath, err := indexer.WriteOutputs(root, cfg, result.Index)
		if err != nil {
			fail("%v", err)
		}
		printIndexSummary(result, csvPath, jsonPath)

		summary, err := report.GenerateFromIndex(context.Background(), root, cfg, result.Index, reportOptions(cmd))
		if err != nil {
			fail("%v", err)
		}
		printReportSummary(summary)
	},
}

func init() {
	addIndexFlags(runCmd)
	addReportFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
