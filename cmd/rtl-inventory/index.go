package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/config"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/facts"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/indexer"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/validator"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Scan the hardware tree and write the module index",
	Long: `Collect every .sv/.v file under the hardware directory, scan module
declarations and instantiation sites, and write the CSV and JSON index.

Example:
  rtl-inventory index
  rtl-inventory index --progress --trace
  rtl-inventory index --timing --timing-path /tmp/scan.jsonl`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root := resolveRoot()
		cfg := loadConfig(root)

		if clearCache, _ := cmd.Flags().GetBool("clear-cache"); clearCache {
			dir, err := indexer.ClearCache(root, cfg)
			if err != nil {
				fail("clearing cache: %v", err)
			}
			fmt.Printf("cleared cache %s\n", dir)
		}

		result := runIndex(cmd, root, cfg)
		csvPath, jsonPath, err := indexer.WriteOutputs(root, cfg, result.Index)
		if err != nil {
			fail("%v", err)
		}
		printIndexSummary(result, csvPath, jsonPath)
	},
}

func init() {
	addIndexFlags(indexCmd)
	indexCmd.Flags().Bool("clear-cache", false, "Remove the scan cache before indexing")
	rootCmd.AddCommand(indexCmd)
}

func addIndexFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("progress", false, "Print one line per scanned file")
	cmd.Flags().Bool("trace", false, "Include per-file declaration summaries (implies --progress)")
	cmd.Flags().Bool("timing", false, "Write per-stage timing events as JSONL")
	cmd.Flags().String("timing-path", "", "Timing JSONL path (default <repo>/timing.jsonl)")
}

// runIndex builds the index with the shared index flags, exiting on failure.
func runIndex(cmd *cobra.Command, root string, cfg *config.Config) *indexer.Result {
	idx := indexer.NewWithConfig(cfg)
	idx.Progress, _ = cmd.Flags().GetBool("progress")
	idx.Trace, _ = cmd.Flags().GetBool("trace")
	idx.Progress = idx.Progress || idx.Trace
	idx.Timing, _ = cmd.Flags().GetBool("timing")
	idx.TimingPath, _ = cmd.Flags().GetString("timing-path")
	if idx.TimingPath != "" {
		idx.Timing = true
	}

	result, err := idx.Run(context.Background(), root)
	if err != nil {
		fail("%v", err)
	}
	return result
}

// loadIndex returns a freshly built index with --rebuild, otherwise the
// configured JSON index after its contract check.
func loadIndex(cmd *cobra.Command, root string, cfg *config.Config) facts.Index {
	if rebuild, _ := cmd.Flags().GetBool("rebuild"); rebuild {
		return runIndex(cmd, root, cfg).Index
	}
	index, err := validator.LoadIndex(config.ResolvePath(root, cfg.Outputs.IndexJSON))
	if err != nil {
		fail("%v (run `rtl-inventory index` first or pass --rebuild)", err)
	}
	return index
}

func printIndexSummary(result *indexer.Result, csvPath, jsonPath string) {
	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Printf("rtl_files=%d\n", result.Files)
	fmt.Printf("modules=%d\n", result.Index.ModulesTotal)
	if len(result.Skipped) > 0 {
		fmt.Printf("skipped=%s\n", yellow(len(result.Skipped)))
		for _, s := range result.Skipped {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", s.File, s.Reason)
		}
	}
	if result.CacheHits > 0 {
		fmt.Printf("cache_hits=%d\n", result.CacheHits)
	}
	fmt.Printf("csv=%s\n", cyan(csvPath))
	fmt.Printf("json=%s\n", cyan(jsonPath))
}
