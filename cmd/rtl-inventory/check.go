package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/classify"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/policy"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Audit the classified index with the inventory rules",
	Long: `Evaluate the embedded inventory rules against the classified index:

  orphan_module                    no instantiators and not a top candidate
  duplicate_unguarded_declaration  same module declared twice without a guard
  library_depends_on_subsystem     a libs module instantiates a subsystem module

Severities come from check.rules in rtl_inventory.yaml. With --fail-on the
command exits 1 when any violation reaches the given severity.

Example:
  rtl-inventory check
  rtl-inventory check --rebuild --fail-on warning`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root := resolveRoot()
		cfg := loadConfig(root)

		failOn, _ := cmd.Flags().GetString("fail-on")
		if failOn != "" && !policy.ValidSeverity(failOn) {
			fail("invalid --fail-on %q (want info, warning or error)", failOn)
		}

		index := loadIndex(cmd, root, cfg)

		classifier, err := classify.New(cfg.Classify.RTLRoot, cfg.Classify.TopCandidatePattern)
		if err != nil {
			fail("%v", err)
		}

		ctx := context.Background()
		engine, err := policy.New(ctx)
		if err != nil {
			fail("%v", err)
		}
		result, err := engine.Evaluate(ctx, policy.BuildInput(classifier.ClassifyIndex(index), cfg))
		if err != nil {
			fail("%v", err)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				fail("%v", err)
			}
		} else {
			printViolations(result)
		}

		if failOn != "" && result.Exceeds(failOn) {
			os.Exit(1)
		}
	},
}

func init() {
	addIndexFlags(checkCmd)
	checkCmd.Flags().Bool("rebuild", false, "Scan the tree instead of reading the JSON index")
	checkCmd.Flags().Bool("json", false, "Print violations as JSON")
	checkCmd.Flags().String("fail-on", "", "Exit 1 when a violation reaches this severity (info, warning, error)")
	rootCmd.AddCommand(checkCmd)
}

func printViolations(r *policy.Result) {
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	for _, v := range r.Violations {
		sev := gray(v.Severity)
		switch v.Severity {
		case "error":
			sev = red(v.Severity)
		case "warning":
			sev = yellow(v.Severity)
		}
		fmt.Printf("%s:%d: %s [%s] %s\n", v.File, v.Line, sev, v.Rule, v.Message)
	}
	fmt.Printf("violations=%d errors=%d warnings=%d info=%d\n",
		r.Summary.TotalViolations, r.Summary.Errors, r.Summary.Warnings, r.Summary.Info)
}
