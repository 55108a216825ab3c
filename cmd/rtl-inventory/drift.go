package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/facts"
	"github.com/robert-at-pretension-io/rtl-inventory/internal/validator"
)

var driftCmd = &cobra.Command{
	Use:   "drift <old.json> <new.json>",
	Short: "Compare two index snapshots",
	Long: `Report module declarations added, removed or changed between two JSON
index snapshots. Declarations are matched by name, file and guard.

Example:
  rtl-inventory drift docs/old_index.json docs/rtl_modules_index.json
  rtl-inventory drift old.json new.json --path hw/rtl/cache --diff`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		prev, err := validator.LoadIndex(args[0])
		if err != nil {
			fail("%v", err)
		}
		next, err := validator.LoadIndex(args[1])
		if err != nil {
			fail("%v", err)
		}

		paths, _ := cmd.Flags().GetStringSlice("path")
		if len(paths) > 0 {
			prev = facts.FilterIndexByPaths(prev, paths)
			next = facts.FilterIndexByPaths(next, paths)
		}
		delta := facts.ComputeDelta(prev, next)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(delta); err != nil {
				fail("%v", err)
			}
			return
		}

		if showDiff, _ := cmd.Flags().GetBool("diff"); showDiff {
			text, err := facts.UnifiedCSVDiff(args[0], prev, args[1], next)
			if err != nil {
				fail("%v", err)
			}
			fmt.Print(text)
			return
		}

		printDelta(delta)
	},
}

func init() {
	driftCmd.Flags().Bool("json", false, "Print the delta as JSON")
	driftCmd.Flags().Bool("diff", false, "Print a unified diff of the CSV exports")
	driftCmd.Flags().StringSlice("path", nil, "Restrict to files under these paths (repeatable)")
	rootCmd.AddCommand(driftCmd)
}

func printDelta(d facts.Delta) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	if d.Empty() {
		fmt.Println("no drift")
		return
	}
	for _, m := range d.Added {
		fmt.Printf("%s %s %s:%d\n", green("+"), m.ModuleName, m.FilePath, m.Line)
	}
	for _, m := range d.Removed {
		fmt.Printf("%s %s %s:%d\n", red("-"), m.ModuleName, m.FilePath, m.Line)
	}
	for _, c := range d.Changed {
		fmt.Printf("%s %s %s:%d (%s)\n", yellow("~"), c.After.ModuleName, c.After.FilePath, c.After.Line, strings.Join(c.Fields, ", "))
	}
	fmt.Printf("\nadded=%d removed=%d changed=%d\n", len(d.Added), len(d.Removed), len(d.Changed))
}
