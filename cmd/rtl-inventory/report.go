package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the subsystem report from an existing index",
	Long: `Load the JSON index, check it against the index contract, classify each
declaration into a subsystem and write the Markdown and CSV reports.

Example:
  rtl-inventory report
  rtl-inventory report --subsystem cache,mem --project Vortex`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root := resolveRoot()
		cfg := loadConfig(root)

		opts := reportOptions(cmd)
		opts.IndexPath, _ = cmd.Flags().GetString("index")

		summary, err := report.Generate(context.Background(), root, cfg, opts)
		if err != nil {
			fail("%v", err)
		}
		printReportSummary(summary)
	},
}

func init() {
	addReportFlags(reportCmd)
	reportCmd.Flags().String("index", "", "Index JSON to read (default outputs.index_json)")
	rootCmd.AddCommand(reportCmd)
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().String("subsystem", "", "Comma-separated subsystems to render (default all)")
	cmd.Flags().String("project", "", "Project name for the report title (default repo directory name)")
}

func reportOptions(cmd *cobra.Command) report.Options {
	opts := report.Options{Logger: slog.Default()}
	opts.Project, _ = cmd.Flags().GetString("project")
	if list, _ := cmd.Flags().GetString("subsystem"); strings.TrimSpace(list) != "" {
		opts.Subsystems = strings.Split(list, ",")
	}
	return opts
}

func printReportSummary(s *report.Summary) {
	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("records=%d\n", s.Records)
	fmt.Printf("csv=%s\n", cyan(s.CSVPath))
	fmt.Printf("md=%s\n", cyan(s.MDPath))
	if verbose {
		for _, c := range s.Counts {
			fmt.Printf("  %s %d\n", gray(c.Subsystem), c.Modules)
		}
	}
}
