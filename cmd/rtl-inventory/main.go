// Command rtl-inventory scans a hardware tree for Verilog/SystemVerilog
// module declarations and renders a subsystem-grouped inventory.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/config"
)

var (
	configPath string
	repoRoot   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "rtl-inventory",
	Short: "Inventory RTL module declarations and where they are instantiated",
	Long: `rtl-inventory walks the hardware subtree of a repository, records every
Verilog/SystemVerilog module declaration with its guard, parameters and
instantiators, and writes a CSV/JSON index plus a Markdown/CSV report grouped
by subsystem.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: search rtl_inventory.yaml)")
	rootCmd.PersistentFlags().StringVar(&repoRoot, "repo-root", ".", "Repository root to scan")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveRoot returns the absolute repository root or exits.
func resolveRoot() string {
	abs, err := filepath.Abs(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid repo root %q: %v\n", repoRoot, err)
		os.Exit(1)
	}
	return abs
}

// loadConfig reads --config when given, otherwise walks the search order.
func loadConfig(root string) *config.Config {
	if configPath != "" {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	cfg, err := config.Load(root)
	if err != nil {
		slog.Warn("could not load config, using defaults", "error", err)
		return config.DefaultConfig()
	}
	return cfg
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
