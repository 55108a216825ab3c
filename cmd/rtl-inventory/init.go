package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default rtl_inventory.yaml in the current directory",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := "rtl_inventory.yaml"

		if _, err := os.Stat(path); err == nil {
			fmt.Printf("Config file %s already exists. Overwrite? [y/N]: ", path)
			var response string
			fmt.Scanln(&response)
			if response != "y" && response != "Y" {
				fmt.Println("Aborted.")
				return
			}
		}

		cfg := config.DefaultConfig()
		if err := cfg.Save(path); err != nil {
			fail("creating config: %v", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Created %s\n", green("✓"), path)
		fmt.Println("\nEdit this file to configure:")
		fmt.Println("  - Hardware directory, extensions and exclude globs")
		fmt.Println("  - RTL root and top-candidate pattern for classification")
		fmt.Println("  - Audit rule severities")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
