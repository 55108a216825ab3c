package main

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/indexer"
)

var impactCmd = &cobra.Command{
	Use:   "impact <module>",
	Short: "List every module that transitively instantiates a module",
	Long: `Walk the instantiated-by relation upward from a module and print its
instantiators level by level. Reads the JSON index unless --rebuild is given.

Example:
  rtl-inventory impact VX_fifo
  rtl-inventory impact VX_cache_bank --rebuild --json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root := resolveRoot()
		cfg := loadConfig(root)

		index := loadIndex(cmd, root, cfg)

		if !slices.Contains(index.Names(), args[0]) {
			fail("module %q is not declared in the index", args[0])
		}

		result := indexer.Impact(index, args[0])
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				fail("%v", err)
			}
			return
		}

		bold := color.New(color.Bold).SprintFunc()
		fmt.Printf("%s instantiated transitively by %d modules\n", bold(args[0]), result.Total())
		fmt.Print(result.Format())
	},
}

func init() {
	addIndexFlags(impactCmd)
	impactCmd.Flags().Bool("rebuild", false, "Scan the tree instead of reading the JSON index")
	impactCmd.Flags().Bool("json", false, "Print the levels as JSON")
	rootCmd.AddCommand(impactCmd)
}
