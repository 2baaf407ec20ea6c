package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aporia-ai/vmsearch/pkg/logger"
	"github.com/aporia-ai/vmsearch/pkg/report"
)

var aliasesOutput string

var aliasesCmd = &cobra.Command{
	Use:   "aliases [gpu]",
	Short: "Print the GPU alias table, or resolve a GPU name",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			logger.Fatalf("[!] Could not read config file: %s", err)
		}
		aliases, err := loadAliases(cfg)
		if err != nil {
			logger.Fatalf("[!] Could not load GPU alias table: %s", err)
		}

		if len(args) == 1 {
			family, ok := aliases.Resolve(args[0])
			if !ok {
				fmt.Printf("%s does not match any GPU family; searches fall back to substring matching\n", args[0])
				return
			}
			if aliasesOutput == outputJSON {
				if err := report.WriteJSON(os.Stdout, family); err != nil {
					logger.Fatalf("[!] %s", err)
				}
				return
			}
			fmt.Printf("%s resolves to %s\n", args[0], family.Name)
			return
		}

		if aliasesOutput == outputJSON {
			if err := report.WriteJSON(os.Stdout, aliases.Families()); err != nil {
				logger.Fatalf("[!] %s", err)
			}
			return
		}
		report.DisplayAliases(os.Stdout, aliases)
	},
}

func init() {
	rootCmd.AddCommand(aliasesCmd)

	aliasesCmd.Flags().StringVarP(&aliasesOutput, "output", "o", outputTable, "Output format (table/json)")
}
