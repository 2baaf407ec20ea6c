package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aporia-ai/vmsearch/pkg/logger"
	"github.com/aporia-ai/vmsearch/pkg/report"
	"github.com/aporia-ai/vmsearch/pkg/search"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

var (
	criteria     search.Criteria
	preference   string
	onlyProvider string
	outputFormat string
	limit        int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find the best matching instances",
	Long: `Search both provider catalogs for instances with at least the requested
vCPU, memory, GPUs and storage, ranked by price or performance.`,
	Example: `  vmsearch search --vcpu 4 --ram 16 --gpu-type nvidia-tesla-a100
  vmsearch search --vcpu 8 --ram 32 --preference performance --limit 5
  vmsearch search --vcpu 1 --ram 1 --instance-type t2.micro`,
	Run: func(cmd *cobra.Command, args []string) {
		if outputFormat != outputTable && outputFormat != outputJSON {
			logger.Fatalf("[!] Unknown output format %q", outputFormat)
		}

		cfg, err := loadConfig()
		if err != nil {
			logger.Fatalf("[!] Could not read config file: %s", err)
		}
		if err := disableProviders(cfg, onlyProvider); err != nil {
			logger.Fatalf("[!] %s", err)
		}
		if cmd.Flags().Changed("limit") {
			cfg.Search.Limit = limit
		}

		engine, err := buildEngine(cmd.Context(), cfg)
		if err != nil {
			logger.Fatalf("[!] Could not configure providers: %s", err)
		}
		if outputFormat == outputTable {
			bar, onFetch := report.FetchProgress(len(engine.Sources))
			engine.OnFetch = onFetch
			defer func() { _ = bar.Finish() }()
		}

		criteria.Preference = search.Preference(preference)
		results, err := engine.FindOptimalVM(cmd.Context(), criteria)
		if err != nil {
			logger.Fatalf("[!] Search failed: %s", err)
		}

		if outputFormat == outputJSON {
			if err := report.WriteJSON(os.Stdout, results); err != nil {
				logger.Fatalf("[!] %s", err)
			}
			return
		}
		fmt.Println() // keep the table clear of the progress bar
		report.DisplayResults(os.Stdout, results)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Float64Var(&criteria.VCPU, "vcpu", 0, "Minimum number of vCPUs")
	searchCmd.Flags().Float64Var(&criteria.RAMGB, "ram", 0, "Minimum memory in GB")
	searchCmd.Flags().StringVar(&criteria.GPUType, "gpu-type", "", "GPU model, alias or instance type, e.g. nvidia-tesla-a100, h100, p4d")
	searchCmd.Flags().IntVar(&criteria.GPUCount, "gpu-count", 0, "Minimum number of GPUs (1 when --gpu-type is set)")
	searchCmd.Flags().Float64Var(&criteria.StorageGB, "storage-gb", 0, "Disk size in GB that must be attachable")
	searchCmd.Flags().StringVar(&criteria.StorageType, "storage-type", "", "Disk type (gp3, pd-ssd) or class (ssd, hdd)")
	searchCmd.Flags().StringVar(&criteria.InstanceType, "instance-type", "", "Exact instance type; overrides every other constraint")
	searchCmd.Flags().StringVar(&criteria.UserIPAddress, "ip", "127.0.0.1", "Caller IP address")
	searchCmd.Flags().StringVar(&preference, "preference", string(search.PreferPrice), "Rank by price or performance")
	searchCmd.Flags().StringVar(&onlyProvider, "provider", "", "Search a single provider (aws/gcp)")
	searchCmd.Flags().StringVarP(&outputFormat, "output", "o", outputTable, "Output format (table/json)")
	searchCmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results, 0 for all")
}
