package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aporia-ai/vmsearch/pkg/catalog"
	"github.com/aporia-ai/vmsearch/pkg/logger"
	"github.com/aporia-ai/vmsearch/pkg/report"
	"github.com/aporia-ai/vmsearch/pkg/search"
)

var (
	catalogOutput string
	catalogRegion string
	gpuOnly       bool
)

var catalogCmd = &cobra.Command{
	Use:       "catalog [aws|gcp]",
	Short:     "Print the normalized catalog of a provider",
	Long:      `Fetch and print a provider's catalog exactly as the search engine sees it, before any filtering.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"aws", "gcp"},
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			logger.Fatalf("[!] Could not read config file: %s", err)
		}
		if len(args) == 1 {
			if err := disableProviders(cfg, strings.ToLower(args[0])); err != nil {
				logger.Fatalf("[!] %s", err)
			}
		}

		engine, err := buildEngine(cmd.Context(), cfg)
		if err != nil {
			logger.Fatalf("[!] Could not configure providers: %s", err)
		}

		var instances []catalog.NormalizedInstance
		for _, src := range engine.Sources {
			ctx, cancel := context.WithTimeout(cmd.Context(), engine.Timeouts[src.Name()])
			list, err := src.FetchCatalog(ctx)
			cancel()
			if err != nil {
				logger.Errorf("[!] %s", err)
				continue
			}
			instances = append(instances, list...)
		}
		instances = selectInstances(instances, catalogRegion, gpuOnly)

		if catalogOutput == outputJSON {
			if err := report.WriteJSON(os.Stdout, instances); err != nil {
				logger.Fatalf("[!] %s", err)
			}
			return
		}
		report.DisplayResults(os.Stdout, search.Rank(instances, search.PreferPrice))
	},
}

func selectInstances(instances []catalog.NormalizedInstance, region string, gpuOnly bool) []catalog.NormalizedInstance {
	var out []catalog.NormalizedInstance
	for _, inst := range instances {
		if region != "" && inst.Region != region {
			continue
		}
		if gpuOnly && !inst.HasGPU() {
			continue
		}
		out = append(out, inst)
	}
	return out
}

func init() {
	rootCmd.AddCommand(catalogCmd)

	catalogCmd.Flags().StringVarP(&catalogOutput, "output", "o", outputTable, "Output format (table/json)")
	catalogCmd.Flags().StringVar(&catalogRegion, "region", "", "Only print instances in this region")
	catalogCmd.Flags().BoolVar(&gpuOnly, "gpu-only", false, "Only print instances with GPUs")
}
