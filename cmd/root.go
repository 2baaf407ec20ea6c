package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aporia-ai/vmsearch/pkg/logger"
)

var (
	logLevel   string
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "vmsearch",
	Short: "Find the best virtual machine across AWS and GCP",
	Long: `vmsearch searches the AWS and GCP instance catalogs for machines that
satisfy a set of hardware constraints and ranks them by price or performance.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := logger.SetLogLevel(logLevel); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize()
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "error", "set the log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to the configuration file")
}
