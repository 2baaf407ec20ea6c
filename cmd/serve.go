package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/aporia-ai/vmsearch/pkg/logger"
	"github.com/aporia-ai/vmsearch/pkg/metrics"
	"github.com/aporia-ai/vmsearch/pkg/server"
)

var (
	serveAddr      string
	serveLogFormat string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search API over HTTP",
	Long:  `Serve POST /api/v1/find-cheapest-instance, /healthz and /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("log-level") {
			_ = logger.SetLogLevel("info")
		}

		cfg, err := loadConfig()
		if err != nil {
			logger.Fatalf("[!] Could not read config file: %s", err)
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = serveAddr
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Server.LogFormat = serveLogFormat
		}
		if err := logger.SetFormat(cfg.Server.LogFormat); err != nil {
			logger.Fatalf("[!] %s", err)
		}

		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		if err := metrics.InitMetrics(registry); err != nil {
			logger.Fatalf("[!] %s", err)
		}

		engine, err := buildEngine(cmd.Context(), cfg)
		if err != nil {
			logger.Fatalf("[!] Could not configure providers: %s", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := server.New(engine, registry).Run(ctx, cfg.Server.Addr); err != nil {
			logger.Fatalf("[!] %s", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().StringVar(&serveLogFormat, "log-format", "", "Log format (text/json)")
}
