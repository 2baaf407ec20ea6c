package cmd

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/aporia-ai/vmsearch/pkg/catalog"
	"github.com/aporia-ai/vmsearch/pkg/config"
	"github.com/aporia-ai/vmsearch/pkg/gpualias"
	"github.com/aporia-ai/vmsearch/pkg/logger"
	"github.com/aporia-ai/vmsearch/pkg/nodesource"
	"github.com/aporia-ai/vmsearch/pkg/search"
)

// loadConfig reads --config, or falls back to the defaults.
func loadConfig() (*config.Config, error) {
	if configFile == "" {
		cfg := config.NewConfig()
		return cfg, cfg.Validate()
	}
	cfg, err := config.ParseConfig(configFile)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"path": configFile}).Debug("loaded config")
	return cfg, nil
}

func loadAliases(cfg *config.Config) (*gpualias.Table, error) {
	if cfg.GPUAliasFile == "" {
		return gpualias.Default()
	}
	return gpualias.LoadFile(cfg.GPUAliasFile)
}

// buildEngine wires the alias table, node sources and timeouts from cfg.
func buildEngine(ctx context.Context, cfg *config.Config) (*search.Engine, error) {
	aliases, err := loadAliases(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debugf("Using GPU alias table %s", aliases.Version())

	sources, err := nodesource.ConfigureNodeSources(ctx, cfg, aliases)
	if err != nil {
		return nil, err
	}

	timeout, err := cfg.Search.Timeout()
	if err != nil {
		return nil, err
	}
	engine := search.NewEngine(sources, aliases)
	engine.ProviderTimeout = timeout
	engine.Limit = cfg.Search.Limit
	engine.Timeouts = map[catalog.Provider]time.Duration{}
	for p, pc := range map[catalog.Provider]*config.ProviderConfig{catalog.AWS: cfg.Providers.AWS, catalog.GCP: cfg.Providers.GCP} {
		if pc == nil {
			continue
		}
		d, err := pc.FetchTimeout(timeout)
		if err != nil {
			return nil, errors.Wrap(err, string(p))
		}
		engine.Timeouts[p] = d
	}
	return engine, nil
}

// disableProviders turns off every provider not named in only.
func disableProviders(cfg *config.Config, only string) error {
	switch only {
	case "":
		return nil
	case "aws":
		if cfg.Providers.GCP != nil {
			cfg.Providers.GCP.Enabled = false
		}
	case "gcp":
		if cfg.Providers.AWS != nil {
			cfg.Providers.AWS.Enabled = false
		}
	default:
		return errors.Errorf("unknown provider %q (aws, gcp)", only)
	}
	return nil
}
