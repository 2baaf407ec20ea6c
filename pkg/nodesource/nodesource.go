package nodesource

import (
	"context"
	"fmt"
	"os"
	"regexp"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/pkg/errors"

	"github.com/aporia-ai/vmsearch/pkg/catalog"
	"github.com/aporia-ai/vmsearch/pkg/config"
	"github.com/aporia-ai/vmsearch/pkg/gpualias"
	"github.com/aporia-ai/vmsearch/pkg/logger"
)

// NodeSource produces the normalized catalog of one provider.
type NodeSource interface {
	Name() catalog.Provider
	FetchCatalog(ctx context.Context) ([]catalog.NormalizedInstance, error)
}

// ProviderUnavailable is returned by a NodeSource whenever it cannot produce
// a catalog, including when the provider returned nothing at all.
type ProviderUnavailable struct {
	Provider catalog.Provider
	Err      error
}

func (e *ProviderUnavailable) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderUnavailable) Unwrap() error {
	return e.Err
}

// Cause lets errors.Cause walk through to the underlying failure.
func (e *ProviderUnavailable) Cause() error {
	return e.Err
}

// Unavailable wraps err as a ProviderUnavailable for p. An error that is
// already a ProviderUnavailable is returned as is.
func Unavailable(p catalog.Provider, err error) error {
	var pu *ProviderUnavailable
	if errors.As(err, &pu) {
		return err
	}
	return &ProviderUnavailable{Provider: p, Err: err}
}

var errEmptyCatalog = errors.New("catalog is empty")

// ConfigureNodeSources builds the enabled node sources in canonical provider
// order (AWS, then GCP).
func ConfigureNodeSources(ctx context.Context, cfg *config.Config, aliases *gpualias.Table) ([]NodeSource, error) {
	var sources []NodeSource

	if aws := cfg.Providers.AWS; aws != nil && aws.Enabled {
		patterns, err := compilePatterns(aws.InstanceTypes)
		if err != nil {
			return nil, errors.Wrap(err, "aws instanceTypes")
		}
		switch aws.Mode {
		case config.ModeLive:
			awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "could not load aws credentials")
			}
			sources = append(sources, &AWSLiveNodeSource{
				Regions:       aws.Regions,
				InstanceTypes: patterns,
				Spot:          aws.SpotEnabled(),
				Aliases:       aliases,
				NewClient: func(region string) EC2API {
					return ec2.NewFromConfig(awsCfg, func(o *ec2.Options) {
						o.Region = region
					})
				},
			})
		default:
			sources = append(sources, &AWSNodeSource{
				Regions:       aws.Regions,
				InstanceTypes: patterns,
				Spot:          aws.SpotEnabled(),
				Aliases:       aliases,
			})
		}
		logger.Infof("Using provider AWS (%s) in %d regions", aws.Mode, len(aws.Regions))
	}

	if gcp := cfg.Providers.GCP; gcp != nil && gcp.Enabled {
		patterns, err := compilePatterns(gcp.InstanceTypes)
		if err != nil {
			return nil, errors.Wrap(err, "gcp instanceTypes")
		}
		switch gcp.Mode {
		case config.ModeLive:
			sources = append(sources, &GCPLiveNodeSource{
				Project:       gcp.Project,
				Token:         os.Getenv(gcp.TokenEnv),
				Endpoint:      gcp.Endpoint,
				Regions:       gcp.Regions,
				InstanceTypes: patterns,
				Spot:          gcp.SpotEnabled(),
				Aliases:       aliases,
			})
		default:
			sources = append(sources, &GCPNodeSource{
				Regions:       gcp.Regions,
				InstanceTypes: patterns,
				Spot:          gcp.SpotEnabled(),
				Aliases:       aliases,
			})
		}
		logger.Infof("Using provider GCP (%s) in %d regions", gcp.Mode, len(gcp.Regions))
	}

	if len(sources) == 0 {
		return nil, errors.New("no provider enabled")
	}
	return sources, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	var out []*regexp.Regexp
	for _, p := range patterns {
		if p == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "bad instance type pattern %q", p)
		}
		out = append(out, re)
	}
	return out, nil
}

// matchesAny reports whether value matches one of patterns. No patterns
// means everything matches.
func matchesAny(value string, patterns []*regexp.Regexp) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, re := range patterns {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

func regionsOrDefault(regions, defaults []string) []string {
	if len(regions) == 0 {
		return defaults
	}
	return regions
}
