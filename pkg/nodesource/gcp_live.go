package nodesource

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/aporia-ai/vmsearch/pkg/catalog"
	"github.com/aporia-ai/vmsearch/pkg/gpualias"
	"github.com/aporia-ai/vmsearch/pkg/logger"
)

const (
	DefaultComputeEndpoint = "https://compute.googleapis.com/compute/v1"
	maxMachineTypePages    = 20
)

// GCPLiveNodeSource lists machine types with the Compute Engine
// aggregated/machineTypes call. Token is an OAuth access token resolved by
// the caller.
type GCPLiveNodeSource struct {
	Project       string
	Token         string
	Endpoint      string
	Regions       []string
	InstanceTypes []*regexp.Regexp
	Spot          bool
	Aliases       *gpualias.Table

	client *resty.Client
}

func (s *GCPLiveNodeSource) Name() catalog.Provider {
	return catalog.GCP
}

func (s *GCPLiveNodeSource) restyClient() *resty.Client {
	if s.client == nil {
		endpoint := s.Endpoint
		if endpoint == "" {
			endpoint = DefaultComputeEndpoint
		}
		s.client = resty.New()
		s.client.SetBaseURL(endpoint)
		s.client.SetAuthToken(s.Token)
	}
	return s.client
}

func (s *GCPLiveNodeSource) FetchCatalog(ctx context.Context) ([]catalog.NormalizedInstance, error) {
	if s.Project == "" {
		return nil, Unavailable(catalog.GCP, errors.New("no gcp project configured"))
	}
	if s.Token == "" {
		return nil, Unavailable(catalog.GCP, errors.New("no gcp access token"))
	}

	regions := regionsOrDefault(s.Regions, DefaultGCPRegions)
	byRegion, err := s.listMachineTypes(ctx, regions)
	if err != nil {
		return nil, Unavailable(catalog.GCP, err)
	}

	file, err := embeddedGCPCatalog()
	if err != nil {
		return nil, Unavailable(catalog.GCP, err)
	}

	var out []catalog.NormalizedInstance
	for _, region := range regions {
		for _, m := range file.Attachable.withAttachedGPUs(byRegion[region]) {
			if !matchesAny(m.Name, s.InstanceTypes) {
				continue
			}
			records, err := gcpRecords(s.Aliases, m, region, s.Spot)
			if err != nil {
				logger.Debugf("Skipping %s in %s: %s", m.Name, region, err)
				continue
			}
			out = append(out, records...)
		}
	}
	if len(out) == 0 {
		return nil, Unavailable(catalog.GCP, errEmptyCatalog)
	}
	sortCatalog(out)
	return out, nil
}

// listMachineTypes pages through aggregated/machineTypes and groups the
// machine types of the wanted regions, one entry per name and region.
func (s *GCPLiveNodeSource) listMachineTypes(ctx context.Context, regions []string) (map[string][]gcpMachineType, error) {
	out := map[string][]gcpMachineType{}
	seen := map[string]bool{}
	path := fmt.Sprintf("/projects/%s/aggregated/machineTypes", s.Project)
	pageToken := ""

	for page := 0; page < maxMachineTypePages; page++ {
		req := s.restyClient().R().
			SetContext(ctx).
			SetQueryParam("maxResults", "500").
			SetQueryParam("returnPartialSuccess", "true")
		if pageToken != "" {
			req.SetQueryParam("pageToken", pageToken)
		}
		res, err := req.Get(path)
		if err != nil {
			return nil, errors.Wrap(err, "listing gcp machine types")
		}
		if res.IsError() {
			return nil, errors.Errorf("listing gcp machine types: %s: %s", res.Status(),
				gjson.GetBytes(res.Body(), "error.message").String())
		}

		body := res.Body()
		if !gjson.ValidBytes(body) {
			return nil, errors.New("listing gcp machine types: malformed response")
		}
		gjson.GetBytes(body, "items").ForEach(func(scope, value gjson.Result) bool {
			value.Get("machineTypes").ForEach(func(_, mt gjson.Result) bool {
				m, region, ok := parseMachineType(mt, scope.String())
				if !ok || !lo.Contains(regions, region) {
					return true
				}
				key := region + "/" + m.Name
				if !seen[key] {
					seen[key] = true
					out[region] = append(out[region], m)
				}
				return true
			})
			return true
		})

		pageToken = gjson.GetBytes(body, "nextPageToken").String()
		if pageToken == "" {
			return out, nil
		}
	}
	logger.Warnf("GCP machine type listing stopped after %d pages, catalog may be incomplete", maxMachineTypePages)
	return out, nil
}

func parseMachineType(mt gjson.Result, scope string) (gcpMachineType, string, bool) {
	name := mt.Get("name").String()
	if name == "" || strings.Contains(name, "custom") || mt.Get("deprecated.state").Exists() {
		return gcpMachineType{}, "", false
	}
	zone := mt.Get("zone").String()
	if zone == "" {
		zone = strings.TrimPrefix(scope, "zones/")
	}

	m := gcpMachineType{
		Name:     name,
		VCPU:     int(mt.Get("guestCpus").Int()),
		MemoryGB: mt.Get("memoryMb").Float() / 1024,
	}
	if gcpSeries(name) == "t2a" || gcpSeries(name) == "c4a" {
		m.Arch = "arm64"
	}
	mt.Get("accelerators").ForEach(func(_, a gjson.Result) bool {
		m.Accelerators = append(m.Accelerators, accelerator{
			Type:  a.Get("guestAcceleratorType").String(),
			Count: int(a.Get("guestAcceleratorCount").Int()),
		})
		return true
	})
	return m, zoneRegion(zone), true
}
