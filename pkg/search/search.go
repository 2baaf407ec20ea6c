package search

import (
	"context"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/aporia-ai/vmsearch/pkg/catalog"
	"github.com/aporia-ai/vmsearch/pkg/gpualias"
	"github.com/aporia-ai/vmsearch/pkg/logger"
	"github.com/aporia-ai/vmsearch/pkg/metrics"
	"github.com/aporia-ai/vmsearch/pkg/nodesource"
)

const DefaultProviderTimeout = 20 * time.Second

// Search states, logged at debug level as a search progresses.
const (
	StateFetchingCatalogs       = "FetchingCatalogs"
	StatePartialProviderFailure = "PartialProviderFailure"
	StateFiltering              = "Filtering"
	StateRanking                = "Ranking"
	StateDone                   = "Done"
	StateFailed                 = "Failed"
)

// FetchEvent reports the end of one provider's catalog fetch.
type FetchEvent struct {
	Provider  catalog.Provider
	Instances int
	Duration  time.Duration
	Err       error
}

// Engine fetches every provider catalog concurrently, then filters and ranks
// the merged result. Provider failures are tolerated as long as one provider
// succeeds.
type Engine struct {
	Sources []nodesource.NodeSource
	Aliases *gpualias.Table

	// ProviderTimeout bounds each provider fetch. Timeouts overrides it per
	// provider.
	ProviderTimeout time.Duration
	Timeouts        map[catalog.Provider]time.Duration

	// Limit truncates the ranked result when positive.
	Limit int

	// OnFetch, when set, is called from the fetching goroutine as each
	// provider finishes.
	OnFetch func(FetchEvent)
}

// NewEngine returns an engine over sources, ordered AWS then GCP so that
// the merged catalog does not depend on configuration order.
func NewEngine(sources []nodesource.NodeSource, aliases *gpualias.Table) *Engine {
	ordered := make([]nodesource.NodeSource, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return providerRank(ordered[i].Name()) < providerRank(ordered[j].Name())
	})
	return &Engine{
		Sources:         ordered,
		Aliases:         aliases,
		ProviderTimeout: DefaultProviderTimeout,
	}
}

func providerRank(p catalog.Provider) int {
	switch p {
	case catalog.AWS:
		return 0
	case catalog.GCP:
		return 1
	}
	return 2
}

// FindOptimalVM returns the instances matching c, best first. It fails with
// ErrInvalidCriteria before any provider is contacted, and with
// ErrBothProvidersUnavailable when no provider produced a catalog.
func (e *Engine) FindOptimalVM(ctx context.Context, c Criteria) ([]catalog.NormalizedInstance, error) {
	if err := c.Validate(); err != nil {
		metrics.RecordSearch(string(c.Preference), metrics.OutcomeInvalid, 0)
		return nil, err
	}
	c = c.Normalize()
	logger.Debugf("search criteria: %# v", pretty.Formatter(c))

	transition(StateFetchingCatalogs, logrus.Fields{"providers": len(e.Sources)})
	merged, failures := e.fetchAll(ctx)

	outcome := metrics.OutcomeOK
	if len(e.Sources) == 0 || failures.Len() == len(e.Sources) {
		err := &ProvidersUnavailableError{Causes: failures}
		transition(StateFailed, logrus.Fields{"error": err.Error()})
		metrics.RecordSearch(string(c.Preference), metrics.OutcomeUnavailable, 0)
		return nil, err
	}
	if failures.Len() > 0 {
		outcome = metrics.OutcomePartial
		transition(StatePartialProviderFailure, logrus.Fields{"failed": failures.Len()})
		logger.WithError(failures).Warn("continuing with partial catalog")
	}

	transition(StateFiltering, logrus.Fields{"instances": len(merged)})
	matched := Filter(merged, c, e.Aliases)

	transition(StateRanking, logrus.Fields{"instances": len(matched)})
	ranked := Rank(matched, c.Preference)
	if e.Limit > 0 && len(ranked) > e.Limit {
		ranked = ranked[:e.Limit]
	}

	transition(StateDone, logrus.Fields{"results": len(ranked)})
	metrics.RecordSearch(string(c.Preference), outcome, len(ranked))
	return ranked, nil
}

// fetchAll runs every source concurrently and merges the successful
// catalogs in source order.
func (e *Engine) fetchAll(ctx context.Context) ([]catalog.NormalizedInstance, *multierror.Error) {
	results := make([]mo.Result[[]catalog.NormalizedInstance], len(e.Sources))

	var g errgroup.Group
	for i, src := range e.Sources {
		i, src := i, src
		g.Go(func() error {
			// a failed provider must not cancel the others
			results[i] = e.fetch(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	var merged []catalog.NormalizedInstance
	failures := &multierror.Error{}
	for _, res := range results {
		instances, err := res.Get()
		if err != nil {
			failures = multierror.Append(failures, err)
			continue
		}
		merged = append(merged, instances...)
	}
	return merged, failures
}

type fetchOutcome struct {
	instances []catalog.NormalizedInstance
	err       error
}

func (e *Engine) fetch(ctx context.Context, src nodesource.NodeSource) mo.Result[[]catalog.NormalizedInstance] {
	provider := src.Name()
	ctx, cancel := context.WithTimeout(ctx, e.timeoutFor(provider))
	defer cancel()

	start := time.Now()
	done := make(chan fetchOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchOutcome{err: errors.Errorf("catalog fetch panicked: %v", r)}
			}
		}()
		instances, err := src.FetchCatalog(ctx)
		done <- fetchOutcome{instances: instances, err: err}
	}()

	var out fetchOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = errors.Wrap(ctx.Err(), "catalog fetch did not finish")
	}
	if out.err == nil && len(out.instances) == 0 {
		out.err = errors.New("catalog is empty")
	}

	elapsed := time.Since(start)
	metrics.ObserveCatalogFetch(string(provider), elapsed)
	if e.OnFetch != nil {
		e.OnFetch(FetchEvent{Provider: provider, Instances: len(out.instances), Duration: elapsed, Err: out.err})
	}

	if out.err != nil {
		metrics.RecordProviderFailure(string(provider))
		err := nodesource.Unavailable(provider, out.err)
		logger.WithFields(logrus.Fields{"provider": provider, "duration": elapsed}).
			WithError(err).Debug("catalog fetch failed")
		return mo.Err[[]catalog.NormalizedInstance](err)
	}
	logger.WithFields(logrus.Fields{"provider": provider, "instances": len(out.instances), "duration": elapsed}).
		Debug("catalog fetched")
	return mo.Ok(out.instances)
}

func (e *Engine) timeoutFor(p catalog.Provider) time.Duration {
	if d, ok := e.Timeouts[p]; ok && d > 0 {
		return d
	}
	if e.ProviderTimeout > 0 {
		return e.ProviderTimeout
	}
	return DefaultProviderTimeout
}

func transition(state string, fields logrus.Fields) {
	fields["state"] = state
	logger.WithFields(fields).Debug("search state changed")
}
