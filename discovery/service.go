package discovery

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"catalog-discovery/metrics"
)

const defaultQueryTimeout = 5 * time.Second

// Options configures a Service.
type Options struct {
	Store      Store
	Events     EventLog
	Identities IdentityResolver
	// Cache enables result caching when non-nil.
	Cache           *ResultCache
	Logger          *zap.SugaredLogger
	QueryTimeout    time.Duration
	DefaultPageSize int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Service answers discovery queries. It never returns errors: failures are
// logged and degrade to an empty page.
type Service struct {
	store    Store
	events   EventLog
	criteria *CriteriaBuilder
	exec     *Executor
	guarded  *GuardedCache
	log      *zap.SugaredLogger
	timeout  time.Duration
	pageSize int
	now      func() time.Time
}

// NewService wires the criteria builder, executor and cache.
func NewService(opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Service{
		store:    opts.Store,
		events:   opts.Events,
		criteria: NewCriteriaBuilder(opts.Identities, log),
		exec:     NewExecutor(opts.Store),
		log:      log,
		timeout:  opts.QueryTimeout,
		pageSize: opts.DefaultPageSize,
		now:      opts.Now,
	}
	if s.timeout <= 0 {
		s.timeout = defaultQueryTimeout
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.events == nil {
		s.events = noEvents{}
	}
	if opts.Cache != nil {
		s.guarded = NewGuardedCache(opts.Cache, opts.Store, s.execute, log)
	}
	return s
}

// Search runs one discovery query. Cancelling ctx abandons the query.
func (s *Service) Search(ctx context.Context, p Params) ResultPage {
	p = p.Normalize(s.pageSize)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		page ResultPage
		err  error
	)
	if s.guarded != nil {
		page, err = s.guarded.Search(ctx, p)
	} else {
		page, err = s.execute(ctx, p)
	}
	if err != nil {
		metrics.DegradedResults.WithLabelValues("search").Inc()
		s.log.Errorw("Discovery query failed, returning empty page",
			zap.String("category", p.Category),
			zap.String("sort", p.Sort),
			zap.Int("page", p.Page),
			zap.Int("size", p.Size),
			zap.Error(err),
		)
		return EmptyPage(p.Page, p.Size)
	}
	return page
}

// Invalidate clears cached pages. It is a no-op without a cache.
func (s *Service) Invalidate() {
	if s.guarded != nil {
		s.guarded.Invalidate()
	}
}

// execute is the uncached ranking function.
func (s *Service) execute(ctx context.Context, p Params) (ResultPage, error) {
	now := s.now().UTC()
	crit, err := s.criteria.Build(ctx, p, now)
	if err != nil {
		return ResultPage{}, fmt.Errorf("failed to build criteria: %w", err)
	}

	key := s.sortKey(p, crit)
	pred := crit.Predicate
	if crit.View == ViewHiddenGems && pred.Op != OpNone {
		band, err := ComputeBand(ctx, s.store, pred)
		if err != nil {
			return ResultPage{}, fmt.Errorf("failed to compute hidden gems band: %w", err)
		}
		s.log.Debugw("Hidden gems band",
			zap.Int64("min_downloads", band.MinDownloads),
			zap.Int64("max_downloads", band.MaxDownloads),
			zap.Bool("bounded", band.Bounded),
		)
		pred = band.Narrow(pred)
	}

	strategy := StrategyFor(key, s.events)
	start := time.Now()
	page, err := s.exec.Execute(ctx, Query{
		Predicate: pred,
		Strategy:  strategy,
		Page:      p.Page,
		Size:      p.Size,
		Now:       now,
	})
	metrics.QueryDuration.WithLabelValues(strategy.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		return ResultPage{}, err
	}
	return page, nil
}

// sortKey resolves the effective ranking: a forced view sort wins, then an
// explicit sort, then the view default, then relevance. Unknown keys fall
// back to the static default (updated).
func (s *Service) sortKey(p Params, crit Criteria) SortKey {
	if crit.ForcedSort != "" {
		return crit.ForcedSort
	}
	if p.Sort != "" {
		if k, ok := ParseSortKey(p.Sort); ok {
			return k
		}
		s.log.Debugw("Unknown sort key, using default", zap.String("sort", p.Sort))
		return SortUpdated
	}
	switch crit.View {
	case ViewHiddenGems:
		return SortRating
	case ViewPopular:
		return SortPopular
	case ViewTrending:
		return SortTrending
	}
	return SortRelevance
}

// noEvents treats every project as having no activity.
type noEvents struct{}

func (noEvents) CountInWindow(context.Context, []string, time.Time, time.Time) (map[string]int64, error) {
	return map[string]int64{}, nil
}
