package discovery

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
)

// Query is a fully resolved request for one page.
type Query struct {
	Predicate Predicate
	Strategy  Strategy
	Page      int
	Size      int
	Now       time.Time
}

// Executor applies predicates and ranking against a store and paginates.
type Executor struct {
	store Store
}

// NewExecutor creates an executor over store.
func NewExecutor(store Store) *Executor {
	return &Executor{store: store}
}

// Execute returns min(size, remaining) items in rank order and the size of
// the filtered set before pagination.
func (e *Executor) Execute(ctx context.Context, q Query) (ResultPage, error) {
	if q.Predicate.Op == OpNone {
		return EmptyPage(q.Page, q.Size), nil
	}
	switch s := q.Strategy.(type) {
	case Scorer:
		return e.executeScored(ctx, q, s)
	case StaticStrategy:
		return e.executeStatic(ctx, q, s)
	}
	return ResultPage{}, fmt.Errorf("unsupported strategy %T", q.Strategy)
}

// skip returns the number of ranked items before the page. ok is false
// when page*size does not fit in an int, which no result set can reach.
func (q Query) skip() (n int, ok bool) {
	if q.Page < 0 || q.Size <= 0 {
		return 0, false
	}
	if q.Page > 0 && q.Page > math.MaxInt/q.Size {
		return 0, false
	}
	return q.Page * q.Size, true
}

func (e *Executor) executeStatic(ctx context.Context, q Query, s StaticStrategy) (ResultPage, error) {
	skip, ok := q.skip()
	if !ok {
		total, err := e.store.Count(ctx, q.Predicate)
		if err != nil {
			return ResultPage{}, fmt.Errorf("failed to count matches: %w", err)
		}
		page := EmptyPage(q.Page, q.Size)
		page.TotalMatching = total
		return page, nil
	}

	var (
		items []Project
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = e.store.FindFiltered(gctx, q.Predicate, s.Order(), skip, q.Size)
		if err != nil {
			return fmt.Errorf("failed to fetch page: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		total, err = e.store.Count(gctx, q.Predicate)
		if err != nil {
			return fmt.Errorf("failed to count matches: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return ResultPage{}, err
	}
	if items == nil {
		items = []Project{}
	}
	return ResultPage{Items: items, TotalMatching: total, Page: q.Page, Size: q.Size}, nil
}

func (e *Executor) executeScored(ctx context.Context, q Query, s Scorer) (ResultPage, error) {
	cands, err := e.store.Candidates(ctx, q.Predicate)
	if err != nil {
		return ResultPage{}, fmt.Errorf("failed to load candidates: %w", err)
	}
	total := int64(len(cands))
	start, ok := q.skip()
	if !ok || start >= len(cands) {
		page := EmptyPage(q.Page, q.Size)
		page.TotalMatching = total
		return page, nil
	}

	scored, err := s.Score(ctx, cands, q.Now)
	if err != nil {
		return ResultPage{}, fmt.Errorf("failed to score with %s: %w", s.Name(), err)
	}
	RankScored(scored)

	end := len(scored)
	if q.Size < end-start {
		end = start + q.Size
	}
	ids := make([]string, 0, end-start)
	for _, sc := range scored[start:end] {
		ids = append(ids, sc.ID)
	}

	found, err := e.store.FindByIDs(ctx, ids)
	if err != nil {
		return ResultPage{}, fmt.Errorf("failed to load ranked page: %w", err)
	}
	byID := make(map[string]Project, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	// A project deleted between scoring and loading is dropped; the cache
	// guard catches the gap on the next read.
	items := make([]Project, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			items = append(items, p)
		}
	}
	return ResultPage{Items: items, TotalMatching: total, Page: q.Page, Size: q.Size}, nil
}
