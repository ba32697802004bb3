package breaker

import (
	"context"
	"time"

	"catalog-discovery/discovery"
)

// Store guards a discovery.Store.
type Store struct {
	next discovery.Store
	b    *Breaker
}

// WrapStore decorates next with b.
func WrapStore(next discovery.Store, b *Breaker) *Store {
	return &Store{next: next, b: b}
}

func (s *Store) FindFiltered(ctx context.Context, pred discovery.Predicate, order []discovery.SortField, skip, limit int) ([]discovery.Project, error) {
	return call(s.b, func() ([]discovery.Project, error) {
		return s.next.FindFiltered(ctx, pred, order, skip, limit)
	})
}

func (s *Store) Count(ctx context.Context, pred discovery.Predicate) (int64, error) {
	return call(s.b, func() (int64, error) {
		return s.next.Count(ctx, pred)
	})
}

func (s *Store) FindAtRank(ctx context.Context, pred discovery.Predicate, field discovery.Field, rank int) (*discovery.Project, error) {
	return call(s.b, func() (*discovery.Project, error) {
		return s.next.FindAtRank(ctx, pred, field, rank)
	})
}

func (s *Store) ExistsAllIDs(ctx context.Context, ids []string) (int64, error) {
	return call(s.b, func() (int64, error) {
		return s.next.ExistsAllIDs(ctx, ids)
	})
}

func (s *Store) Candidates(ctx context.Context, pred discovery.Predicate) ([]discovery.Candidate, error) {
	return call(s.b, func() ([]discovery.Candidate, error) {
		return s.next.Candidates(ctx, pred)
	})
}

func (s *Store) FindByIDs(ctx context.Context, ids []string) ([]discovery.Project, error) {
	return call(s.b, func() ([]discovery.Project, error) {
		return s.next.FindByIDs(ctx, ids)
	})
}

// EventLog guards a discovery.EventLog.
type EventLog struct {
	next discovery.EventLog
	b    *Breaker
}

// WrapEventLog decorates next with b.
func WrapEventLog(next discovery.EventLog, b *Breaker) *EventLog {
	return &EventLog{next: next, b: b}
}

func (e *EventLog) CountInWindow(ctx context.Context, ids []string, start, end time.Time) (map[string]int64, error) {
	return call(e.b, func() (map[string]int64, error) {
		return e.next.CountInWindow(ctx, ids, start, end)
	})
}
