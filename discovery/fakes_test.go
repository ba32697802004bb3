package discovery

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// memStore is an in-memory Store that evaluates predicates with Match.
type memStore struct {
	mu       sync.RWMutex
	projects map[string]Project
	err      error

	findCalls      atomic.Int64
	candidateCalls atomic.Int64
}

func newMemStore(ps ...Project) *memStore {
	s := &memStore{projects: make(map[string]Project)}
	for _, p := range ps {
		s.projects[p.ID] = p
	}
	return s
}

func (s *memStore) put(p Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = p
}

func (s *memStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projects, id)
}

func (s *memStore) failWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *memStore) matching(pred Predicate) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []Project
	for _, p := range s.projects {
		if pred.Match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func sortProjects(ps []Project, order []SortField) {
	sort.SliceStable(ps, func(i, j int) bool {
		for _, o := range order {
			c := CompareField(ps[i], ps[j], o.Field)
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func (s *memStore) FindFiltered(ctx context.Context, pred Predicate, order []SortField, skip, limit int) ([]Project, error) {
	s.findCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ps, err := s.matching(pred)
	if err != nil {
		return nil, err
	}
	sortProjects(ps, order)
	if skip >= len(ps) {
		return []Project{}, nil
	}
	end := len(ps)
	if limit < end-skip {
		end = skip + limit
	}
	return ps[skip:end], nil
}

func (s *memStore) Count(ctx context.Context, pred Predicate) (int64, error) {
	ps, err := s.matching(pred)
	if err != nil {
		return 0, err
	}
	return int64(len(ps)), nil
}

func (s *memStore) FindAtRank(ctx context.Context, pred Predicate, field Field, rank int) (*Project, error) {
	ps, err := s.matching(pred)
	if err != nil {
		return nil, err
	}
	sortProjects(ps, []SortField{{Field: field}, {Field: FieldID}})
	if rank < 0 || rank >= len(ps) {
		return nil, nil
	}
	p := ps[rank]
	return &p, nil
}

func (s *memStore) ExistsAllIDs(ctx context.Context, ids []string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return 0, s.err
	}
	var n int64
	for _, id := range ids {
		if p, ok := s.projects[id]; ok && p.Status != StatusDeleted {
			n++
		}
	}
	return n, nil
}

func (s *memStore) Candidates(ctx context.Context, pred Predicate) ([]Candidate, error) {
	s.candidateCalls.Add(1)
	ps, err := s.matching(pred)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, len(ps))
	for i, p := range ps {
		out[i] = Candidate{ID: p.ID, DownloadCount: p.DownloadCount, Rating: p.Rating}
	}
	return out, nil
}

func (s *memStore) FindByIDs(ctx context.Context, ids []string) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []Project
	for _, id := range ids {
		if p, ok := s.projects[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type memEvent struct {
	id string
	at time.Time
}

// memEvents is an in-memory EventLog.
type memEvents struct {
	events []memEvent
	err    error
}

func (e *memEvents) add(id string, at time.Time, n int) {
	for range n {
		e.events = append(e.events, memEvent{id: id, at: at})
	}
}

func (e *memEvents) CountInWindow(ctx context.Context, ids []string, start, end time.Time) (map[string]int64, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make(map[string]int64)
	for _, ev := range e.events {
		if !slices.Contains(ids, ev.id) {
			continue
		}
		if !ev.at.Before(start) && ev.at.Before(end) {
			out[ev.id]++
		}
	}
	return out, nil
}

type memIdentities struct {
	liked map[string][]string
	err   error
}

func (m memIdentities) LikedProjectIDs(ctx context.Context, who Identity) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.liked[who.ID], nil
}

var errStoreDown = errors.New("store unavailable")

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func published(id string) Project {
	return Project{
		ID:             id,
		Title:          "Project " + id,
		Author:         "author-" + id,
		Classification: ClassPlugin,
		Status:         StatusPublished,
		CreatedAt:      testNow.AddDate(0, -2, 0),
		UpdatedAt:      testNow.AddDate(0, -1, 0),
	}
}
