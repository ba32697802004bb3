package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// SortKey selects a ranking strategy.
type SortKey string

const (
	SortRelevance SortKey = "relevance"
	SortRating    SortKey = "rating"
	SortDownloads SortKey = "downloads"
	SortUpdated   SortKey = "updated"
	SortNew       SortKey = "new"
	SortFavorites SortKey = "favorites"
	SortPopular   SortKey = "popular"
	SortTrending  SortKey = "trending"
	SortTitle     SortKey = "title"
	SortNone      SortKey = "none"
)

// SortKeys lists the keys accepted from callers, in display order.
var SortKeys = []SortKey{
	SortRelevance, SortRating, SortDownloads, SortUpdated, SortNew, SortFavorites, SortPopular, SortTrending,
}

// ParseSortKey maps a raw sort parameter onto a key. ok is false for
// unknown keys.
func ParseSortKey(s string) (SortKey, bool) {
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case SortRelevance, SortRating, SortDownloads, SortUpdated, SortNew,
		SortFavorites, SortPopular, SortTrending, SortTitle, SortNone:
		return k, true
	}
	return "", false
}

const (
	// HighQualityRating is the rating at or above which downloads count in full.
	HighQualityRating = 4.5
	unratedFactor     = 0.5

	trendingWeek    = 7 * 24 * time.Hour
	relevanceWindow = 30 * 24 * time.Hour
)

// QualityFactor dampens raw activity counts by rating: 1.0 at or above 4.5,
// proportional below, and 0.5 for unrated projects.
func QualityFactor(rating float64) float64 {
	switch {
	case rating >= HighQualityRating:
		return 1.0
	case rating > 0:
		return rating / HighQualityRating
	}
	return unratedFactor
}

// Strategy is a ranking algorithm. A strategy is either a StaticStrategy,
// executed by the store as a field sort, or a Scorer.
type Strategy interface {
	Name() string
}

// StaticStrategy sorts directly by stored fields.
type StaticStrategy struct {
	name  string
	order []SortField
}

// Name implements Strategy.
func (s StaticStrategy) Name() string { return s.name }

// Order returns the sort fields followed by the id tie-break.
func (s StaticStrategy) Order() []SortField {
	order := make([]SortField, 0, len(s.order)+1)
	order = append(order, s.order...)
	return append(order, SortField{Field: FieldID})
}

// Scored pairs a candidate id with its ranking score.
type Scored struct {
	ID    string
	Score float64
}

// Scorer computes a score per candidate. Higher scores rank first.
type Scorer interface {
	Strategy
	Score(ctx context.Context, cands []Candidate, now time.Time) ([]Scored, error)
}

// PopularityScorer ranks by downloadCount * QualityFactor(rating).
type PopularityScorer struct{}

// Name implements Strategy.
func (PopularityScorer) Name() string { return string(SortPopular) }

// Score implements Scorer.
func (PopularityScorer) Score(_ context.Context, cands []Candidate, _ time.Time) ([]Scored, error) {
	out := make([]Scored, len(cands))
	for i, c := range cands {
		out[i] = Scored{ID: c.ID, Score: float64(c.DownloadCount) * QualityFactor(c.Rating)}
	}
	return out, nil
}

// TrendingScorer ranks by week-over-week change in events: the last seven
// days minus the seven days before that.
type TrendingScorer struct {
	Events EventLog
}

// Name implements Strategy.
func (TrendingScorer) Name() string { return string(SortTrending) }

// Score implements Scorer.
func (t TrendingScorer) Score(ctx context.Context, cands []Candidate, now time.Time) ([]Scored, error) {
	ids := candidateIDs(cands)
	weekAgo := now.Add(-trendingWeek)
	current, err := t.Events.CountInWindow(ctx, ids, weekAgo, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count current week events: %w", err)
	}
	previous, err := t.Events.CountInWindow(ctx, ids, weekAgo.Add(-trendingWeek), weekAgo)
	if err != nil {
		return nil, fmt.Errorf("failed to count previous week events: %w", err)
	}
	out := make([]Scored, len(cands))
	for i, c := range cands {
		out[i] = Scored{ID: c.ID, Score: float64(current[c.ID] - previous[c.ID])}
	}
	return out, nil
}

// RelevanceScorer ranks by events over the last 30 days, dampened by
// QualityFactor.
type RelevanceScorer struct {
	Events EventLog
}

// Name implements Strategy.
func (RelevanceScorer) Name() string { return string(SortRelevance) }

// Score implements Scorer.
func (r RelevanceScorer) Score(ctx context.Context, cands []Candidate, now time.Time) ([]Scored, error) {
	counts, err := r.Events.CountInWindow(ctx, candidateIDs(cands), now.Add(-relevanceWindow), now)
	if err != nil {
		return nil, fmt.Errorf("failed to count relevance window events: %w", err)
	}
	out := make([]Scored, len(cands))
	for i, c := range cands {
		out[i] = Scored{ID: c.ID, Score: float64(counts[c.ID]) * QualityFactor(c.Rating)}
	}
	return out, nil
}

// StrategyFor returns the strategy for key. Scored strategies that need the
// event log use events.
func StrategyFor(key SortKey, events EventLog) Strategy {
	switch key {
	case SortRelevance:
		return RelevanceScorer{Events: events}
	case SortPopular:
		return PopularityScorer{}
	case SortTrending:
		return TrendingScorer{Events: events}
	case SortRating:
		return StaticStrategy{name: string(key), order: []SortField{{Field: FieldRating, Desc: true}}}
	case SortDownloads:
		return StaticStrategy{name: string(key), order: []SortField{{Field: FieldDownloadCount, Desc: true}}}
	case SortNew:
		return StaticStrategy{name: string(key), order: []SortField{{Field: FieldCreatedAt, Desc: true}}}
	case SortFavorites:
		return StaticStrategy{name: string(key), order: []SortField{{Field: FieldFavoriteCount, Desc: true}}}
	case SortTitle:
		return StaticStrategy{name: string(key), order: []SortField{{Field: FieldTitle}}}
	case SortNone:
		return StaticStrategy{name: string(key)}
	}
	return StaticStrategy{name: string(SortUpdated), order: []SortField{{Field: FieldUpdatedAt, Desc: true}}}
}

// RankScored sorts scores descending, breaking ties by ascending id so the
// same data always yields the same order.
func RankScored(scored []Scored) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
}

func candidateIDs(cands []Candidate) []string {
	ids := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = c.ID
	}
	return ids
}
