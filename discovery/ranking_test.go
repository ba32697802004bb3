package discovery

import (
	"context"
	"testing"
)

func TestQualityFactor(t *testing.T) {
	tests := []struct {
		rating   float64
		expected float64
	}{
		{5.0, 1.0},
		{4.5, 1.0},
		{4.8, 1.0},
		{2.25, 0.5},
		{0.9, 0.2},
		{0, 0.5},
	}
	for _, tt := range tests {
		got := QualityFactor(tt.rating)
		if diff := got - tt.expected; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("QualityFactor(%v) = %v, want %v", tt.rating, got, tt.expected)
		}
	}
}

func TestParseSortKey(t *testing.T) {
	for _, k := range SortKeys {
		if got, ok := ParseSortKey(string(k)); !ok || got != k {
			t.Errorf("ParseSortKey(%q) = %q, %v", k, got, ok)
		}
	}
	if got, ok := ParseSortKey(" Trending "); !ok || got != SortTrending {
		t.Errorf("ParseSortKey should trim and fold case, got %q, %v", got, ok)
	}
	if _, ok := ParseSortKey("bogus"); ok {
		t.Error("ParseSortKey(bogus) should fail")
	}
}

func TestPopularityRanksQualityOverVolume(t *testing.T) {
	cands := []Candidate{
		{ID: "unrated", DownloadCount: 1000, Rating: 0},
		{ID: "rated", DownloadCount: 600, Rating: 4.8},
	}
	scored, err := PopularityScorer{}.Score(context.Background(), cands, testNow)
	if err != nil {
		t.Fatal(err)
	}
	RankScored(scored)
	if scored[0].ID != "rated" || scored[0].Score != 600 || scored[1].Score != 500 {
		t.Errorf("unexpected popularity ranking: %+v", scored)
	}
}

func TestTrendingRanksAcceleration(t *testing.T) {
	events := &memEvents{}
	thisWeek := testNow.AddDate(0, 0, -2)
	lastWeek := testNow.AddDate(0, 0, -10)
	events.add("steady", thisWeek, 80)
	events.add("steady", lastWeek, 75)
	events.add("rising", thisWeek, 50)
	events.add("rising", lastWeek, 10)
	events.add("fresh", thisWeek, 3)
	// Outside both windows.
	events.add("old", testNow.AddDate(0, 0, -20), 500)

	cands := []Candidate{{ID: "steady"}, {ID: "rising"}, {ID: "fresh"}, {ID: "old"}, {ID: "silent"}}
	scored, err := TrendingScorer{Events: events}.Score(context.Background(), cands, testNow)
	if err != nil {
		t.Fatal(err)
	}
	RankScored(scored)

	want := []Scored{
		{ID: "rising", Score: 40},
		{ID: "steady", Score: 5},
		{ID: "fresh", Score: 3},
		{ID: "old", Score: 0},
		{ID: "silent", Score: 0},
	}
	if len(scored) != len(want) {
		t.Fatalf("got %d scores, want %d", len(scored), len(want))
	}
	for i := range want {
		if scored[i] != want[i] {
			t.Errorf("rank %d = %+v, want %+v", i, scored[i], want[i])
		}
	}
}

func TestTrendingWindowBoundaries(t *testing.T) {
	events := &memEvents{}
	// Exactly seven days ago belongs to the current week.
	events.add("edge", testNow.AddDate(0, 0, -7), 1)
	// Exactly fourteen days ago belongs to the previous week.
	events.add("edge", testNow.AddDate(0, 0, -14), 4)

	scored, err := TrendingScorer{Events: events}.Score(context.Background(), []Candidate{{ID: "edge"}}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if scored[0].Score != -3 {
		t.Errorf("score = %v, want -3", scored[0].Score)
	}
}

func TestRelevanceScore(t *testing.T) {
	events := &memEvents{}
	events.add("a", testNow.AddDate(0, 0, -1), 10)
	events.add("a", testNow.AddDate(0, 0, -40), 100)
	events.add("b", testNow.AddDate(0, 0, -29), 8)

	cands := []Candidate{
		{ID: "a", Rating: 0},   // 10 * 0.5
		{ID: "b", Rating: 4.5}, // 8 * 1.0
		{ID: "c", Rating: 5},   // no events, still ranked
	}
	scored, err := RelevanceScorer{Events: events}.Score(context.Background(), cands, testNow)
	if err != nil {
		t.Fatal(err)
	}
	RankScored(scored)
	if scored[0].ID != "b" || scored[1].ID != "a" || scored[2].ID != "c" {
		t.Errorf("unexpected relevance order: %+v", scored)
	}
	if scored[1].Score != 5 || scored[2].Score != 0 {
		t.Errorf("unexpected relevance scores: %+v", scored)
	}
}

func TestScorerPropagatesEventLogErrors(t *testing.T) {
	events := &memEvents{err: errStoreDown}
	if _, err := (RelevanceScorer{Events: events}).Score(context.Background(), []Candidate{{ID: "a"}}, testNow); err == nil {
		t.Error("expected relevance error")
	}
	if _, err := (TrendingScorer{Events: events}).Score(context.Background(), []Candidate{{ID: "a"}}, testNow); err == nil {
		t.Error("expected trending error")
	}
}

func TestRankScoredTieBreak(t *testing.T) {
	scored := []Scored{{ID: "c", Score: 1}, {ID: "a", Score: 1}, {ID: "b", Score: 2}}
	RankScored(scored)
	got := []string{scored[0].ID, scored[1].ID, scored[2].ID}
	want := []string{"b", "a", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestStrategyFor(t *testing.T) {
	tests := []struct {
		key   SortKey
		name  string
		first SortField
	}{
		{SortRating, "rating", SortField{Field: FieldRating, Desc: true}},
		{SortDownloads, "downloads", SortField{Field: FieldDownloadCount, Desc: true}},
		{SortUpdated, "updated", SortField{Field: FieldUpdatedAt, Desc: true}},
		{SortNew, "new", SortField{Field: FieldCreatedAt, Desc: true}},
		{SortFavorites, "favorites", SortField{Field: FieldFavoriteCount, Desc: true}},
		{SortTitle, "title", SortField{Field: FieldTitle}},
		{SortNone, "none", SortField{Field: FieldID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := StrategyFor(tt.key, nil).(StaticStrategy)
			if !ok {
				t.Fatalf("StrategyFor(%q) is not static", tt.key)
			}
			order := s.Order()
			if s.Name() != tt.name || order[0] != tt.first {
				t.Errorf("got %s %+v", s.Name(), order)
			}
			if last := order[len(order)-1]; last != (SortField{Field: FieldID}) {
				t.Errorf("missing id tie-break: %+v", order)
			}
		})
	}

	for _, k := range []SortKey{SortRelevance, SortPopular, SortTrending} {
		if _, ok := StrategyFor(k, &memEvents{}).(Scorer); !ok {
			t.Errorf("StrategyFor(%q) should be a scorer", k)
		}
	}
}
