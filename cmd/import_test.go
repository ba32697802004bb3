package cmd

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"catalog-discovery/config"
	"catalog-discovery/discovery"
	"catalog-discovery/modrinth"
)

var importNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeModrinth serves total search hits, paged by offset and limit.
func fakeModrinth(t *testing.T, total int) *modrinth.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/members"):
			_, _ = w.Write([]byte(`[{"role":"Member","user":{"username":"helper"}},{"role":"Owner","user":{"username":"maker"}}]`))
			return
		case strings.HasPrefix(r.URL.Path, "/project/"):
			slug := strings.TrimPrefix(r.URL.Path, "/project/")
			if slug == "missing" {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(modrinth.Project{
				ID:           "id-" + slug,
				Slug:         slug,
				Title:        strings.ToUpper(slug),
				GameVersions: []string{"1.21"},
				Downloads:    250_000,
				Followers:    400,
				ProjectType:  "datapack",
				Status:       "approved",
				Published:    importNow.AddDate(-1, 0, 0),
				Updated:      importNow.AddDate(0, 0, -3),
			})
			return
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		res := modrinth.SearchResponse{Offset: offset, Limit: limit, TotalHits: total, Hits: []modrinth.SearchHit{}}
		for i := offset; i < total && i < offset+min(limit, 3); i++ {
			res.Hits = append(res.Hits, modrinth.SearchHit{
				ProjectID:    fmt.Sprintf("m%02d", i),
				Title:        fmt.Sprintf("Project %d", i),
				Author:       "dev",
				Categories:   []string{"utility"},
				Versions:     []string{"1.21"},
				Downloads:    int64(i) * 100_000,
				Follows:      int64(i) * 10,
				ProjectType:  "mod",
				DateCreated:  importNow.AddDate(-1, 0, 0),
				DateModified: importNow.AddDate(0, 0, -i),
			})
		}
		_ = json.NewEncoder(w).Encode(res)
	}))
	t.Cleanup(srv.Close)

	c, err := modrinth.NewClient(config.Config{ModrinthAPIURL: srv.URL, UserAgent: "test-agent"})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestRunImport(t *testing.T) {
	cfg, b := openTestBackend(t)
	client := fakeModrinth(t, 7)
	ctx := context.Background()

	stats, err := runImport(ctx, client, b.writer, importOptions{limit: 100, seed: 7, events: true}, importNow)
	if err != nil {
		t.Fatalf("runImport() error: %v", err)
	}
	if stats.projects != 7 {
		t.Errorf("imported %d projects, want 7", stats.projects)
	}
	// Project i has i*100k downloads: min(i*10, 40) events each.
	if want := 0 + 10 + 20 + 30 + 40 + 40 + 40; stats.events != want {
		t.Errorf("recorded %d events, want %d", stats.events, want)
	}

	svc := newService(cfg, b)
	page := svc.Search(ctx, discovery.Params{Sort: "downloads", Size: 3})
	if page.TotalMatching != 7 {
		t.Fatalf("total = %d, want 7", page.TotalMatching)
	}
	if got := page.IDs(); got[0] != "m06" || got[1] != "m05" || got[2] != "m04" {
		t.Errorf("downloads order = %v", got)
	}
	for _, p := range page.Items {
		if p.Rating < 3 || p.Rating > 5 || p.ReviewCount < 0 {
			t.Errorf("%s has synthesized rating %v, reviews %d", p.ID, p.Rating, p.ReviewCount)
		}
	}

	trending := svc.Search(ctx, discovery.Params{Category: "trending", Size: 10})
	if trending.TotalMatching != 7 || len(trending.Items) != 7 {
		t.Errorf("trending total = %d, items = %d", trending.TotalMatching, len(trending.Items))
	}
}

func TestRunImportRespectsLimit(t *testing.T) {
	_, b := openTestBackend(t)
	stats, err := runImport(context.Background(), fakeModrinth(t, 20), b.writer, importOptions{limit: 5, seed: 1}, importNow)
	if err != nil {
		t.Fatal(err)
	}
	if stats.projects != 5 || stats.events != 0 {
		t.Errorf("stats = %+v, want 5 projects and no events", stats)
	}
}

func TestRunImportNamedProjectsWithLikes(t *testing.T) {
	cfg, b := openTestBackend(t)
	client := fakeModrinth(t, 50)
	ctx := context.Background()

	opts := importOptions{projects: []string{"alpha", "beta"}, likeUser: "alice", seed: 3, events: true, limit: 500}
	stats, err := runImport(ctx, client, b.writer, opts, importNow)
	if err != nil {
		t.Fatalf("runImport() error: %v", err)
	}
	// 250k downloads is 25 events per project; search is not used.
	if stats.projects != 2 || stats.likes != 2 || stats.events != 50 {
		t.Errorf("stats = %+v, want 2 projects, 2 likes, 50 events", stats)
	}

	svc := newService(cfg, b)
	favs := svc.Search(ctx, discovery.Params{Category: "Favorites", Caller: &discovery.Identity{ID: "alice"}})
	if got := favs.IDs(); len(got) != 2 || got[0] != "id-alpha" || got[1] != "id-beta" {
		t.Fatalf("favorites = %v, want [id-alpha id-beta]", got)
	}
	for _, p := range favs.Items {
		if p.Author != "maker" || p.Classification != discovery.ClassData || p.Status != discovery.StatusPublished {
			t.Errorf("unexpected imported project: %+v", p)
		}
	}

	all := svc.Search(ctx, discovery.Params{Size: 100})
	if all.TotalMatching != 2 {
		t.Errorf("catalog has %d projects, want only the named ones", all.TotalMatching)
	}
	bob := svc.Search(ctx, discovery.Params{Category: "Favorites", Caller: &discovery.Identity{ID: "bob"}})
	if len(bob.Items) != 0 {
		t.Errorf("bob favorites = %v, want none", bob.IDs())
	}
}

func TestRunImportNamedProjectNotFound(t *testing.T) {
	_, b := openTestBackend(t)
	_, err := runImport(context.Background(), fakeModrinth(t, 0), b.writer,
		importOptions{projects: []string{"alpha", "missing"}, limit: 10}, importNow)
	if err == nil {
		t.Error("expected error for a missing project")
	}
}

func TestSynthesizeReviews(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	unfollowed := synthesizeReviews(discovery.Project{ID: "x"}, rng)
	if unfollowed.Rating != 0 || unfollowed.ReviewCount != 0 {
		t.Errorf("unfollowed project got rating %v, reviews %d", unfollowed.Rating, unfollowed.ReviewCount)
	}

	for i := range 50 {
		p := synthesizeReviews(discovery.Project{FavoriteCount: int64(i+1) * 1000}, rng)
		if p.Rating < 3 || p.Rating > 5 {
			t.Fatalf("rating %v out of range", p.Rating)
		}
		if p.ReviewCount < min((i+1)*20, 200) {
			t.Fatalf("review count %d below follow floor", p.ReviewCount)
		}
	}
}

func TestSynthesizeEventsStayInHistory(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	at := synthesizeEvents(discovery.Project{DownloadCount: 10_000_000}, rng, importNow)
	if len(at) != maxEventsPerProject {
		t.Fatalf("got %d events, want %d", len(at), maxEventsPerProject)
	}
	for _, ts := range at {
		if !ts.Before(importNow.Add(time.Nanosecond)) || ts.Before(importNow.Add(-eventHistory)) {
			t.Errorf("event at %v is outside the history window", ts)
		}
	}
}

func TestNotifyInvalidate(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/projects/cache/invalidate" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		calls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := notifyInvalidate(context.Background(), srv.Client(), srv.URL+"/"); err != nil {
		t.Fatalf("notifyInvalidate() error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("invalidate called %d times", calls.Load())
	}

	if err := notifyInvalidate(context.Background(), srv.Client(), srv.URL+"/nope"); err == nil {
		t.Error("expected error for 404")
	}
}
