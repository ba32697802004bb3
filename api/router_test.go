package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"catalog-discovery/discovery"
)

type fakeSearcher struct {
	got         discovery.Params
	page        discovery.ResultPage
	invalidated int
}

func (f *fakeSearcher) Search(ctx context.Context, p discovery.Params) discovery.ResultPage {
	f.got = p
	return f.page
}

func (f *fakeSearcher) Invalidate() { f.invalidated++ }

type fakeProjects map[string]discovery.Project

func (f fakeProjects) GetProject(ctx context.Context, id string) (discovery.Project, error) {
	if id == "broken" {
		return discovery.Project{}, errors.New("disk on fire")
	}
	p, ok := f[id]
	if !ok {
		return discovery.Project{}, fmt.Errorf("project %q: %w", id, discovery.ErrNotFound)
	}
	return p, nil
}

func TestParamsFromQuery(t *testing.T) {
	q, _ := url.ParseQuery("tags=a,b&tags=c&q=torch&page=2&size=abc&sort=trending&minRating=4.5&minDownloads=x&category=Favorites&dateRange=30d&classification=DATA&gameVersion=1.21&author=alice")
	p := ParamsFromQuery(q, " bob ")

	if !slices.Equal(p.Tags, []string{"a", "b", "c"}) {
		t.Errorf("Tags = %v", p.Tags)
	}
	if p.Search != "torch" || p.Page != 2 || p.Size != 0 || p.Sort != "trending" {
		t.Errorf("unexpected params: %+v", p)
	}
	if p.MinRating != 4.5 || p.MinDownloads != 0 {
		t.Errorf("floors = %v, %v", p.MinRating, p.MinDownloads)
	}
	if p.Category != "Favorites" || p.DateRange != "30d" || p.Classification != "DATA" || p.GameVersion != "1.21" || p.Author != "alice" {
		t.Errorf("unexpected filters: %+v", p)
	}
	if p.Caller == nil || p.Caller.ID != "bob" {
		t.Errorf("Caller = %+v", p.Caller)
	}

	anon := ParamsFromQuery(url.Values{"search": {"x"}}, "")
	if anon.Caller != nil || anon.Search != "x" {
		t.Errorf("anonymous params = %+v", anon)
	}
}

func TestSearchEndpoint(t *testing.T) {
	svc := &fakeSearcher{page: discovery.ResultPage{
		Items:         []discovery.Project{{ID: "p1", Title: "Torch", UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}},
		TotalMatching: 7,
		Page:          1,
		Size:          1,
	}}
	srv := httptest.NewServer(NewRouter(svc, nil, zap.NewNop().Sugar()))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/projects?search=torch&page=-3&size=1", nil)
	req.Header.Set(CallerHeader, "alice")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	var page discovery.ResultPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatal(err)
	}
	if page.TotalMatching != 7 || len(page.Items) != 1 || page.Items[0].ID != "p1" {
		t.Errorf("page = %+v", page)
	}
	if svc.got.Search != "torch" || svc.got.Page != -3 || svc.got.Caller == nil {
		t.Errorf("service received %+v", svc.got)
	}
}

func TestInvalidateEndpoint(t *testing.T) {
	svc := &fakeSearcher{}
	h := NewRouter(svc, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/projects/cache/invalidate", nil))
	if rec.Code != http.StatusNoContent || svc.invalidated != 1 {
		t.Errorf("status = %d, invalidated = %d", rec.Code, svc.invalidated)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/projects/cache/invalidate", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET invalidate status = %d, want 405", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := NewRouter(&fakeSearcher{}, nil, nil)
	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}

func TestSearchEndpointOverService(t *testing.T) {
	// A nil store would panic if queried; the favorites view without a
	// caller must answer an empty page without touching it.
	svc := discovery.NewService(discovery.Options{Logger: zap.NewNop().Sugar()})
	h := NewRouter(svc, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/projects?category=Favorites", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var page discovery.ResultPage
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.TotalMatching != 0 || len(page.Items) != 0 || page.Size != discovery.DefaultPageSize {
		t.Errorf("page = %+v", page)
	}
}

func TestGetProjectEndpoint(t *testing.T) {
	projects := fakeProjects{
		"pub":   {ID: "pub", Author: "carol", Status: discovery.StatusPublished},
		"old":   {ID: "old", Author: "carol", Status: discovery.StatusArchived},
		"draft": {ID: "draft", Author: "Alice", Contributors: []string{"Bob"}, Status: discovery.StatusDraft},
	}
	h := NewRouter(&fakeSearcher{}, projects, nil)

	tests := []struct {
		name   string
		id     string
		caller string
		status int
	}{
		{"published to anyone", "pub", "", http.StatusOK},
		{"archived to anyone", "old", "", http.StatusOK},
		{"draft hidden from anonymous", "draft", "", http.StatusNotFound},
		{"draft hidden from strangers", "draft", "mallory", http.StatusNotFound},
		{"draft to author ignoring case", "draft", "alice", http.StatusOK},
		{"draft to contributor ignoring case", "draft", "BOB", http.StatusOK},
		{"missing", "nope", "alice", http.StatusNotFound},
		{"store failure", "broken", "", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/"+tt.id, nil)
			if tt.caller != "" {
				req.Header.Set(CallerHeader, tt.caller)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}
			var p discovery.Project
			if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
				t.Fatal(err)
			}
			if p.ID != tt.id {
				t.Errorf("ID = %q, want %q", p.ID, tt.id)
			}
		})
	}
}

func TestGetProjectWithoutStore(t *testing.T) {
	h := NewRouter(&fakeSearcher{}, nil, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/projects/pub", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
