package cmd

import (
	"slices"
	"strings"
	"testing"

	"catalog-discovery/discovery"
)

func TestSearchFlagsParams(t *testing.T) {
	f := searchFlags{
		search:   " torch ",
		tags:     []string{"a,b", "c"},
		sort:     "trending",
		category: "Favorites",
		user:     "alice",
		page:     2,
		size:     5,
	}
	p := f.params()
	if !slices.Equal(p.Tags, []string{"a", "b", "c"}) {
		t.Errorf("Tags = %v", p.Tags)
	}
	if p.Caller == nil || p.Caller.ID != "alice" {
		t.Errorf("Caller = %+v", p.Caller)
	}
	if p.Search != " torch " || p.Page != 2 || p.Size != 5 || p.Sort != "trending" {
		t.Errorf("unexpected params: %+v", p)
	}

	if anon := (searchFlags{user: "  "}).params(); anon.Caller != nil {
		t.Error("blank user should be anonymous")
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total    int64
		size     int
		expected int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{23, 5, 5},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := totalPages(tt.total, tt.size); got != tt.expected {
			t.Errorf("totalPages(%d, %d) = %d, want %d", tt.total, tt.size, got, tt.expected)
		}
	}
}

func TestTruncateFunction(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"Hello World", 5, "He..."},
		{"Hi", 5, "Hi"},
		{"Test", 4, "Test"},
		{"LongString", 7, "Long..."},
		{"", 5, ""},
	}

	for _, test := range tests {
		result := truncate(test.input, test.maxLen)
		if result != test.expected {
			t.Fatalf("truncate(%q, %d) = %q, expected %q", test.input, test.maxLen, result, test.expected)
		}
	}
}

func TestRenderResults(t *testing.T) {
	empty := renderResults(discovery.EmptyPage(0, 10))
	if !strings.Contains(empty, "No projects found") {
		t.Errorf("empty render = %q", empty)
	}

	page := discovery.ResultPage{
		Items: []discovery.Project{
			{ID: "a", Title: "Glowing Torch", Author: "builder", Classification: discovery.ClassData, DownloadCount: 1234, Rating: 4.5},
		},
		TotalMatching: 11,
		Page:          1,
		Size:          5,
	}
	out := renderResults(page)
	for _, want := range []string{"Glowing Torch", "DATA", "1234", "4.5/5", "builder", "Page 2 of 3, 11 matching"} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
}
