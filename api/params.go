package api

import (
	"net/url"
	"strconv"
	"strings"

	"catalog-discovery/discovery"
)

// ParamsFromQuery reads discovery parameters from a query string. Malformed
// numbers are ignored so the defaults apply.
func ParamsFromQuery(q url.Values, callerID string) discovery.Params {
	p := discovery.Params{
		Search:         firstOf(q, "search", "q"),
		Sort:           q.Get("sort"),
		GameVersion:    q.Get("gameVersion"),
		Classification: q.Get("classification"),
		Category:       q.Get("category"),
		DateRange:      q.Get("dateRange"),
		Author:         q.Get("author"),
		Page:           atoi(q.Get("page")),
		Size:           atoi(q.Get("size")),
		MinDownloads:   int64(atoi(q.Get("minDownloads"))),
	}
	for _, raw := range q["tags"] {
		p.Tags = append(p.Tags, discovery.ParseTags(raw)...)
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(q.Get("minRating")), 64); err == nil {
		p.MinRating = f
	}
	p.Caller = caller(callerID)
	return p
}

// caller returns the identity behind a caller header value, or nil for an
// anonymous request.
func caller(header string) *discovery.Identity {
	if id := strings.TrimSpace(header); id != "" {
		return &discovery.Identity{ID: id}
	}
	return nil
}

func firstOf(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := q.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
