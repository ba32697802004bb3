package discovery

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-json"
)

// DefaultPageSize is used when a caller passes a non-positive size.
const DefaultPageSize = 20

// Params is the complete tuple of filter and sort inputs for one discovery
// query. Its normalized form is the cache key.
type Params struct {
	Tags           []string  `json:"tags,omitempty"`
	Search         string    `json:"search,omitempty"`
	Page           int       `json:"page"`
	Size           int       `json:"size"`
	Sort           string    `json:"sort,omitempty"`
	GameVersion    string    `json:"gameVersion,omitempty"`
	Classification string    `json:"classification,omitempty"`
	MinRating      float64   `json:"minRating,omitempty"`
	MinDownloads   int64     `json:"minDownloads,omitempty"`
	Category       string    `json:"category,omitempty"`
	DateRange      string    `json:"dateRange,omitempty"`
	Author         string    `json:"author,omitempty"`
	Caller         *Identity `json:"caller,omitempty"`
}

// Normalize returns a copy with trimmed strings, sorted unique tags and
// corrected paging. The caller identity is kept only for views that depend
// on it, so anonymous and signed-in callers share cache entries elsewhere.
func (p Params) Normalize(defaultSize int) Params {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	out := p
	out.Search = strings.TrimSpace(p.Search)
	out.Sort = strings.ToLower(strings.TrimSpace(p.Sort))
	out.GameVersion = strings.TrimSpace(p.GameVersion)
	out.Classification = strings.TrimSpace(p.Classification)
	out.Category = strings.TrimSpace(p.Category)
	out.DateRange = strings.TrimSpace(p.DateRange)
	out.Author = strings.TrimSpace(p.Author)

	out.Tags = nil
	for _, t := range p.Tags {
		if t = strings.TrimSpace(t); t != "" {
			out.Tags = append(out.Tags, t)
		}
	}
	slices.Sort(out.Tags)
	out.Tags = slices.Compact(out.Tags)

	if out.Page < 0 {
		out.Page = 0
	}
	if out.Size <= 0 {
		out.Size = defaultSize
	}
	if out.MinRating < 0 {
		out.MinRating = 0
	}
	if out.MinDownloads < 0 {
		out.MinDownloads = 0
	}

	if !ViewOf(out.Category).callerScoped() || out.Caller == nil || out.Caller.ID == "" {
		out.Caller = nil
	} else {
		c := *out.Caller
		out.Caller = &c
	}
	return out
}

// CacheKey hashes the normalized tuple. Call it on normalized params.
func (p Params) CacheKey() string {
	return GenerateKey("projects", p)
}

// GenerateKey creates a cache key from a method name and parameters.
func GenerateKey(method string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", method, params)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", method, hash[:16])
}

// ParseTags splits a comma separated tag list.
func ParseTags(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(csv, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
