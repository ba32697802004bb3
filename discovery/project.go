// Package discovery turns filter criteria and a ranking algorithm into stable,
// paginated and cached pages of catalog projects.
package discovery

import (
	"context"
	"errors"
	"time"
)

// Classification is the kind of content a project ships.
type Classification string

const (
	ClassPlugin  Classification = "PLUGIN"
	ClassData    Classification = "DATA"
	ClassArt     Classification = "ART"
	ClassSave    Classification = "SAVE"
	ClassModpack Classification = "MODPACK"
)

// Status is the lifecycle state of a project. Only published and archived
// projects are publicly searchable.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPending   Status = "PENDING"
	StatusPublished Status = "PUBLISHED"
	StatusArchived  Status = "ARCHIVED"
	StatusUnlisted  Status = "UNLISTED"
	StatusDeleted   Status = "DELETED"
)

// Project is the searchable unit of the catalog.
type Project struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Author         string         `json:"author"`
	Contributors   []string       `json:"contributors,omitempty"`
	Classification Classification `json:"classification"`
	Tags           []string       `json:"tags"`
	GameVersions   []string       `json:"gameVersions"`
	DownloadCount  int64          `json:"downloadCount"`
	FavoriteCount  int64          `json:"favoriteCount"`
	Rating         float64        `json:"rating"`
	ReviewCount    int            `json:"reviewCount"`
	Status         Status         `json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// ResultPage is one contiguous, rank-ordered slice of a query's result set.
type ResultPage struct {
	Items         []Project `json:"items"`
	TotalMatching int64     `json:"totalMatching"`
	Page          int       `json:"page"`
	Size          int       `json:"size"`
}

// EmptyPage is the degraded answer for failed or empty queries.
func EmptyPage(page, size int) ResultPage {
	return ResultPage{Items: []Project{}, Page: page, Size: size}
}

// IDs returns the project ids on the page in order.
func (r ResultPage) IDs() []string {
	ids := make([]string, len(r.Items))
	for i, p := range r.Items {
		ids[i] = p.ID
	}
	return ids
}

func (r ResultPage) clone() ResultPage {
	items := make([]Project, len(r.Items))
	copy(items, r.Items)
	r.Items = items
	return r
}

// Identity is an already authenticated caller. ID is the canonical author
// identifier used for ownership checks.
type Identity struct {
	ID string `json:"id"`
}

// Candidate carries the fields scored strategies need, without loading the
// full project.
type Candidate struct {
	ID            string
	DownloadCount int64
	Rating        float64
}

// SortField orders results by one field.
type SortField struct {
	Field Field
	Desc  bool
}

// ErrNotFound is returned by collaborators when a requested record is absent.
var ErrNotFound = errors.New("not found")

// Store is the authoritative project store. Implementations must not mutate
// data and must honor ctx cancellation.
type Store interface {
	FindFiltered(ctx context.Context, pred Predicate, order []SortField, skip, limit int) ([]Project, error)
	Count(ctx context.Context, pred Predicate) (int64, error)
	// FindAtRank returns the project at the zero-based rank when sorted
	// ascending by field, or nil when rank is past the end.
	FindAtRank(ctx context.Context, pred Predicate, field Field, rank int) (*Project, error)
	// ExistsAllIDs counts how many of ids still exist and are not deleted.
	ExistsAllIDs(ctx context.Context, ids []string) (int64, error)
	Candidates(ctx context.Context, pred Predicate) ([]Candidate, error)
	FindByIDs(ctx context.Context, ids []string) ([]Project, error)
}

// EventLog is the read side of the download/view event stream.
type EventLog interface {
	// CountInWindow counts events per project with start <= timestamp < end.
	// Projects without events may be absent from the result.
	CountInWindow(ctx context.Context, ids []string, start, end time.Time) (map[string]int64, error)
}

// IdentityResolver resolves per-caller data the criteria builder needs.
type IdentityResolver interface {
	LikedProjectIDs(ctx context.Context, who Identity) ([]string, error)
}
