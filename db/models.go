package db

import (
	"strings"
	"time"

	"catalog-discovery/discovery"
)

// ProjectRecord is the stored form of a catalog project. Multi-valued
// fields are kept as "|a|b|" so a single element can be matched exactly.
// Timestamps are Unix milliseconds so they compare numerically.
type ProjectRecord struct {
	ID             string `gorm:"primaryKey"`
	Title          string `gorm:"index"`
	Description    string
	Author         string `gorm:"index"`
	Contributors   string
	Classification string `gorm:"index"`
	Tags           string
	GameVersions   string
	DownloadCount  int64 `gorm:"index"`
	FavoriteCount  int64
	Rating         float64 `gorm:"index"`
	ReviewCount    int
	Status         string `gorm:"index"`
	CreatedAt      int64  `gorm:"index;autoCreateTime:false"`
	UpdatedAt      int64  `gorm:"index;autoUpdateTime:false"`
}

func (ProjectRecord) TableName() string { return "projects" }

// DownloadEvent is one download or view of a project.
type DownloadEvent struct {
	ID         uint   `gorm:"primaryKey"`
	ProjectID  string `gorm:"index:idx_event_project_at,priority:1"`
	OccurredAt int64  `gorm:"index:idx_event_project_at,priority:2"`
}

// Like records that a user favorited a project.
type Like struct {
	UserID    string `gorm:"primaryKey"`
	ProjectID string `gorm:"primaryKey"`
	CreatedAt time.Time
}

const listSep = "|"

func joinList(vals []string) string {
	var kept []string
	for _, v := range vals {
		v = strings.ReplaceAll(strings.TrimSpace(v), listSep, "")
		if v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return listSep + strings.Join(kept, listSep) + listSep
}

func splitList(s string) []string {
	s = strings.Trim(s, listSep)
	if s == "" {
		return []string{}
	}
	return strings.Split(s, listSep)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func toRecord(p discovery.Project) ProjectRecord {
	return ProjectRecord{
		ID:             p.ID,
		Title:          p.Title,
		Description:    p.Description,
		Author:         p.Author,
		Contributors:   joinList(p.Contributors),
		Classification: string(p.Classification),
		Tags:           joinList(p.Tags),
		GameVersions:   joinList(p.GameVersions),
		DownloadCount:  p.DownloadCount,
		FavoriteCount:  p.FavoriteCount,
		Rating:         p.Rating,
		ReviewCount:    p.ReviewCount,
		Status:         string(p.Status),
		CreatedAt:      toMillis(p.CreatedAt),
		UpdatedAt:      toMillis(p.UpdatedAt),
	}
}

func (r ProjectRecord) toProject() discovery.Project {
	return discovery.Project{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		Author:         r.Author,
		Contributors:   splitList(r.Contributors),
		Classification: discovery.Classification(r.Classification),
		Tags:           splitList(r.Tags),
		GameVersions:   splitList(r.GameVersions),
		DownloadCount:  r.DownloadCount,
		FavoriteCount:  r.FavoriteCount,
		Rating:         r.Rating,
		ReviewCount:    r.ReviewCount,
		Status:         discovery.Status(r.Status),
		CreatedAt:      fromMillis(r.CreatedAt),
		UpdatedAt:      fromMillis(r.UpdatedAt),
	}
}
