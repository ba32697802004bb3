package mongostore

import (
	"time"

	"catalog-discovery/discovery"
)

type projectDoc struct {
	ID             string    `bson:"_id"`
	Title          string    `bson:"title"`
	Description    string    `bson:"description"`
	Author         string    `bson:"author"`
	Contributors   []string  `bson:"contributors"`
	Classification string    `bson:"classification"`
	Tags           []string  `bson:"tags"`
	GameVersions   []string  `bson:"game_versions"`
	DownloadCount  int64     `bson:"download_count"`
	FavoriteCount  int64     `bson:"favorite_count"`
	Rating         float64   `bson:"rating"`
	ReviewCount    int       `bson:"review_count"`
	Status         string    `bson:"status"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

type eventDoc struct {
	ProjectID  string    `bson:"project_id"`
	OccurredAt time.Time `bson:"occurred_at"`
}

type userDoc struct {
	ID              string   `bson:"_id"`
	LikedProjectIDs []string `bson:"liked_project_ids"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func toDoc(p discovery.Project) projectDoc {
	return projectDoc{
		ID:             p.ID,
		Title:          p.Title,
		Description:    p.Description,
		Author:         p.Author,
		Contributors:   nonNil(p.Contributors),
		Classification: string(p.Classification),
		Tags:           nonNil(p.Tags),
		GameVersions:   nonNil(p.GameVersions),
		DownloadCount:  p.DownloadCount,
		FavoriteCount:  p.FavoriteCount,
		Rating:         p.Rating,
		ReviewCount:    p.ReviewCount,
		Status:         string(p.Status),
		CreatedAt:      p.CreatedAt.UTC(),
		UpdatedAt:      p.UpdatedAt.UTC(),
	}
}

func (d projectDoc) toProject() discovery.Project {
	return discovery.Project{
		ID:             d.ID,
		Title:          d.Title,
		Description:    d.Description,
		Author:         d.Author,
		Contributors:   nonNil(d.Contributors),
		Classification: discovery.Classification(d.Classification),
		Tags:           nonNil(d.Tags),
		GameVersions:   nonNil(d.GameVersions),
		DownloadCount:  d.DownloadCount,
		FavoriteCount:  d.FavoriteCount,
		Rating:         d.Rating,
		ReviewCount:    d.ReviewCount,
		Status:         discovery.Status(d.Status),
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}
