package modrinth

import (
	"strings"

	"catalog-discovery/discovery"
)

// Classify maps a Modrinth project type onto a catalog classification.
func Classify(projectType string) discovery.Classification {
	switch strings.ToLower(projectType) {
	case "datapack":
		return discovery.ClassData
	case "resourcepack", "shader":
		return discovery.ClassArt
	case "modpack":
		return discovery.ClassModpack
	case "world", "save":
		return discovery.ClassSave
	}
	return discovery.ClassPlugin
}

// statusOf maps Modrinth's lifecycle states onto the catalog's.
func statusOf(s string) discovery.Status {
	switch strings.ToLower(s) {
	case "", "approved":
		return discovery.StatusPublished
	case "archived":
		return discovery.StatusArchived
	case "unlisted", "private":
		return discovery.StatusUnlisted
	case "draft":
		return discovery.StatusDraft
	case "processing":
		return discovery.StatusPending
	}
	return discovery.StatusDraft
}

// ToProject converts a search hit. Search only returns listed projects, so
// hits are published. Ratings are not part of the API and stay zero.
func (h SearchHit) ToProject() discovery.Project {
	return discovery.Project{
		ID:             h.ProjectID,
		Title:          h.Title,
		Description:    h.Description,
		Author:         h.Author,
		Classification: Classify(h.ProjectType),
		Tags:           h.Categories,
		GameVersions:   h.Versions,
		DownloadCount:  h.Downloads,
		FavoriteCount:  h.Follows,
		Status:         discovery.StatusPublished,
		CreatedAt:      h.DateCreated.UTC(),
		UpdatedAt:      h.DateModified.UTC(),
	}
}

// ToProject converts a full project record. The author is not part of the
// project payload and must be supplied.
func (p Project) ToProject(author string) discovery.Project {
	return discovery.Project{
		ID:             p.ID,
		Title:          p.Title,
		Description:    p.Description,
		Author:         author,
		Classification: Classify(p.ProjectType),
		Tags:           p.Categories,
		GameVersions:   p.GameVersions,
		DownloadCount:  p.Downloads,
		FavoriteCount:  p.Followers,
		Status:         statusOf(p.Status),
		CreatedAt:      p.Published.UTC(),
		UpdatedAt:      p.Updated.UTC(),
	}
}
