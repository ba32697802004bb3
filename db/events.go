package db

import (
	"context"
	"fmt"
	"slices"
	"time"

	"catalog-discovery/discovery"
)

type eventCount struct {
	ProjectID string
	N         int64
}

// CountInWindow implements discovery.EventLog.
func (s *Store) CountInWindow(ctx context.Context, ids []string, start, end time.Time) (map[string]int64, error) {
	out := make(map[string]int64, len(ids))
	for chunk := range slices.Chunk(ids, idChunkSize) {
		var rows []eventCount
		err := s.db.WithContext(ctx).Model(&DownloadEvent{}).
			Select("project_id, COUNT(*) AS n").
			Where("project_id IN ? AND occurred_at >= ? AND occurred_at < ?", chunk, toMillis(start), toMillis(end)).
			Group("project_id").
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count events: %w", err)
		}
		for _, r := range rows {
			out[r.ProjectID] = r.N
		}
	}
	return out, nil
}

// LikedProjectIDs implements discovery.IdentityResolver.
func (s *Store) LikedProjectIDs(ctx context.Context, who discovery.Identity) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&Like{}).
		Where("user_id = ?", who.ID).
		Order("project_id").
		Pluck("project_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load likes for %q: %w", who.ID, err)
	}
	return ids, nil
}
