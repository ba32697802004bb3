package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"catalog-discovery/discovery"
)

// UpsertProjects inserts projects or replaces existing rows with the same id.
func (s *Store) UpsertProjects(ctx context.Context, ps []discovery.Project) error {
	if len(ps) == 0 {
		return nil
	}
	recs := make([]ProjectRecord, len(ps))
	for i, p := range ps {
		recs[i] = toRecord(p)
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(recs, 100).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %d projects: %w", len(ps), err)
	}
	return nil
}

// GetProject loads one project regardless of status.
func (s *Store) GetProject(ctx context.Context, id string) (discovery.Project, error) {
	var rec ProjectRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return discovery.Project{}, fmt.Errorf("project %q: %w", id, discovery.ErrNotFound)
	}
	if err != nil {
		return discovery.Project{}, fmt.Errorf("failed to load project %q: %w", id, err)
	}
	return rec.toProject(), nil
}

// RecordDownloads appends one event per timestamp.
func (s *Store) RecordDownloads(ctx context.Context, projectID string, at ...time.Time) error {
	if len(at) == 0 {
		return nil
	}
	events := make([]DownloadEvent, len(at))
	for i, t := range at {
		events[i] = DownloadEvent{ProjectID: projectID, OccurredAt: toMillis(t)}
	}
	if err := s.db.WithContext(ctx).CreateInBatches(events, 500).Error; err != nil {
		return fmt.Errorf("failed to record downloads for %q: %w", projectID, err)
	}
	return nil
}

// AddLike marks projectID as a favorite of userID. Repeated likes are
// ignored.
func (s *Store) AddLike(ctx context.Context, userID, projectID string) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Like{UserID: userID, ProjectID: projectID, CreatedAt: time.Now().UTC()}).Error
	if err != nil {
		return fmt.Errorf("failed to add like: %w", err)
	}
	return nil
}
