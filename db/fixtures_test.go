package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"catalog-discovery/discovery"
)

// Status changes and deletions belong to the catalog's owning service. Tests
// use these to stage them directly in the table, which bypasses any result
// cache in front of the store.

// SetStatus moves a project to a new lifecycle state.
func (s *Store) SetStatus(ctx context.Context, id string, status discovery.Status) error {
	res := s.db.WithContext(ctx).Model(&ProjectRecord{}).
		Where("id = ?", id).
		Update("status", string(status))
	if res.Error != nil {
		return fmt.Errorf("failed to set status of %q: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("project %q: %w", id, discovery.ErrNotFound)
	}
	return nil
}

// DeleteProject removes a project with its events and likes.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&ProjectRecord{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete project %q: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("project %q: %w", id, discovery.ErrNotFound)
		}
		if err := tx.Where("project_id = ?", id).Delete(&DownloadEvent{}).Error; err != nil {
			return fmt.Errorf("failed to delete events of %q: %w", id, err)
		}
		if err := tx.Where("project_id = ?", id).Delete(&Like{}).Error; err != nil {
			return fmt.Errorf("failed to delete likes of %q: %w", id, err)
		}
		return nil
	})
}
