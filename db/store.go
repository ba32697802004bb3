package db

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"catalog-discovery/discovery"
)

// idChunkSize keeps IN lists under SQLite's variable limit.
const idChunkSize = 500

// Store is the SQLite catalog. It implements discovery.Store,
// discovery.EventLog and discovery.IdentityResolver.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open connection.
func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

func (s *Store) filtered(ctx context.Context, pred discovery.Predicate) (*gorm.DB, error) {
	where, args, err := buildWhere(pred)
	if err != nil {
		return nil, err
	}
	return s.db.WithContext(ctx).Model(&ProjectRecord{}).Where(where, args...), nil
}

func ordered(q *gorm.DB, order []discovery.SortField) (*gorm.DB, error) {
	for _, o := range order {
		col, err := column(o.Field)
		if err != nil {
			return nil, err
		}
		if o.Field.MultiValued() {
			return nil, fmt.Errorf("cannot sort by multi-valued field %q", o.Field)
		}
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: o.Desc})
	}
	return q, nil
}

func toProjects(recs []ProjectRecord) []discovery.Project {
	out := make([]discovery.Project, len(recs))
	for i, r := range recs {
		out[i] = r.toProject()
	}
	return out
}

// FindFiltered implements discovery.Store.
func (s *Store) FindFiltered(ctx context.Context, pred discovery.Predicate, order []discovery.SortField, skip, limit int) ([]discovery.Project, error) {
	// gorm drops a negative offset, which would silently serve the first page.
	if skip < 0 || limit < 0 {
		return nil, fmt.Errorf("invalid window skip=%d limit=%d", skip, limit)
	}
	q, err := s.filtered(ctx, pred)
	if err != nil {
		return nil, err
	}
	if q, err = ordered(q, order); err != nil {
		return nil, err
	}
	var recs []ProjectRecord
	if err := q.Offset(skip).Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	return toProjects(recs), nil
}

// Count implements discovery.Store.
func (s *Store) Count(ctx context.Context, pred discovery.Predicate) (int64, error) {
	q, err := s.filtered(ctx, pred)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return n, nil
}

// FindAtRank implements discovery.Store.
func (s *Store) FindAtRank(ctx context.Context, pred discovery.Predicate, field discovery.Field, rank int) (*discovery.Project, error) {
	if rank < 0 {
		return nil, nil
	}
	q, err := s.filtered(ctx, pred)
	if err != nil {
		return nil, err
	}
	if q, err = ordered(q, []discovery.SortField{{Field: field}, {Field: discovery.FieldID}}); err != nil {
		return nil, err
	}
	var recs []ProjectRecord
	if err := q.Offset(rank).Limit(1).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to sample rank %d: %w", rank, err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	p := recs[0].toProject()
	return &p, nil
}

// ExistsAllIDs implements discovery.Store.
func (s *Store) ExistsAllIDs(ctx context.Context, ids []string) (int64, error) {
	var total int64
	for chunk := range slices.Chunk(ids, idChunkSize) {
		var n int64
		err := s.db.WithContext(ctx).Model(&ProjectRecord{}).
			Where("id IN ? AND status <> ?", chunk, string(discovery.StatusDeleted)).
			Count(&n).Error
		if err != nil {
			return 0, fmt.Errorf("failed to check project existence: %w", err)
		}
		total += n
	}
	return total, nil
}

type candidateRow struct {
	ID            string
	DownloadCount int64
	Rating        float64
}

// Candidates implements discovery.Store.
func (s *Store) Candidates(ctx context.Context, pred discovery.Predicate) ([]discovery.Candidate, error) {
	q, err := s.filtered(ctx, pred)
	if err != nil {
		return nil, err
	}
	var rows []candidateRow
	if err := q.Select("id", "download_count", "rating").Order("id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	out := make([]discovery.Candidate, len(rows))
	for i, r := range rows {
		out[i] = discovery.Candidate{ID: r.ID, DownloadCount: r.DownloadCount, Rating: r.Rating}
	}
	return out, nil
}

// FindByIDs implements discovery.Store. Order is unspecified.
func (s *Store) FindByIDs(ctx context.Context, ids []string) ([]discovery.Project, error) {
	var out []discovery.Project
	for chunk := range slices.Chunk(ids, idChunkSize) {
		var recs []ProjectRecord
		if err := s.db.WithContext(ctx).Where("id IN ?", chunk).Find(&recs).Error; err != nil {
			return nil, fmt.Errorf("failed to load projects by id: %w", err)
		}
		out = append(out, toProjects(recs)...)
	}
	return out, nil
}
