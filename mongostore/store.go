package mongostore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"catalog-discovery/discovery"
)

const idChunkSize = 1000

// FindFiltered implements discovery.Store.
func (m *DB) FindFiltered(ctx context.Context, pred discovery.Predicate, order []discovery.SortField, skip, limit int) ([]discovery.Project, error) {
	if skip < 0 || limit < 0 {
		return nil, fmt.Errorf("invalid window skip=%d limit=%d", skip, limit)
	}
	filter, err := toFilter(pred)
	if err != nil {
		return nil, err
	}
	sort, err := sortDoc(order)
	if err != nil {
		return nil, err
	}
	opts := options.Find().
		SetSort(sort).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))
	return m.find(ctx, filter, opts)
}

func (m *DB) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]discovery.Project, error) {
	cursor, err := m.projects.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	var docs []projectDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %w", err)
	}
	out := make([]discovery.Project, len(docs))
	for i, d := range docs {
		out[i] = d.toProject()
	}
	return out, nil
}

// Count implements discovery.Store.
func (m *DB) Count(ctx context.Context, pred discovery.Predicate) (int64, error) {
	filter, err := toFilter(pred)
	if err != nil {
		return 0, err
	}
	n, err := m.projects.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return n, nil
}

// FindAtRank implements discovery.Store.
func (m *DB) FindAtRank(ctx context.Context, pred discovery.Predicate, field discovery.Field, rank int) (*discovery.Project, error) {
	if rank < 0 {
		return nil, nil
	}
	ps, err := m.FindFiltered(ctx, pred, []discovery.SortField{{Field: field}, {Field: discovery.FieldID}}, rank, 1)
	if err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return nil, nil
	}
	return &ps[0], nil
}

// ExistsAllIDs implements discovery.Store.
func (m *DB) ExistsAllIDs(ctx context.Context, ids []string) (int64, error) {
	var total int64
	for chunk := range slices.Chunk(ids, idChunkSize) {
		n, err := m.projects.CountDocuments(ctx, bson.M{
			"_id":    bson.M{"$in": chunk},
			"status": bson.M{"$ne": string(discovery.StatusDeleted)},
		})
		if err != nil {
			return 0, fmt.Errorf("failed to check project existence: %w", err)
		}
		total += n
	}
	return total, nil
}

// Candidates implements discovery.Store.
func (m *DB) Candidates(ctx context.Context, pred discovery.Predicate) ([]discovery.Candidate, error) {
	filter, err := toFilter(pred)
	if err != nil {
		return nil, err
	}
	opts := options.Find().
		SetProjection(bson.M{"_id": 1, "download_count": 1, "rating": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := m.projects.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	var docs []struct {
		ID            string  `bson:"_id"`
		DownloadCount int64   `bson:"download_count"`
		Rating        float64 `bson:"rating"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode candidates: %w", err)
	}
	out := make([]discovery.Candidate, len(docs))
	for i, d := range docs {
		out[i] = discovery.Candidate{ID: d.ID, DownloadCount: d.DownloadCount, Rating: d.Rating}
	}
	return out, nil
}

// FindByIDs implements discovery.Store.
func (m *DB) FindByIDs(ctx context.Context, ids []string) ([]discovery.Project, error) {
	var out []discovery.Project
	for chunk := range slices.Chunk(ids, idChunkSize) {
		ps, err := m.find(ctx, bson.M{"_id": bson.M{"$in": chunk}}, options.Find())
		if err != nil {
			return nil, err
		}
		out = append(out, ps...)
	}
	return out, nil
}

// CountInWindow implements discovery.EventLog with a $match/$group
// aggregation.
func (m *DB) CountInWindow(ctx context.Context, ids []string, start, end time.Time) (map[string]int64, error) {
	out := make(map[string]int64, len(ids))
	for chunk := range slices.Chunk(ids, idChunkSize) {
		cursor, err := m.events.Aggregate(ctx, windowPipeline(chunk, start, end))
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate events: %w", err)
		}
		var results []struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cursor.All(ctx, &results); err != nil {
			return nil, fmt.Errorf("failed to decode event counts: %w", err)
		}
		for _, r := range results {
			out[r.ID] = r.Count
		}
	}
	return out, nil
}

func windowPipeline(ids []string, start, end time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "project_id", Value: bson.M{"$in": ids}},
			{Key: "occurred_at", Value: bson.M{"$gte": start.UTC(), "$lt": end.UTC()}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$project_id"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
}

// LikedProjectIDs implements discovery.IdentityResolver. Unknown users have
// no likes.
func (m *DB) LikedProjectIDs(ctx context.Context, who discovery.Identity) ([]string, error) {
	var u userDoc
	err := m.users.FindOne(ctx, bson.M{"_id": who.ID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load likes for %q: %w", who.ID, err)
	}
	return u.LikedProjectIDs, nil
}
