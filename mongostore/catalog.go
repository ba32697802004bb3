package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"catalog-discovery/discovery"
)

// UpsertProjects replaces or inserts projects by id.
func (m *DB) UpsertProjects(ctx context.Context, ps []discovery.Project) error {
	if len(ps) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, len(ps))
	for i, p := range ps {
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": p.ID}).
			SetReplacement(toDoc(p)).
			SetUpsert(true)
	}
	if _, err := m.projects.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to upsert %d projects: %w", len(ps), err)
	}
	return nil
}

// GetProject loads one project regardless of status.
func (m *DB) GetProject(ctx context.Context, id string) (discovery.Project, error) {
	var d projectDoc
	err := m.projects.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return discovery.Project{}, fmt.Errorf("project %q: %w", id, discovery.ErrNotFound)
	}
	if err != nil {
		return discovery.Project{}, fmt.Errorf("failed to load project %q: %w", id, err)
	}
	return d.toProject(), nil
}

// RecordDownloads appends one event per timestamp.
func (m *DB) RecordDownloads(ctx context.Context, projectID string, at ...time.Time) error {
	if len(at) == 0 {
		return nil
	}
	docs := make([]interface{}, len(at))
	for i, t := range at {
		docs[i] = eventDoc{ProjectID: projectID, OccurredAt: t.UTC()}
	}
	if _, err := m.events.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to record downloads for %q: %w", projectID, err)
	}
	return nil
}

// AddLike adds projectID to the user's favorites.
func (m *DB) AddLike(ctx context.Context, userID, projectID string) error {
	_, err := m.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$addToSet": bson.M{"liked_project_ids": projectID}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to add like: %w", err)
	}
	return nil
}
