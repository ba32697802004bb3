// Package mongostore implements the discovery store, event log and identity
// resolver on MongoDB.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	projectsCollection = "projects"
	eventsCollection   = "download_events"
	usersCollection    = "users"
)

// DB holds the client and the collections the catalog uses.
type DB struct {
	client   *mongo.Client
	projects *mongo.Collection
	events   *mongo.Collection
	users    *mongo.Collection
	log      *zap.SugaredLogger
}

// Connect dials mongoURL, verifies the connection and ensures indexes.
func Connect(ctx context.Context, mongoURL, database string, log *zap.SugaredLogger) (*DB, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(mongoURL).
		SetMaxPoolSize(100).
		SetMinPoolSize(10).
		SetMaxConnIdleTime(5 * time.Minute)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	m := &DB{
		client:   client,
		projects: db.Collection(projectsCollection),
		events:   db.Collection(eventsCollection),
		users:    db.Collection(usersCollection),
		log:      log,
	}
	m.ensureIndexes(ctx)
	log.Infow("MongoDB connected", zap.String("database", database))
	return m, nil
}

func (m *DB) ensureIndexes(ctx context.Context) {
	projectIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
		{Keys: bson.D{{Key: "classification", Value: 1}}},
		{Keys: bson.D{{Key: "download_count", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "rating", Value: -1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}}},
	}
	for _, idx := range projectIndexes {
		if _, err := m.projects.Indexes().CreateOne(ctx, idx); err != nil {
			m.log.Warnw("Failed to create project index", zap.Error(err))
		}
	}
	eventIndex := mongo.IndexModel{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "occurred_at", Value: 1}}}
	if _, err := m.events.Indexes().CreateOne(ctx, eventIndex); err != nil {
		m.log.Warnw("Failed to create event index", zap.Error(err))
	}
}

// Close disconnects the client.
func (m *DB) Close() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
