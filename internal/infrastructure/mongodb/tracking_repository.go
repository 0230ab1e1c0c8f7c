package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marmot-vision/marmot/internal/domain"
)

// TrackingSessionRepository persists tracking sessions in MongoDB
type TrackingSessionRepository struct {
	collection *mongo.Collection
}

// NewTrackingSessionRepository creates a tracking session repository
func NewTrackingSessionRepository(db *mongo.Database) *TrackingSessionRepository {
	repo := &TrackingSessionRepository{
		collection: db.Collection("tracking_sessions"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *TrackingSessionRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "trackId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "workstationId", Value: 1}}},
		{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "lastSeen", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *TrackingSessionRepository) Save(ctx context.Context, session *domain.TrackingSession) error {
	opts := options.Update().SetUpsert(true)
	filter := bson.M{"trackId": session.TrackID}
	update := bson.M{"$set": session}

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save tracking session: %w", err)
	}
	return nil
}

func (r *TrackingSessionRepository) FindByTrackID(ctx context.Context, trackID int) (*domain.TrackingSession, error) {
	var session domain.TrackingSession
	err := r.collection.FindOne(ctx, bson.M{"trackId": trackID}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &session, err
}

func (r *TrackingSessionRepository) FindActive(ctx context.Context) ([]*domain.TrackingSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "lastSeen", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"isActive": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var sessions []*domain.TrackingSession
	err = cursor.All(ctx, &sessions)
	return sessions, err
}

func (r *TrackingSessionRepository) CloseStale(ctx context.Context, lastSeenBefore time.Time) (int64, error) {
	filter := bson.M{"isActive": true, "lastSeen": bson.M{"$lt": lastSeenBefore}}
	update := bson.M{"$set": bson.M{"isActive": false}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (r *TrackingSessionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"lastSeen": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
