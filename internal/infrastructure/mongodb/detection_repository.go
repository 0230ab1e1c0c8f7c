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

// DetectionRepository persists detection records in MongoDB
type DetectionRepository struct {
	collection *mongo.Collection
}

// NewDetectionRepository creates a detection repository
func NewDetectionRepository(db *mongo.Database) *DetectionRepository {
	repo := &DetectionRepository{
		collection: db.Collection("detections"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *DetectionRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "detectionId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "workstationId", Value: 1}, {Key: "frameTimestamp", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *DetectionRepository) Save(ctx context.Context, detection *domain.Detection) error {
	if _, err := r.collection.InsertOne(ctx, detection); err != nil {
		return fmt.Errorf("failed to save detection: %w", err)
	}
	return nil
}

func (r *DetectionRepository) FindByWorkstationID(ctx context.Context, workstationID string, limit int) ([]*domain.Detection, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "frameTimestamp", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"workstationId": workstationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var detections []*domain.Detection
	err = cursor.All(ctx, &detections)
	return detections, err
}

func (r *DetectionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"createdAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
