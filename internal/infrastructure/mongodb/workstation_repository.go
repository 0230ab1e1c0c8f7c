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

// WorkstationRepository persists workstation aggregates in MongoDB
type WorkstationRepository struct {
	collection *mongo.Collection
}

// NewWorkstationRepository creates a workstation repository
func NewWorkstationRepository(db *mongo.Database) *WorkstationRepository {
	repo := &WorkstationRepository{
		collection: db.Collection("workstations"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *WorkstationRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "workstationId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "isActive", Value: 1}}},
		{Keys: bson.D{{Key: "currentStatus", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *WorkstationRepository) Save(ctx context.Context, workstation *domain.Workstation) error {
	workstation.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"workstationId": workstation.WorkstationID}
	update := bson.M{"$set": workstation}

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save workstation: %w", err)
	}
	return nil
}

func (r *WorkstationRepository) FindByID(ctx context.Context, workstationID string) (*domain.Workstation, error) {
	var workstation domain.Workstation
	err := r.collection.FindOne(ctx, bson.M{"workstationId": workstationID}).Decode(&workstation)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &workstation, err
}

func (r *WorkstationRepository) FindAll(ctx context.Context, skip, limit int) ([]*domain.Workstation, error) {
	opts := options.Find().
		SetSkip(int64(skip)).
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var workstations []*domain.Workstation
	err = cursor.All(ctx, &workstations)
	return workstations, err
}

func (r *WorkstationRepository) Delete(ctx context.Context, workstationID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"workstationId": workstationID})
	return err
}
