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

// ZoneRepository persists zone aggregates in MongoDB
type ZoneRepository struct {
	collection *mongo.Collection
}

// NewZoneRepository creates a zone repository
func NewZoneRepository(db *mongo.Database) *ZoneRepository {
	repo := &ZoneRepository{
		collection: db.Collection("zones"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *ZoneRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "zoneId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "workstationId", Value: 1}}},
		{Keys: bson.D{{Key: "isActive", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *ZoneRepository) Save(ctx context.Context, zone *domain.Zone) error {
	zone.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"zoneId": zone.ZoneID}
	update := bson.M{"$set": zone}

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save zone: %w", err)
	}
	return nil
}

func (r *ZoneRepository) FindByID(ctx context.Context, zoneID string) (*domain.Zone, error) {
	var zone domain.Zone
	err := r.collection.FindOne(ctx, bson.M{"zoneId": zoneID}).Decode(&zone)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &zone, err
}

func (r *ZoneRepository) FindAll(ctx context.Context, skip, limit int) ([]*domain.Zone, error) {
	opts := options.Find().
		SetSkip(int64(skip)).
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var zones []*domain.Zone
	err = cursor.All(ctx, &zones)
	return zones, err
}

func (r *ZoneRepository) FindByWorkstationID(ctx context.Context, workstationID string) ([]*domain.Zone, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"workstationId": workstationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var zones []*domain.Zone
	err = cursor.All(ctx, &zones)
	return zones, err
}

func (r *ZoneRepository) Delete(ctx context.Context, zoneID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"zoneId": zoneID})
	return err
}

func (r *ZoneRepository) DeleteByWorkstationID(ctx context.Context, workstationID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"workstationId": workstationID})
	return err
}
