package trigger

import (
	"context"
	"time"

	"insure-crm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RunRepository interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, run *TriggerRun) error
	Update(ctx context.Context, run *TriggerRun) error
	// List returns the newest runs first. An empty kind lists every kind.
	List(ctx context.Context, kind RunKind, limit int) ([]TriggerRun, error)
}

type RunRepositoryImpl struct {
	collection *mongo.Collection
}

func NewRunRepository(db *database.MongodbDB) RunRepository {
	return &RunRepositoryImpl{
		collection: db.DB.Collection("notification_trigger_runs"),
	}
}

func (r *RunRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "run_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "started_at", Value: -1}}},
		{Keys: bson.D{{Key: "started_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(int32((90 * 24 * time.Hour).Seconds()))},
	})
	return err
}

func (r *RunRepositoryImpl) Create(ctx context.Context, run *TriggerRun) error {
	run.ID = primitive.NewObjectID()
	_, err := r.collection.InsertOne(ctx, run)
	return err
}

func (r *RunRepositoryImpl) Update(ctx context.Context, run *TriggerRun) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": run.ID}, run)
	return err
}

func (r *RunRepositoryImpl) List(ctx context.Context, kind RunKind, limit int) ([]TriggerRun, error) {
	filter := bson.M{}
	if kind != "" {
		filter["kind"] = kind
	}
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}}).SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var runs []TriggerRun
	if err = cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []TriggerRun{}
	}
	return runs, nil
}
