package notification

import (
	"context"

	"insure-crm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const historyCollection = "notification_history"

type HistoryRepository interface {
	Insert(ctx context.Context, h *History) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]History, error)
}

type HistoryRepositoryImpl struct {
	collection *mongo.Collection
}

func NewHistoryRepository(db *database.MongodbDB) HistoryRepository {
	return &HistoryRepositoryImpl{
		collection: db.DB.Collection(historyCollection),
	}
}

func (r *HistoryRepositoryImpl) Insert(ctx context.Context, h *History) error {
	if h.ID.IsZero() {
		h.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, h)
	return err
}

func (r *HistoryRepositoryImpl) ListByUser(ctx context.Context, userID string, limit int64) ([]History, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = DefaultListLimit
	}
	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	history := []History{}
	if err := cursor.All(ctx, &history); err != nil {
		return nil, err
	}
	return history, nil
}
