package notification

import (
	"context"

	"insure-crm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const settingsCollection = "notification_settings"

type SettingsRepository interface {
	// Get returns nil when the user never saved settings.
	Get(ctx context.Context, userID string) (*Settings, error)
	Upsert(ctx context.Context, s *Settings) error
}

type SettingsRepositoryImpl struct {
	collection *mongo.Collection
}

func NewSettingsRepository(db *database.MongodbDB) SettingsRepository {
	return &SettingsRepositoryImpl{
		collection: db.DB.Collection(settingsCollection),
	}
}

func (r *SettingsRepositoryImpl) Get(ctx context.Context, userID string) (*Settings, error) {
	var s Settings
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SettingsRepositoryImpl) Upsert(ctx context.Context, s *Settings) error {
	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"user_id": s.UserID},
		s,
		options.Replace().SetUpsert(true),
	)
	return err
}
