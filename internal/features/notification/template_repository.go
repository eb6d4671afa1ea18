package notification

import (
	"context"
	"time"

	"insure-crm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const templateCollection = "notification_templates"

type TemplateRepository interface {
	List(ctx context.Context) ([]Template, error)
	ListActive(ctx context.Context, locale string) ([]Template, error)
	// Upsert replaces the template with the same key and locale.
	Upsert(ctx context.Context, t *Template) error
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type TemplateRepositoryImpl struct {
	collection *mongo.Collection
}

func NewTemplateRepository(db *database.MongodbDB) TemplateRepository {
	return &TemplateRepositoryImpl{
		collection: db.DB.Collection(templateCollection),
	}
}

func (r *TemplateRepositoryImpl) find(ctx context.Context, filter bson.M) ([]Template, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "key", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	templates := []Template{}
	if err := cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *TemplateRepositoryImpl) List(ctx context.Context) ([]Template, error) {
	return r.find(ctx, bson.M{})
}

func (r *TemplateRepositoryImpl) ListActive(ctx context.Context, locale string) ([]Template, error) {
	return r.find(ctx, bson.M{"active": true, "locale": locale})
}

func (r *TemplateRepositoryImpl) Upsert(ctx context.Context, t *Template) error {
	t.UpdatedAt = time.Now()
	var stored Template
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"key": t.Key, "locale": t.Locale},
		bson.M{"$set": bson.M{
			"title":      t.Title,
			"message":    t.Message,
			"active":     t.Active,
			"updated_at": t.UpdatedAt,
		}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&stored)
	if err != nil {
		return err
	}
	t.ID = stored.ID
	return nil
}

func (r *TemplateRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
