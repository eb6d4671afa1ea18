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

const ruleCollection = "notification_rules"

type RuleRepository interface {
	List(ctx context.Context) ([]Rule, error)
	// ListActive returns the agent's own rules plus the global ones (empty user id).
	ListActive(ctx context.Context, agentID string) ([]Rule, error)
	Get(ctx context.Context, id primitive.ObjectID) (*Rule, error)
	Create(ctx context.Context, rule *Rule) error
	Update(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type RuleRepositoryImpl struct {
	collection *mongo.Collection
}

func NewRuleRepository(db *database.MongodbDB) RuleRepository {
	return &RuleRepositoryImpl{
		collection: db.DB.Collection(ruleCollection),
	}
}

func (r *RuleRepositoryImpl) find(ctx context.Context, filter bson.M) ([]Rule, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	rules := []Rule{}
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *RuleRepositoryImpl) List(ctx context.Context) ([]Rule, error) {
	return r.find(ctx, bson.M{})
}

func (r *RuleRepositoryImpl) ListActive(ctx context.Context, agentID string) ([]Rule, error) {
	return r.find(ctx, bson.M{
		"active": true,
		"$or": bson.A{
			bson.M{"user_id": agentID},
			bson.M{"user_id": ""},
			bson.M{"user_id": bson.M{"$exists": false}},
		},
	})
}

func (r *RuleRepositoryImpl) Get(ctx context.Context, id primitive.ObjectID) (*Rule, error) {
	var rule Rule
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rule)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *RuleRepositoryImpl) Create(ctx context.Context, rule *Rule) error {
	rule.ID = primitive.NewObjectID()
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt
	_, err := r.collection.InsertOne(ctx, rule)
	return err
}

func (r *RuleRepositoryImpl) Update(ctx context.Context, rule *Rule) error {
	rule.UpdatedAt = time.Now()
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": rule.ID}, bson.M{"$set": bson.M{
		"name":         rule.Name,
		"user_id":      rule.UserID,
		"active":       rule.Active,
		"type":         rule.Type,
		"priority":     rule.Priority,
		"channel":      rule.Channel,
		"condition":    rule.Condition,
		"title":        rule.Title,
		"message":      rule.Message,
		"once_per_day": rule.OncePerDay,
		"updated_at":   rule.UpdatedAt,
	}})
	return err
}

func (r *RuleRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
