package business

import (
	"context"
	"time"

	"insure-crm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	agents   *mongo.Collection
	clients  *mongo.Collection
	stages   *mongo.Collection
	meetings *mongo.Collection
}

func NewMongoStore(db *database.MongodbDB) *MongoStore {
	return &MongoStore{
		agents:   db.DB.Collection("agents"),
		clients:  db.DB.Collection("clients"),
		stages:   db.DB.Collection("pipeline_stages"),
		meetings: db.DB.Collection("meetings"),
	}
}

func (s *MongoStore) ListActiveAgents(ctx context.Context) ([]Agent, error) {
	var agents []Agent
	if err := findAll(ctx, s.agents, bson.M{"active": true}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}), &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

func (s *MongoStore) GetAgent(ctx context.Context, id string) (*Agent, error) {
	var agent Agent
	if found, err := findOne(ctx, s.agents, bson.M{"_id": id}, &agent); err != nil || !found {
		return nil, err
	}
	return &agent, nil
}

func (s *MongoStore) ListClients(ctx context.Context, agentID string) ([]Client, error) {
	var clients []Client
	if err := findAll(ctx, s.clients, bson.M{"agent_id": agentID}, options.Find(), &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

func (s *MongoStore) GetClient(ctx context.Context, agentID, clientID string) (*Client, error) {
	var client Client
	if found, err := findOne(ctx, s.clients, bson.M{"_id": clientID, "agent_id": agentID}, &client); err != nil || !found {
		return nil, err
	}
	return &client, nil
}

func (s *MongoStore) ListStages(ctx context.Context, agentID string) ([]PipelineStage, error) {
	var stages []PipelineStage
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})
	if err := findAll(ctx, s.stages, bson.M{"agent_id": agentID}, opts, &stages); err != nil {
		return nil, err
	}
	return stages, nil
}

func (s *MongoStore) GetStage(ctx context.Context, agentID, stageID string) (*PipelineStage, error) {
	var stage PipelineStage
	if found, err := findOne(ctx, s.stages, bson.M{"_id": stageID, "agent_id": agentID}, &stage); err != nil || !found {
		return nil, err
	}
	return &stage, nil
}

func (s *MongoStore) ListMeetings(ctx context.Context, agentID string, from, to time.Time) ([]Meeting, error) {
	var meetings []Meeting
	filter := bson.M{
		"agent_id":     agentID,
		"scheduled_at": bson.M{"$gte": from, "$lt": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: 1}})
	if err := findAll(ctx, s.meetings, filter, opts, &meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}

func (s *MongoStore) GetMeeting(ctx context.Context, agentID, meetingID string) (*Meeting, error) {
	var meeting Meeting
	if found, err := findOne(ctx, s.meetings, bson.M{"_id": meetingID, "agent_id": agentID}, &meeting); err != nil || !found {
		return nil, err
	}
	return &meeting, nil
}

func findAll(ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions, out interface{}) error {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

func findOne(ctx context.Context, coll *mongo.Collection, filter bson.M, out interface{}) (bool, error) {
	err := coll.FindOne(ctx, filter).Decode(out)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
