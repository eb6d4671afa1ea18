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

const queueCollection = "notification_queue"

// NotificationRepository is the queue table. Every query is scoped by user id
// except the dispatcher operations, which work on a single claimed row.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	// CreateIfAbsent inserts n unless a row with n.DedupKey exists; on conflict n is
	// replaced by the stored row and created is false.
	CreateIfAbsent(ctx context.Context, n *Notification) (created bool, err error)
	GetByID(ctx context.Context, id primitive.ObjectID, userID string) (*Notification, error)
	List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id primitive.ObjectID, userID string, at time.Time) (*Notification, error)
	MarkAllRead(ctx context.Context, userID string, at time.Time) ([]Notification, error)
	MarkUnread(ctx context.Context, id primitive.ObjectID, userID string, at time.Time) (*Notification, error)
	Delete(ctx context.Context, id primitive.ObjectID, userID string) (*Notification, error)
	Stats(ctx context.Context, userID string, since time.Time) (*Stats, error)

	// ClaimDue leases one pending row whose scheduled time has passed; nil when none.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration) (*Notification, error)
	MarkDelivered(ctx context.Context, id primitive.ObjectID, at time.Time) error
	Reschedule(ctx context.Context, id primitive.ObjectID, at time.Time, retryCount int, errMsg string) error
	MarkFailed(ctx context.Context, id primitive.ObjectID, retryCount int, errMsg string) error
	Cancel(ctx context.Context, id primitive.ObjectID, reason string) error

	EnsureIndexes(ctx context.Context) error
}

type NotificationRepositoryImpl struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *database.MongodbDB) NotificationRepository {
	return &NotificationRepositoryImpl{
		collection: db.DB.Collection(queueCollection),
	}
}

func (r *NotificationRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_read", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduled_at", Value: 1}}},
		{
			Keys:    bson.D{{Key: "dedup_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	return err
}

func (r *NotificationRepositoryImpl) Create(ctx context.Context, n *Notification) error {
	result, err := r.collection.InsertOne(ctx, n)
	if err != nil {
		return err
	}
	n.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *NotificationRepositoryImpl) CreateIfAbsent(ctx context.Context, n *Notification) (bool, error) {
	if n.DedupKey == "" {
		return true, r.Create(ctx, n)
	}

	n.ID = primitive.NewObjectID()
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"dedup_key": n.DedupKey},
		bson.M{"$setOnInsert": n},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return false, err
	}
	if err == nil && res.UpsertedCount == 1 {
		return true, nil
	}

	// lost the race or the key already existed
	var existing Notification
	if err := r.collection.FindOne(ctx, bson.M{"dedup_key": n.DedupKey}).Decode(&existing); err != nil {
		return false, err
	}
	*n = existing
	return false, nil
}

func (r *NotificationRepositoryImpl) GetByID(ctx context.Context, id primitive.ObjectID, userID string) (*Notification, error) {
	var n Notification
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&n)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func listFilter(userID string, opts ListOptions) bson.M {
	filter := bson.M{"user_id": userID}
	if opts.Status != "" {
		filter["status"] = opts.Status
	}
	if opts.Type != "" {
		filter["type"] = opts.Type
	}
	if opts.UnreadOnly {
		filter["is_read"] = false
	}
	return filter
}

func (r *NotificationRepositoryImpl) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	opts = opts.Normalize()
	findOpts := options.Find().
		SetSort(bson.D{{Key: "is_read", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(opts.Offset).
		SetLimit(opts.Limit)

	cursor, err := r.collection.Find(ctx, listFilter(userID, opts), findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := []Notification{}
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *NotificationRepositoryImpl) CountUnread(ctx context.Context, userID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"user_id": userID, "is_read": false})
}

func (r *NotificationRepositoryImpl) MarkRead(ctx context.Context, id primitive.ObjectID, userID string, at time.Time) (*Notification, error) {
	var n Notification
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at, "status": StatusRead}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&n)
	if err == mongo.ErrNoDocuments {
		// already read (readAt stays as it was) or not this user's row
		return r.GetByID(ctx, id, userID)
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepositoryImpl) MarkAllRead(ctx context.Context, userID string, at time.Time) ([]Notification, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID, "is_read": false}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var ids []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &ids); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Notification{}, nil
	}

	objectIDs := make([]primitive.ObjectID, len(ids))
	for i, v := range ids {
		objectIDs[i] = v.ID
	}

	_, err = r.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": objectIDs}, "user_id": userID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at, "status": StatusRead}},
	)
	if err != nil {
		return nil, err
	}

	cursor, err = r.collection.Find(ctx,
		bson.M{"_id": bson.M{"$in": objectIDs}, "user_id": userID, "is_read": true},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	updated := []Notification{}
	if err := cursor.All(ctx, &updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *NotificationRepositoryImpl) MarkUnread(ctx context.Context, id primitive.ObjectID, userID string, at time.Time) (*Notification, error) {
	// pipeline update so a never-delivered row gets a delivered_at to match its new status
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"is_read":      false,
			"status":       StatusDelivered,
			"delivered_at": bson.M{"$ifNull": bson.A{"$delivered_at", at}},
		}}},
		{{Key: "$unset", Value: "read_at"}},
	}

	var n Notification
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID, "is_read": true},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&n)
	if err == mongo.ErrNoDocuments {
		return r.GetByID(ctx, id, userID)
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID, userID string) (*Notification, error) {
	var n Notification
	err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&n)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

type countBucket struct {
	Key   string `bson:"_id"`
	Count int64  `bson:"count"`
}

func (r *NotificationRepositoryImpl) Stats(ctx context.Context, userID string, since time.Time) (*Stats, error) {
	groupBy := func(field string) bson.A {
		return bson.A{bson.M{"$group": bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID, "created_at": bson.M{"$gte": since}}}},
		{{Key: "$facet", Value: bson.M{
			"by_status":  groupBy("status"),
			"by_channel": groupBy("channel"),
			"by_type":    groupBy("type"),
			"unread": bson.A{
				bson.M{"$match": bson.M{"is_read": false}},
				bson.M{"$count": "count"},
			},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var facets []struct {
		ByStatus  []countBucket `bson:"by_status"`
		ByChannel []countBucket `bson:"by_channel"`
		ByType    []countBucket `bson:"by_type"`
		Unread    []struct {
			Count int64 `bson:"count"`
		} `bson:"unread"`
	}
	if err := cursor.All(ctx, &facets); err != nil {
		return nil, err
	}

	stats := newStats(since)
	if len(facets) == 0 {
		return stats, nil
	}
	f := facets[0]
	for _, b := range f.ByStatus {
		stats.ByStatus[b.Key] = b.Count
		stats.Total += b.Count
	}
	for _, b := range f.ByChannel {
		stats.ByChannel[b.Key] = b.Count
	}
	for _, b := range f.ByType {
		stats.ByType[b.Key] = b.Count
	}
	if len(f.Unread) > 0 {
		stats.Unread = f.Unread[0].Count
	}
	return stats, nil
}

func newStats(since time.Time) *Stats {
	return &Stats{
		Since:     since,
		ByStatus:  map[string]int64{},
		ByChannel: map[string]int64{},
		ByType:    map[string]int64{},
	}
}

func (r *NotificationRepositoryImpl) ClaimDue(ctx context.Context, now time.Time, lease time.Duration) (*Notification, error) {
	filter := bson.M{
		"status":       StatusPending,
		"scheduled_at": bson.M{"$lte": now},
		"$or": bson.A{
			bson.M{"locked_until": bson.M{"$exists": false}},
			bson.M{"locked_until": bson.M{"$lt": now}},
		},
	}
	update := bson.M{"$set": bson.M{"locked_until": now.Add(lease)}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "scheduled_at", Value: 1}}).
		SetReturnDocument(options.After)

	var n Notification
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&n)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// pendingOnly guards delivery updates so terminal rows are never rewritten.
func pendingOnly(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "status": StatusPending}
}

func (r *NotificationRepositoryImpl) MarkDelivered(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx, pendingOnly(id), bson.M{
		"$set":   bson.M{"status": StatusDelivered, "sent_at": at, "delivered_at": at},
		"$unset": bson.M{"locked_until": "", "error_message": ""},
	})
	return err
}

func (r *NotificationRepositoryImpl) Reschedule(ctx context.Context, id primitive.ObjectID, at time.Time, retryCount int, errMsg string) error {
	set := bson.M{"scheduled_at": at, "retry_count": retryCount}
	if errMsg != "" {
		set["error_message"] = errMsg
	}
	_, err := r.collection.UpdateOne(ctx, pendingOnly(id), bson.M{
		"$set":   set,
		"$unset": bson.M{"locked_until": ""},
	})
	return err
}

func (r *NotificationRepositoryImpl) MarkFailed(ctx context.Context, id primitive.ObjectID, retryCount int, errMsg string) error {
	_, err := r.collection.UpdateOne(ctx, pendingOnly(id), bson.M{
		"$set":   bson.M{"status": StatusFailed, "retry_count": retryCount, "error_message": errMsg},
		"$unset": bson.M{"locked_until": ""},
	})
	return err
}

func (r *NotificationRepositoryImpl) Cancel(ctx context.Context, id primitive.ObjectID, reason string) error {
	_, err := r.collection.UpdateOne(ctx, pendingOnly(id), bson.M{
		"$set":   bson.M{"status": StatusCancelled, "error_message": reason},
		"$unset": bson.M{"locked_until": ""},
	})
	return err
}
