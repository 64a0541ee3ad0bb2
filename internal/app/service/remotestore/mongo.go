package remotestore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/fatflowers/entitlements/pkg/types"
)

// MongoStore keeps one document per user, keyed by user id, with the flat record fields.
// Subscriptions use change streams, which need a replica set.
type MongoStore struct {
	log  *zap.SugaredLogger
	coll *mongo.Collection
}

func NewMongoStore(l *zap.SugaredLogger, coll *mongo.Collection) *MongoStore {
	return &MongoStore{log: l, coll: coll}
}

func (s *MongoStore) GetRecord(ctx context.Context, userID string) (*types.SubscriptionRecord, error) {
	var doc bson.M
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query remote record for %s: %w", userID, err)
	}
	rec, err := recordFromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("corrupt remote record for %s: %w", userID, err)
	}
	return &rec, nil
}

func (s *MongoStore) MergeWrite(ctx context.Context, userID string, fields map[string]any) error {
	if _, err := types.RecordFromFields(fields); err != nil {
		return fmt.Errorf("refusing remote write for %s: %w", userID, err)
	}
	set := bson.M{}
	for _, name := range types.RecordFieldNames {
		if v, ok := fields[name]; ok {
			set[name] = v
		}
	}
	update := bson.D{
		{Key: "$set", Value: set},
		{Key: "$inc", Value: bson.D{{Key: "version", Value: int64(1)}}},
	}
	_, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: userID}}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to merge remote record for %s: %w", userID, err)
	}
	return nil
}

func (s *MongoStore) Subscribe(ctx context.Context, userID string) (<-chan types.SubscriptionRecord, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: userID}}}},
	}
	cs, err := s.coll.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, fmt.Errorf("failed to watch remote record for %s: %w", userID, err)
	}

	out := make(chan types.SubscriptionRecord, 1)
	go func() {
		defer close(out)
		defer cs.Close(context.Background())
		for cs.Next(ctx) {
			var ev struct {
				FullDocument bson.M `bson:"fullDocument"`
			}
			if err := cs.Decode(&ev); err != nil {
				s.log.Warnw("undecodable change event", "user_id", userID, "err", err)
				continue
			}
			if ev.FullDocument == nil {
				// deletes carry no document
				continue
			}
			rec, err := recordFromDocument(ev.FullDocument)
			if err != nil {
				s.log.Warnw("corrupt remote record in change stream", "user_id", userID, "err", err)
				continue
			}
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
		if err := cs.Err(); err != nil && ctx.Err() == nil {
			s.log.Warnw("remote record change stream ended", "user_id", userID, "err", err)
		}
	}()
	return out, nil
}

func recordFromDocument(doc bson.M) (types.SubscriptionRecord, error) {
	fields := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "_id" || k == "version" {
			continue
		}
		fields[k] = v
	}
	return types.RecordFromFields(fields)
}
