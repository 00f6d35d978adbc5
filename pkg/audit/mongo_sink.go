package audit

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/latticeforge/fpengine/pkg/fpengine"
)

// MongoArchiveSink mirrors every appended audit record into a MongoDB
// collection, grounded on pkg/memory/store/mongodb_store.go's MongoStore
// (src/memory/store/mongodb_store.go: NewMongoStore's URI/database/
// collection constructor shape and StoreMemory's bson.M document build).
// bbolt stays the engine's source of truth for the live audit log (the
// append-only record lives in the audit namespace regardless); this
// sink is an optional archival mirror for operators who want audit history
// queryable outside the engine's own process, exactly the role MongoStore
// plays as an alternate backend alongside the primary bolt store.
type MongoArchiveSink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

const mongoSinkConnectTimeout = 5 * time.Second

// NewMongoArchiveSink connects to uri and targets database.collection for
// archived records.
func NewMongoArchiveSink(ctx context.Context, uri, database, collection string) (*MongoArchiveSink, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	if collection == "" {
		return nil, errors.New("mongo collection name is required")
	}
	connectCtx, cancel := context.WithTimeout(ctx, mongoSinkConnectTimeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fpengine.Wrap(fpengine.KindStorageError, err, "connect mongo archive sink")
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, fpengine.Wrap(fpengine.KindStorageError, err, "ping mongo archive sink")
	}
	return &MongoArchiveSink{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// Archive mirrors rec into the sink collection. A failure here is always
// non-blocking from the caller's point of view — the sink exists purely as
// a secondary archival copy, never the system of record — so callers
// typically fire Archive in a goroutine and log its error rather than
// propagate it into the triggering operation's own error path.
func (s *MongoArchiveSink) Archive(ctx context.Context, rec Record) error {
	doc := bson.M{
		"operation":   string(rec.Operation),
		"target_ids":  rec.TargetIDs,
		"operator_id": rec.OperatorID,
		"timestamp":   rec.Timestamp,
		"rationale":   rec.Rationale,
	}
	if len(rec.Before) > 0 {
		doc["before"] = string(rec.Before)
	}
	if len(rec.After) > 0 {
		doc["after"] = string(rec.After)
	}
	_, err := s.collection.InsertOne(ctx, doc)
	if err != nil {
		return fpengine.Wrap(fpengine.KindStorageError, err, "archive audit record for operation %s", rec.Operation)
	}
	return nil
}

// Close disconnects the underlying mongo client.
func (s *MongoArchiveSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
