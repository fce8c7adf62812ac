package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"browserkit-go/domain/history"
)

// RunCollection is the collection run history is stored in.
const RunCollection = "run_history"

// runDocument is the MongoDB document structure for history records.
type runDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	SessionID  string             `bson:"session_id"`
	RunID      string             `bson:"run_id,omitempty"`
	Event      string             `bson:"event"`
	Op         string             `bson:"op,omitempty"`
	Target     string             `bson:"target,omitempty"`
	Message    string             `bson:"message,omitempty"`
	Error      string             `bson:"error,omitempty"`
	DurationMS int64              `bson:"duration_ms,omitempty"`
	Time       time.Time          `bson:"time"`
}

// MongoRunRepository implements history.Repository using MongoDB.
type MongoRunRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoRunRepository creates a new MongoDB-based run history repository.
func NewMongoRunRepository(db *MongoDB, logger *slog.Logger) *MongoRunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoRunRepository{
		collection: db.Collection(RunCollection),
		logger:     logger,
	}
}

// runIndexes supports FindByRun and FindBySession.
func runIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "run_id", Value: 1}, {Key: "time", Value: 1}},
			Options: options.Index().SetName("run_time"),
		},
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "time", Value: 1}},
			Options: options.Index().SetName("session_time"),
		},
	}
}

// EnsureIndexes creates the history indexes if they do not exist.
func (r *MongoRunRepository) EnsureIndexes(ctx context.Context) error {
	names, err := r.collection.Indexes().CreateMany(ctx, runIndexes())
	if err != nil {
		return fmt.Errorf("failed to create history indexes: %w", err)
	}
	r.logger.Debug("History indexes ready", "indexes", names)
	return nil
}

// Insert stores a record.
func (r *MongoRunRepository) Insert(ctx context.Context, rec *history.Record) error {
	doc := recordToDocument(rec)
	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		rec.ID = oid.Hex()
	}

	r.logger.Debug("History record inserted", "id", rec.ID, "event", rec.Event)
	return nil
}

// FindBySession returns the records of a session in time order.
func (r *MongoRunRepository) FindBySession(ctx context.Context, sessionID string) ([]*history.Record, error) {
	return r.find(ctx, bson.M{"session_id": sessionID})
}

// FindByRun returns the records carrying runID in time order.
func (r *MongoRunRepository) FindByRun(ctx context.Context, runID string) ([]*history.Record, error) {
	return r.find(ctx, bson.M{"run_id": runID})
}

func (r *MongoRunRepository) find(ctx context.Context, filter bson.M) ([]*history.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "time", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find history records: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []runDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode history records: %w", err)
	}

	records := make([]*history.Record, len(docs))
	for i := range docs {
		records[i] = documentToRecord(&docs[i])
	}
	return records, nil
}

// documentToRecord converts a MongoDB document to a history Record.
func documentToRecord(doc *runDocument) *history.Record {
	rec := &history.Record{
		SessionID: doc.SessionID,
		RunID:     doc.RunID,
		Event:     doc.Event,
		Op:        doc.Op,
		Target:    doc.Target,
		Message:   doc.Message,
		Error:     doc.Error,
		Duration:  time.Duration(doc.DurationMS) * time.Millisecond,
		Time:      doc.Time,
	}
	if !doc.ID.IsZero() {
		rec.ID = doc.ID.Hex()
	}
	return rec
}

// recordToDocument converts a history Record to a MongoDB document.
func recordToDocument(rec *history.Record) *runDocument {
	doc := &runDocument{
		SessionID:  rec.SessionID,
		RunID:      rec.RunID,
		Event:      rec.Event,
		Op:         rec.Op,
		Target:     rec.Target,
		Message:    rec.Message,
		Error:      rec.Error,
		DurationMS: rec.Duration.Milliseconds(),
		Time:       rec.Time,
	}
	if rec.ID != "" {
		if oid, err := primitive.ObjectIDFromHex(rec.ID); err == nil {
			doc.ID = oid
		}
	}
	return doc
}

// Ensure MongoRunRepository implements history.Repository
var _ history.Repository = (*MongoRunRepository)(nil)
