package mongo

import (
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const trackingCollectionName = "tracking_records"

// mongoTrackingRepository implements repository.TrackingRepository
type mongoTrackingRepository struct {
	collection *mongo.Collection
	kind       domain.PlanKind
}

// NewMongoTrackingRepository creates a tracking repository scoped to one plan kind.
func NewMongoTrackingRepository(db *mongo.Database, kind domain.PlanKind) repository.TrackingRepository {
	return &mongoTrackingRepository{
		collection: db.Collection(trackingCollectionName),
		kind:       kind,
	}
}

// keyFilter matches a record by its (entryId, sessionId, itemId) tuple. A nil
// pointer encodes as BSON null, which also matches records missing the field.
func keyFilter(key domain.TrackingKey) bson.M {
	return bson.M{
		"entryId":   key.EntryID,
		"sessionId": key.SessionID,
		"itemId":    key.ItemID,
	}
}

// Upsert writes the record in place under its key, inserting it on first use.
func (r *mongoTrackingRepository) Upsert(ctx context.Context, record *domain.TrackingRecord) (bool, error) {
	if record.EntryID == primitive.NilObjectID || record.SubjectID == primitive.NilObjectID {
		return false, errors.New("tracking record requires entryId and subjectId")
	}
	now := time.Now().UTC()
	record.Kind = r.kind
	record.UpdatedAt = now

	set := bson.M{
		"kind":        r.kind,
		"subjectId":   record.SubjectID,
		"trackedDate": domain.DateOnly(record.TrackedDate),
		"status":      record.Status,
		"actual":      record.Actual,
		"notes":       record.Notes,
		"media":       record.Media,
		"completedAt": record.CompletedAt,
		"updatedAt":   now,
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"_id": primitive.NewObjectID(), "createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored domain.TrackingRecord
	err := r.collection.FindOneAndUpdate(ctx, keyFilter(record.TrackingKey), update, opts).Decode(&stored)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		// A concurrent writer inserted the same key first; apply ours as an update.
		err = r.collection.FindOneAndUpdate(ctx, keyFilter(record.TrackingKey), bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&stored)
	}
	if err != nil {
		return false, err
	}
	inserted := stored.CreatedAt.Equal(stored.UpdatedAt)
	*record = stored
	return inserted, nil
}

// GetByID retrieves a record by its ID.
func (r *mongoTrackingRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrackingRecord, error) {
	return r.findOne(ctx, bson.M{"_id": id, "kind": r.kind})
}

// GetByKey retrieves the record stored under a key.
func (r *mongoTrackingRepository) GetByKey(ctx context.Context, key domain.TrackingKey) (*domain.TrackingRecord, error) {
	return r.findOne(ctx, keyFilter(key))
}

func (r *mongoTrackingRepository) findOne(ctx context.Context, filter bson.M) (*domain.TrackingRecord, error) {
	var record domain.TrackingRecord
	err := r.collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// ListByEntry retrieves all records for one calendar entry.
func (r *mongoTrackingRepository) ListByEntry(ctx context.Context, entryID primitive.ObjectID) ([]domain.TrackingRecord, error) {
	return r.find(ctx, bson.M{"entryId": entryID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

// ListBySubjectAndRange retrieves a subject's records tracked between two dates (inclusive).
func (r *mongoTrackingRepository) ListBySubjectAndRange(ctx context.Context, subjectID primitive.ObjectID, from, to time.Time) ([]domain.TrackingRecord, error) {
	filter := bson.M{
		"kind":        r.kind,
		"subjectId":   subjectID,
		"trackedDate": bson.M{"$gte": domain.DateOnly(from), "$lte": domain.DateOnly(to)},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "trackedDate", Value: 1}, {Key: "createdAt", Value: 1}}))
}

func (r *mongoTrackingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.TrackingRecord, error) {
	var records []domain.TrackingRecord
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// EnsureTrackingIndexes creates necessary indexes for the tracking collection.
func EnsureTrackingIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// One record per key; concurrent writes to distinct items never collide
			Keys:    bson.D{{Key: "entryId", Value: 1}, {Key: "sessionId", Value: 1}, {Key: "itemId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_tracking_key"),
		},
		{
			// Range queries for rollups and trends
			Keys: bson.D{{Key: "kind", Value: 1}, {Key: "subjectId", Value: 1}, {Key: "trackedDate", Value: 1}},
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
