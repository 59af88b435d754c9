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

const progressCollectionName = "progress_samples"

// mongoProgressRepository implements repository.ProgressRepository
type mongoProgressRepository struct {
	collection *mongo.Collection
}

// NewMongoProgressRepository creates a new progress sample repository.
func NewMongoProgressRepository(db *mongo.Database) repository.ProgressRepository {
	return &mongoProgressRepository{
		collection: db.Collection(progressCollectionName),
	}
}

// Create inserts a new measurement.
func (r *mongoProgressRepository) Create(ctx context.Context, sample *domain.ProgressSample) (primitive.ObjectID, error) {
	if sample.SubjectID == primitive.NilObjectID || sample.Metric == "" || sample.MeasuredAt.IsZero() {
		return primitive.NilObjectID, errors.New("progress sample requires subjectId, metric and measuredAt")
	}

	sample.ID = primitive.NewObjectID()
	sample.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, sample)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// ListBySubjectAndRange retrieves one metric's samples in [from, to), oldest first.
func (r *mongoProgressRepository) ListBySubjectAndRange(ctx context.Context, subjectID primitive.ObjectID, metric string, from, to time.Time) ([]domain.ProgressSample, error) {
	var samples []domain.ProgressSample
	filter := bson.M{
		"subjectId":  subjectID,
		"metric":     metric,
		"measuredAt": bson.M{"$gte": from, "$lt": to},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "measuredAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &samples); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// EnsureProgressIndexes creates necessary indexes for the progress collection.
func EnsureProgressIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subjectId", Value: 1}, {Key: "metric", Value: 1}, {Key: "measuredAt", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
