// internal/repository/mongo/calendar_repo.go
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

const calendarCollectionName = "calendar_entries"

// mongoCalendarRepository implements repository.CalendarRepository
type mongoCalendarRepository struct {
	collection *mongo.Collection
	kind       domain.PlanKind
}

// NewMongoCalendarRepository creates a calendar repository scoped to one plan kind.
func NewMongoCalendarRepository(db *mongo.Database, kind domain.PlanKind) repository.CalendarRepository {
	return &mongoCalendarRepository{
		collection: db.Collection(calendarCollectionName),
		kind:       kind,
	}
}

// Create inserts a new entry. The unique (kind, subjectId, date) index turns a
// concurrent second insert into repository.ErrDuplicate.
func (r *mongoCalendarRepository) Create(ctx context.Context, entry *domain.CalendarEntry) (primitive.ObjectID, error) {
	if entry.SubjectID == primitive.NilObjectID || entry.Date.IsZero() {
		return primitive.NilObjectID, errors.New("calendar entry requires subjectId and date")
	}
	entry.ID = primitive.NewObjectID()
	entry.Kind = r.kind
	entry.Date = domain.DateOnly(entry.Date)
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted calendar entry ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single entry by its ID.
func (r *mongoCalendarRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CalendarEntry, error) {
	return r.findOne(ctx, bson.M{"_id": id, "kind": r.kind})
}

// GetBySubjectAndDate retrieves the subject's entry for a calendar day.
func (r *mongoCalendarRepository) GetBySubjectAndDate(ctx context.Context, subjectID primitive.ObjectID, date time.Time) (*domain.CalendarEntry, error) {
	return r.findOne(ctx, bson.M{"kind": r.kind, "subjectId": subjectID, "date": domain.DateOnly(date)})
}

func (r *mongoCalendarRepository) findOne(ctx context.Context, filter bson.M) (*domain.CalendarEntry, error) {
	var entry domain.CalendarEntry
	err := r.collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// ListBySubjectAndRange retrieves entries between two dates (inclusive), oldest first.
func (r *mongoCalendarRepository) ListBySubjectAndRange(ctx context.Context, subjectID primitive.ObjectID, from, to time.Time) ([]domain.CalendarEntry, error) {
	var entries []domain.CalendarEntry
	filter := bson.M{
		"kind":      r.kind,
		"subjectId": subjectID,
		"date":      bson.M{"$gte": domain.DateOnly(from), "$lte": domain.DateOnly(to)},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// UpdateContent replaces the session list, flags and traceability links.
// Last writer wins; there is no version check.
func (r *mongoCalendarRepository) UpdateContent(ctx context.Context, entry *domain.CalendarEntry) error {
	if entry.ID == primitive.NilObjectID {
		return errors.New("calendar entry ID is required for update")
	}
	entry.UpdatedAt = time.Now().UTC()
	// SubjectID and Date form the entry's identity and are never updated.
	filter := bson.M{"_id": entry.ID, "kind": r.kind}
	update := bson.M{
		"$set": bson.M{
			"sessions":      entry.Sessions,
			"isOverride":    entry.IsOverride,
			"isRestDay":     entry.IsRestDay,
			"templateId":    entry.TemplateID,
			"templateDayId": entry.TemplateDayID,
			"updatedAt":     entry.UpdatedAt,
		},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureCalendarIndexes creates necessary indexes. Call during startup.
func EnsureCalendarIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Exactly one entry per subject and day, per plan kind
			Keys:    bson.D{{Key: "kind", Value: 1}, {Key: "subjectId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_kind_subject_date"),
		},
		{
			Keys:    bson.D{{Key: "templateId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
