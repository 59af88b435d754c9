// internal/repository/mongo/template_repo.go
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

const templateCollectionName = "week_templates"

// mongoTemplateRepository implements repository.TemplateRepository.
// Days, sessions and items are embedded, so a template is one document and
// a full-tree replacement is a single write.
type mongoTemplateRepository struct {
	collection *mongo.Collection
	kind       domain.PlanKind
}

// NewMongoTemplateRepository creates a template repository scoped to one plan kind.
func NewMongoTemplateRepository(db *mongo.Database, kind domain.PlanKind) repository.TemplateRepository {
	return &mongoTemplateRepository{
		collection: db.Collection(templateCollectionName),
		kind:       kind,
	}
}

// Create inserts a new template tree.
func (r *mongoTemplateRepository) Create(ctx context.Context, tmpl *domain.WeekTemplate) (primitive.ObjectID, error) {
	if tmpl.OwnerID == primitive.NilObjectID || tmpl.Name == "" {
		return primitive.NilObjectID, errors.New("template requires ownerId and name")
	}
	tmpl.ID = primitive.NewObjectID()
	tmpl.Kind = r.kind
	now := time.Now().UTC()
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, tmpl)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted template ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single template by its ID.
func (r *mongoTemplateRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WeekTemplate, error) {
	var tmpl domain.WeekTemplate
	filter := bson.M{"_id": id, "kind": r.kind}
	err := r.collection.FindOne(ctx, filter).Decode(&tmpl)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &tmpl, nil
}

// ListByOwner retrieves the owner's templates, newest first.
func (r *mongoTemplateRepository) ListByOwner(ctx context.Context, ownerID primitive.ObjectID, activeOnly bool) ([]domain.WeekTemplate, error) {
	var templates []domain.WeekTemplate
	filter := bson.M{"kind": r.kind, "ownerId": ownerID}
	if activeOnly {
		filter["isActive"] = true
	}
	// _id breaks ties between templates created within the same millisecond
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return templates, nil
}

// Replace overwrites name, description, active flag and the whole day subtree.
func (r *mongoTemplateRepository) Replace(ctx context.Context, tmpl *domain.WeekTemplate) error {
	if tmpl.ID == primitive.NilObjectID {
		return errors.New("template ID is required for replace")
	}
	tmpl.UpdatedAt = time.Now().UTC()
	filter := bson.M{"_id": tmpl.ID, "kind": r.kind}
	// OwnerID and CreatedAt are not replaceable.
	update := bson.M{
		"$set": bson.M{
			"name":        tmpl.Name,
			"description": tmpl.Description,
			"isActive":    tmpl.IsActive,
			"days":        tmpl.Days,
			"updatedAt":   tmpl.UpdatedAt,
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

// AddDay pushes a day only if no existing day shares its day_of_week. The
// condition lives in the filter so two concurrent AddDay calls cannot both win.
func (r *mongoTemplateRepository) AddDay(ctx context.Context, templateID primitive.ObjectID, day domain.TemplateDay) error {
	filter := bson.M{
		"_id":            templateID,
		"kind":           r.kind,
		"days.dayOfWeek": bson.M{"$ne": day.DayOfWeek},
	}
	update := bson.M{
		"$push": bson.M{"days": day},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 1 {
		return nil
	}
	// Either the template is missing or the weekday is taken.
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": templateID, "kind": r.kind})
	if err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrDuplicate
}

// SetActive flips the soft-delete flag.
func (r *mongoTemplateRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	filter := bson.M{"_id": id, "kind": r.kind}
	update := bson.M{"$set": bson.M{"isActive": active, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureTemplateIndexes creates necessary indexes. Call during startup.
func EnsureTemplateIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Main query pattern: a subject's active templates, newest first
			Keys: bson.D{{Key: "kind", Value: 1}, {Key: "ownerId", Value: 1}, {Key: "isActive", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
