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

const libraryCollectionName = "library_items"

// mongoLibraryRepository implements repository.LibraryRepository
type mongoLibraryRepository struct {
	collection *mongo.Collection
	kind       domain.PlanKind
}

// NewMongoLibraryRepository creates a library repository scoped to one plan kind.
func NewMongoLibraryRepository(db *mongo.Database, kind domain.PlanKind) repository.LibraryRepository {
	return &mongoLibraryRepository{
		collection: db.Collection(libraryCollectionName),
		kind:       kind,
	}
}

// Create inserts a new library item into the database.
func (r *mongoLibraryRepository) Create(ctx context.Context, item *domain.LibraryItem) (primitive.ObjectID, error) {
	if item.Name == "" || item.OwnerID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("library item name and owner ID are required")
	}

	item.ID = primitive.NewObjectID()
	item.Kind = r.kind
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, item)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByID retrieves a library item by its ID.
func (r *mongoLibraryRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.LibraryItem, error) {
	var item domain.LibraryItem
	filter := bson.M{"_id": id, "kind": r.kind}

	err := r.collection.FindOne(ctx, filter).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetByOwnerID retrieves all library items curated by one planner, by name.
func (r *mongoLibraryRepository) GetByOwnerID(ctx context.Context, ownerID primitive.ObjectID) ([]domain.LibraryItem, error) {
	var items []domain.LibraryItem
	filter := bson.M{"kind": r.kind, "ownerId": ownerID}
	findOptions := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// Update modifies an existing library item. The owner is never changed here.
func (r *mongoLibraryRepository) Update(ctx context.Context, item *domain.LibraryItem) error {
	if item.ID == primitive.NilObjectID {
		return errors.New("library item ID is required for update")
	}
	if item.Name == "" {
		return errors.New("library item name cannot be empty")
	}

	item.UpdatedAt = time.Now().UTC()
	filter := bson.M{"_id": item.ID, "kind": r.kind}
	update := bson.M{
		"$set": bson.M{
			"name":        item.Name,
			"description": item.Description,
			"category":    item.Category,
			"defaults":    item.Defaults,
			"updatedAt":   item.UpdatedAt,
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

// EnsureLibraryIndexes creates necessary indexes for the library collection.
func EnsureLibraryIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "kind", Value: 1}, {Key: "ownerId", Value: 1}, {Key: "name", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "name", Value: "text"}, {Key: "description", Value: "text"}},
			Options: options.Index().SetName("library_text_search"),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
