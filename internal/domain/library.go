// internal/domain/library.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LibraryItem is a reusable definition (a food or an exercise) that template
// items may link back to.
type LibraryItem struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind        PlanKind           `bson:"kind" json:"kind"`
	OwnerID     primitive.ObjectID `bson:"ownerId" json:"ownerId"` // planner who curates it
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Category    string             `bson:"category,omitempty" json:"category,omitempty"` // e.g. "Chest", "Grains"
	Defaults    Measurements       `bson:"defaults" json:"defaults"`                     // prefilled planned values
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
