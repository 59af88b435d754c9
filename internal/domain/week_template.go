// internal/domain/week_template.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DaysPerWeek bounds TemplateDay.DayOfWeek to 0..DaysPerWeek-1 (0 = Monday).
const DaysPerWeek = 7

// WeekTemplate is a reusable weekly plan. It is never tied to a calendar date;
// calendar entries copy its values at materialization time.
type WeekTemplate struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind        PlanKind           `bson:"kind" json:"kind"`
	OwnerID     primitive.ObjectID `bson:"ownerId" json:"ownerId"` // the subject this plan belongs to
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	IsActive    bool               `bson:"isActive" json:"isActive"` // false = soft-deleted
	Days        []TemplateDay      `bson:"days" json:"days"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// TemplateDay is the plan for one weekday. DayOfWeek is unique within a template.
type TemplateDay struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	DayOfWeek int                `bson:"dayOfWeek" json:"dayOfWeek"` // 0 (Mon) - 6 (Sun)
	IsRestDay bool               `bson:"isRestDay" json:"isRestDay"`
	Sessions  []Session          `bson:"sessions" json:"sessions"`
}

// Session is a template-level grouping of items ("Breakfast", "Upper body").
type Session struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Order int                `bson:"order" json:"order"`
	Items []Item             `bson:"items" json:"items"`
}

// Item is a single meal item or exercise with its planned measurements.
type Item struct {
	ID         primitive.ObjectID  `bson:"_id" json:"id"`
	Name       string              `bson:"name" json:"name"`
	LibraryRef *primitive.ObjectID `bson:"libraryRef,omitempty" json:"libraryRef,omitempty"`
	Order      int                 `bson:"order" json:"order"`
	Planned    Measurements        `bson:"planned" json:"planned"`
	Notes      string              `bson:"notes,omitempty" json:"notes,omitempty"`
}

// DayFor returns the template day for a Monday-first weekday, if one is defined.
func (t *WeekTemplate) DayFor(dayOfWeek int) (*TemplateDay, bool) {
	for i := range t.Days {
		if t.Days[i].DayOfWeek == dayOfWeek {
			return &t.Days[i], true
		}
	}
	return nil, false
}

// Clone deep-copies the template tree.
func (t WeekTemplate) Clone() WeekTemplate {
	out := t
	if t.Days != nil {
		out.Days = make([]TemplateDay, len(t.Days))
		for i, d := range t.Days {
			out.Days[i] = d.Clone()
		}
	}
	return out
}

// Clone deep-copies the day.
func (d TemplateDay) Clone() TemplateDay {
	out := d
	if d.Sessions != nil {
		out.Sessions = make([]Session, len(d.Sessions))
		for i, s := range d.Sessions {
			cs := s
			if s.Items != nil {
				cs.Items = make([]Item, len(s.Items))
				for j, it := range s.Items {
					ci := it
					ci.LibraryRef = cloneObjectID(it.LibraryRef)
					ci.Planned = it.Planned.Clone()
					cs.Items[j] = ci
				}
			}
			out.Sessions[i] = cs
		}
	}
	return out
}

func cloneObjectID(id *primitive.ObjectID) *primitive.ObjectID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
