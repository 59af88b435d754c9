package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CalendarEntry is the date-owned copy of a plan day for one subject.
// There is exactly one entry per (kind, subject, date). Once created its
// identity is permanent; its content only changes by replacing Sessions wholesale.
type CalendarEntry struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Kind          PlanKind            `bson:"kind" json:"kind"`
	SubjectID     primitive.ObjectID  `bson:"subjectId" json:"subjectId"`
	Date          time.Time           `bson:"date" json:"date"`                                       // UTC midnight
	TemplateID    *primitive.ObjectID `bson:"templateId,omitempty" json:"templateId,omitempty"`       // traceability only
	TemplateDayID *primitive.ObjectID `bson:"templateDayId,omitempty" json:"templateDayId,omitempty"` // traceability only
	IsOverride    bool                `bson:"isOverride" json:"isOverride"`                           // one-way: never reset once true
	IsRestDay     bool                `bson:"isRestDay" json:"isRestDay"`
	Sessions      []CalendarSession   `bson:"sessions" json:"sessions"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// CalendarSession is an independent copy of a template Session.
type CalendarSession struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Order int                `bson:"order" json:"order"`
	Items []CalendarItem     `bson:"items" json:"items"`
}

// CalendarItem is the unit of tracking.
type CalendarItem struct {
	ID         primitive.ObjectID  `bson:"_id" json:"id"`
	Name       string              `bson:"name" json:"name"`
	LibraryRef *primitive.ObjectID `bson:"libraryRef,omitempty" json:"libraryRef,omitempty"`
	Order      int                 `bson:"order" json:"order"`
	Planned    Measurements        `bson:"planned" json:"planned"`
	Notes      string              `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Session looks up a session by id.
func (e *CalendarEntry) Session(id primitive.ObjectID) (*CalendarSession, bool) {
	for i := range e.Sessions {
		if e.Sessions[i].ID == id {
			return &e.Sessions[i], true
		}
	}
	return nil, false
}

// SessionOfItem returns the session that owns the given item.
func (e *CalendarEntry) SessionOfItem(itemID primitive.ObjectID) (*CalendarSession, bool) {
	for i := range e.Sessions {
		for _, it := range e.Sessions[i].Items {
			if it.ID == itemID {
				return &e.Sessions[i], true
			}
		}
	}
	return nil, false
}

// HasItem reports whether the session contains the item.
func (s *CalendarSession) HasItem(itemID primitive.ObjectID) bool {
	for _, it := range s.Items {
		if it.ID == itemID {
			return true
		}
	}
	return false
}

// Clone deep-copies the entry.
func (e CalendarEntry) Clone() CalendarEntry {
	out := e
	out.TemplateID = cloneObjectID(e.TemplateID)
	out.TemplateDayID = cloneObjectID(e.TemplateDayID)
	out.Sessions = CloneSessions(e.Sessions)
	return out
}

// CloneSessions deep-copies a calendar session list.
func CloneSessions(sessions []CalendarSession) []CalendarSession {
	if sessions == nil {
		return nil
	}
	out := make([]CalendarSession, len(sessions))
	for i, s := range sessions {
		cs := s
		if s.Items != nil {
			cs.Items = make([]CalendarItem, len(s.Items))
			for j, it := range s.Items {
				ci := it
				ci.LibraryRef = cloneObjectID(it.LibraryRef)
				ci.Planned = it.Planned.Clone()
				cs.Items[j] = ci
			}
		}
		out[i] = cs
	}
	return out
}
