package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CompletionStatus is the tracked state of an entry, session or item.
type CompletionStatus string

const (
	StatusPending   CompletionStatus = "pending"
	StatusCompleted CompletionStatus = "completed"
	StatusPartial   CompletionStatus = "partial" // session granularity only
	StatusSkipped   CompletionStatus = "skipped" // a skip is a value, never a removal
)

// Valid reports whether s is a known status.
func (s CompletionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusPartial, StatusSkipped:
		return true
	}
	return false
}

// TrackingKey identifies a tracking record. SessionID and ItemID are optional;
// (EntryID, nil, nil) tracks the whole day.
type TrackingKey struct {
	EntryID   primitive.ObjectID  `bson:"entryId" json:"entryId"`
	SessionID *primitive.ObjectID `bson:"sessionId" json:"sessionId,omitempty"`
	ItemID    *primitive.ObjectID `bson:"itemId" json:"itemId,omitempty"`
}

// IsSessionLevel reports whether the key targets a session as a whole.
func (k TrackingKey) IsSessionLevel() bool {
	return k.SessionID != nil && k.ItemID == nil
}

// IsItemLevel reports whether the key targets a single item.
func (k TrackingKey) IsItemLevel() bool {
	return k.ItemID != nil
}

// TrackingRecord stores what actually happened for one key. Records are
// created on first interaction and updated in place afterwards; never deleted.
type TrackingRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind        PlanKind           `bson:"kind" json:"kind"`
	SubjectID   primitive.ObjectID `bson:"subjectId" json:"subjectId"` // denormalized for range queries
	TrackingKey `bson:",inline"`
	TrackedDate time.Time        `bson:"trackedDate" json:"trackedDate"`
	Status      CompletionStatus `bson:"status" json:"status"`
	Actual      Measurements     `bson:"actual" json:"actual"`
	Notes       string           `bson:"notes,omitempty" json:"notes,omitempty"`
	Media       []MediaRef       `bson:"media,omitempty" json:"media,omitempty"`
	CompletedAt *time.Time       `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt   time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time        `bson:"updatedAt" json:"updatedAt"`
}

// Clone deep-copies the record.
func (r TrackingRecord) Clone() TrackingRecord {
	out := r
	out.SessionID = cloneObjectID(r.SessionID)
	out.ItemID = cloneObjectID(r.ItemID)
	out.Actual = r.Actual.Clone()
	if r.Media != nil {
		out.Media = append([]MediaRef(nil), r.Media...)
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
