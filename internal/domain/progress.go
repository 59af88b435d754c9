package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressSample is a single body or performance measurement (e.g. weight)
// logged outside the plan itself.
type ProgressSample struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SubjectID  primitive.ObjectID `bson:"subjectId" json:"subjectId"`
	Metric     string             `bson:"metric" json:"metric"`
	Value      float64            `bson:"value" json:"value"`
	MeasuredAt time.Time          `bson:"measuredAt" json:"measuredAt"`
	Note       string             `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}
