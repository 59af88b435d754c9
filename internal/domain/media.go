package domain

import (
	"time"
)

// MediaRef points at a file (photo of a meal, video of a set) attached to a
// tracking record. The file itself lives in object storage.
type MediaRef struct {
	ObjectKey   string    `bson:"objectKey" json:"objectKey"`
	FileName    string    `bson:"fileName,omitempty" json:"fileName,omitempty"`
	ContentType string    `bson:"contentType" json:"contentType"`
	Size        int64     `bson:"size,omitempty" json:"size,omitempty"`
	AttachedAt  time.Time `bson:"attachedAt" json:"attachedAt"`
}
