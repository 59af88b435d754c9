package repository

import (
	"alcyxob/adherence-app/internal/domain"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound  = RepositoryError("not found")
	ErrDuplicate = RepositoryError("duplicate key") // a uniqueness constraint rejected the write
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// TemplateRepository persists week templates of a single plan kind.
// Templates are stored as whole trees; Replace swaps the entire day/session/item subtree.
type TemplateRepository interface {
	Create(ctx context.Context, tmpl *domain.WeekTemplate) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WeekTemplate, error)
	// ListByOwner returns templates newest first.
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID, activeOnly bool) ([]domain.WeekTemplate, error)
	Replace(ctx context.Context, tmpl *domain.WeekTemplate) error
	// AddDay appends a day, failing with ErrDuplicate when its day_of_week is already used.
	AddDay(ctx context.Context, templateID primitive.ObjectID, day domain.TemplateDay) error
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
}

// CalendarRepository persists calendar entries of a single plan kind.
// Create must fail with ErrDuplicate when (subject, date) already has an entry.
type CalendarRepository interface {
	Create(ctx context.Context, entry *domain.CalendarEntry) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CalendarEntry, error)
	GetBySubjectAndDate(ctx context.Context, subjectID primitive.ObjectID, date time.Time) (*domain.CalendarEntry, error)
	// ListBySubjectAndRange returns entries with from <= date <= to, ordered by date.
	ListBySubjectAndRange(ctx context.Context, subjectID primitive.ObjectID, from, to time.Time) ([]domain.CalendarEntry, error)
	// UpdateContent replaces sessions, flags and traceability links of an existing entry.
	UpdateContent(ctx context.Context, entry *domain.CalendarEntry) error
}

// TrackingRepository persists tracking records of a single plan kind.
type TrackingRepository interface {
	// Upsert writes the record under its key, updating in place when the key
	// exists. It reports whether a new record was inserted and fills in the ID.
	Upsert(ctx context.Context, record *domain.TrackingRecord) (bool, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrackingRecord, error)
	GetByKey(ctx context.Context, key domain.TrackingKey) (*domain.TrackingRecord, error)
	ListByEntry(ctx context.Context, entryID primitive.ObjectID) ([]domain.TrackingRecord, error)
	// ListBySubjectAndRange returns records with from <= trackedDate <= to.
	ListBySubjectAndRange(ctx context.Context, subjectID primitive.ObjectID, from, to time.Time) ([]domain.TrackingRecord, error)
}

// LibraryRepository persists reusable food/exercise definitions of a single plan kind.
type LibraryRepository interface {
	Create(ctx context.Context, item *domain.LibraryItem) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.LibraryItem, error)
	GetByOwnerID(ctx context.Context, ownerID primitive.ObjectID) ([]domain.LibraryItem, error)
	Update(ctx context.Context, item *domain.LibraryItem) error
}

// ProgressRepository persists body/performance measurements.
type ProgressRepository interface {
	Create(ctx context.Context, sample *domain.ProgressSample) (primitive.ObjectID, error)
	// ListBySubjectAndRange returns samples of one metric with from <= measuredAt < to, oldest first.
	ListBySubjectAndRange(ctx context.Context, subjectID primitive.ObjectID, metric string, from, to time.Time) ([]domain.ProgressSample, error)
}
