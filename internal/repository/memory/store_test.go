package memory

import (
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/repository"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func date(s string) time.Time {
	t, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestTemplateRepository_ListNewestFirstAndActiveOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(domain.KindExercise)
	owner := primitive.NewObjectID()

	first := &domain.WeekTemplate{OwnerID: owner, Name: "A", IsActive: true}
	second := &domain.WeekTemplate{OwnerID: owner, Name: "B", IsActive: true}
	_, err := repo.Create(ctx, first)
	require.NoError(t, err)
	_, err = repo.Create(ctx, second)
	require.NoError(t, err)
	require.NoError(t, repo.SetActive(ctx, second.ID, false))

	all, err := repo.ListByOwner(ctx, owner, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "B", all[0].Name)
	assert.Equal(t, domain.KindExercise, all[0].Kind)

	active, err := repo.ListByOwner(ctx, owner, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "A", active[0].Name)
}

func TestTemplateRepository_AddDayRejectsTakenWeekday(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(domain.KindMeal)
	tmpl := &domain.WeekTemplate{OwnerID: primitive.NewObjectID(), Name: "Cut"}
	_, err := repo.Create(ctx, tmpl)
	require.NoError(t, err)

	require.NoError(t, repo.AddDay(ctx, tmpl.ID, domain.TemplateDay{ID: primitive.NewObjectID(), DayOfWeek: 2}))
	err = repo.AddDay(ctx, tmpl.ID, domain.TemplateDay{ID: primitive.NewObjectID(), DayOfWeek: 2})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	err = repo.AddDay(ctx, primitive.NewObjectID(), domain.TemplateDay{DayOfWeek: 1})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTemplateRepository_ReturnsIsolatedCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(domain.KindMeal)
	tmpl := &domain.WeekTemplate{
		OwnerID: primitive.NewObjectID(),
		Name:    "Bulk",
		Days:    []domain.TemplateDay{{DayOfWeek: 0, Sessions: []domain.Session{{Name: "Breakfast"}}}},
	}
	_, err := repo.Create(ctx, tmpl)
	require.NoError(t, err)

	tmpl.Days[0].Sessions[0].Name = "mutated"
	got, err := repo.GetByID(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Breakfast", got.Days[0].Sessions[0].Name)

	got.Days[0].Sessions[0].Name = "mutated again"
	again, err := repo.GetByID(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Breakfast", again.Days[0].Sessions[0].Name)
}

func TestCalendarRepository_UniquePerSubjectAndDate(t *testing.T) {
	ctx := context.Background()
	repo := NewCalendarRepository(domain.KindExercise)
	subject := primitive.NewObjectID()

	_, err := repo.Create(ctx, &domain.CalendarEntry{SubjectID: subject, Date: date("2025-01-06")})
	require.NoError(t, err)

	// Same day, different time of day still collides.
	_, err = repo.Create(ctx, &domain.CalendarEntry{SubjectID: subject, Date: date("2025-01-06").Add(13 * time.Hour)})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	_, err = repo.Create(ctx, &domain.CalendarEntry{SubjectID: primitive.NewObjectID(), Date: date("2025-01-06")})
	assert.NoError(t, err)
}

func TestCalendarRepository_RangeIsInclusiveAndOrdered(t *testing.T) {
	ctx := context.Background()
	repo := NewCalendarRepository(domain.KindMeal)
	subject := primitive.NewObjectID()
	for _, d := range []string{"2025-01-08", "2025-01-05", "2025-01-06", "2025-01-10"} {
		_, err := repo.Create(ctx, &domain.CalendarEntry{SubjectID: subject, Date: date(d)})
		require.NoError(t, err)
	}

	entries, err := repo.ListBySubjectAndRange(ctx, subject, date("2025-01-06"), date("2025-01-08"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, date("2025-01-06"), entries[0].Date)
	assert.Equal(t, date("2025-01-08"), entries[1].Date)
}

func TestCalendarRepository_UpdateContentKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	repo := NewCalendarRepository(domain.KindMeal)
	entry := &domain.CalendarEntry{SubjectID: primitive.NewObjectID(), Date: date("2025-01-06")}
	id, err := repo.Create(ctx, entry)
	require.NoError(t, err)

	update := entry.Clone()
	update.SubjectID = primitive.NewObjectID()
	update.IsOverride = true
	update.Sessions = []domain.CalendarSession{{ID: primitive.NewObjectID(), Name: "Lunch"}}
	require.NoError(t, repo.UpdateContent(ctx, &update))

	got, err := repo.GetBySubjectAndDate(ctx, entry.SubjectID, entry.Date)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.True(t, got.IsOverride)
	require.Len(t, got.Sessions, 1)
	assert.Equal(t, "Lunch", got.Sessions[0].Name)
}

func TestTrackingRepository_UpsertUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	repo := NewTrackingRepository(domain.KindExercise)
	entryID := primitive.NewObjectID()
	sessionID := primitive.NewObjectID()
	itemID := primitive.NewObjectID()

	rec := &domain.TrackingRecord{
		SubjectID:   primitive.NewObjectID(),
		TrackingKey: domain.TrackingKey{EntryID: entryID, SessionID: &sessionID, ItemID: &itemID},
		TrackedDate: date("2025-01-06"),
		Status:      domain.StatusPending,
	}
	inserted, err := repo.Upsert(ctx, rec)
	require.NoError(t, err)
	assert.True(t, inserted)
	firstID := rec.ID

	again := &domain.TrackingRecord{
		SubjectID:   rec.SubjectID,
		TrackingKey: domain.TrackingKey{EntryID: entryID, SessionID: &sessionID, ItemID: &itemID},
		TrackedDate: date("2025-01-06"),
		Status:      domain.StatusCompleted,
	}
	inserted, err = repo.Upsert(ctx, again)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, firstID, again.ID)

	records, err := repo.ListByEntry(ctx, entryID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.StatusCompleted, records[0].Status)
}

func TestTrackingRepository_DistinctKeysAreDistinctRecords(t *testing.T) {
	ctx := context.Background()
	repo := NewTrackingRepository(domain.KindMeal)
	entryID := primitive.NewObjectID()
	sessionID := primitive.NewObjectID()
	itemID := primitive.NewObjectID()
	subject := primitive.NewObjectID()

	keys := []domain.TrackingKey{
		{EntryID: entryID},
		{EntryID: entryID, SessionID: &sessionID},
		{EntryID: entryID, SessionID: &sessionID, ItemID: &itemID},
	}
	for _, k := range keys {
		_, err := repo.Upsert(ctx, &domain.TrackingRecord{SubjectID: subject, TrackingKey: k, TrackedDate: date("2025-01-06"), Status: domain.StatusSkipped})
		require.NoError(t, err)
	}

	records, err := repo.ListBySubjectAndRange(ctx, subject, date("2025-01-06"), date("2025-01-06"))
	require.NoError(t, err)
	assert.Len(t, records, 3)

	got, err := repo.GetByKey(ctx, domain.TrackingKey{EntryID: entryID, SessionID: &sessionID})
	require.NoError(t, err)
	assert.Nil(t, got.ItemID)

	_, err = repo.GetByKey(ctx, domain.TrackingKey{EntryID: primitive.NewObjectID()})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProgressRepository_HalfOpenRange(t *testing.T) {
	ctx := context.Background()
	repo := NewProgressRepository()
	subject := primitive.NewObjectID()
	for _, d := range []string{"2025-01-07", "2025-01-01", "2025-01-14"} {
		_, err := repo.Create(ctx, &domain.ProgressSample{SubjectID: subject, Metric: "weight", Value: 80, MeasuredAt: date(d)})
		require.NoError(t, err)
	}

	samples, err := repo.ListBySubjectAndRange(ctx, subject, "weight", date("2025-01-01"), date("2025-01-14"))
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, date("2025-01-01"), samples[0].MeasuredAt)

	none, err := repo.ListBySubjectAndRange(ctx, subject, "waist", date("2025-01-01"), date("2025-02-01"))
	require.NoError(t, err)
	assert.Empty(t, none)
}
