package sqlite

import (
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/repository"
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "adherence.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func day(s string) time.Time {
	t, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func intPtr(v int) *int { return &v }

func TestTemplateRepository_RoundTripAndAddDay(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteTemplateRepository(openTestDB(t), domain.KindExercise)
	owner := primitive.NewObjectID()

	tmpl := &domain.WeekTemplate{
		OwnerID:  owner,
		Name:     "Strength",
		IsActive: true,
		Days: []domain.TemplateDay{{
			ID:        primitive.NewObjectID(),
			DayOfWeek: 0,
			Sessions: []domain.Session{{
				ID:   primitive.NewObjectID(),
				Name: "Upper",
				Items: []domain.Item{{
					ID:      primitive.NewObjectID(),
					Name:    "Bench press",
					Planned: domain.Measurements{Exercise: &domain.ExerciseMeasures{Slots: []domain.RepSlot{{Reps: intPtr(8)}}}},
				}},
			}},
		}},
	}
	id, err := repo.Create(ctx, tmpl)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.KindExercise, got.Kind)
	require.Len(t, got.Days, 1)
	require.Len(t, got.Days[0].Sessions[0].Items, 1)
	assert.Equal(t, 8, *got.Days[0].Sessions[0].Items[0].Planned.Exercise.Slots[0].Reps)

	require.NoError(t, repo.AddDay(ctx, id, domain.TemplateDay{ID: primitive.NewObjectID(), DayOfWeek: 3, IsRestDay: true}))
	assert.ErrorIs(t, repo.AddDay(ctx, id, domain.TemplateDay{ID: primitive.NewObjectID(), DayOfWeek: 0}), repository.ErrDuplicate)

	require.NoError(t, repo.SetActive(ctx, id, false))
	active, err := repo.ListByOwner(ctx, owner, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := repo.ListByOwner(ctx, owner, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Len(t, all[0].Days, 2)
}

func TestTemplateRepository_KindsAreIsolated(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	meals := NewSQLiteTemplateRepository(db, domain.KindMeal)
	exercises := NewSQLiteTemplateRepository(db, domain.KindExercise)

	id, err := meals.Create(ctx, &domain.WeekTemplate{OwnerID: primitive.NewObjectID(), Name: "Diet"})
	require.NoError(t, err)

	_, err = exercises.GetByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCalendarRepository_DuplicateDate(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteCalendarRepository(openTestDB(t), domain.KindMeal)
	subject := primitive.NewObjectID()

	first := &domain.CalendarEntry{SubjectID: subject, Date: day("2025-01-06")}
	_, err := repo.Create(ctx, first)
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.CalendarEntry{SubjectID: subject, Date: day("2025-01-06")})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := repo.GetBySubjectAndDate(ctx, subject, day("2025-01-06"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	got.IsOverride = true
	got.Sessions = []domain.CalendarSession{{ID: primitive.NewObjectID(), Name: "Dinner"}}
	require.NoError(t, repo.UpdateContent(ctx, got))

	entries, err := repo.ListBySubjectAndRange(ctx, subject, day("2025-01-01"), day("2025-01-06"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsOverride)
	assert.Equal(t, "Dinner", entries[0].Sessions[0].Name)
}

func TestTrackingRepository_UpsertByKey(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteTrackingRepository(openTestDB(t), domain.KindExercise)
	subject := primitive.NewObjectID()
	entryID := primitive.NewObjectID()
	sessionID := primitive.NewObjectID()
	itemID := primitive.NewObjectID()

	sessionKey := domain.TrackingKey{EntryID: entryID, SessionID: &sessionID}
	itemKey := domain.TrackingKey{EntryID: entryID, SessionID: &sessionID, ItemID: &itemID}

	inserted, err := repo.Upsert(ctx, &domain.TrackingRecord{SubjectID: subject, TrackingKey: sessionKey, TrackedDate: day("2025-01-06"), Status: domain.StatusSkipped})
	require.NoError(t, err)
	assert.True(t, inserted)

	rec := &domain.TrackingRecord{SubjectID: subject, TrackingKey: itemKey, TrackedDate: day("2025-01-06"), Status: domain.StatusPending}
	inserted, err = repo.Upsert(ctx, rec)
	require.NoError(t, err)
	assert.True(t, inserted)
	firstID := rec.ID

	again := &domain.TrackingRecord{SubjectID: subject, TrackingKey: itemKey, TrackedDate: day("2025-01-06"), Status: domain.StatusCompleted}
	inserted, err = repo.Upsert(ctx, again)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, firstID, again.ID)

	got, err := repo.GetByKey(ctx, itemKey)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	all, err := repo.ListBySubjectAndRange(ctx, subject, day("2025-01-06"), day("2025-01-06"))
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestProgressRepository_Range(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteProgressRepository(openTestDB(t))
	subject := primitive.NewObjectID()
	for i, d := range []string{"2025-01-01", "2025-01-03", "2025-01-08"} {
		_, err := repo.Create(ctx, &domain.ProgressSample{SubjectID: subject, Metric: "weight", Value: float64(80 + i), MeasuredAt: day(d)})
		require.NoError(t, err)
	}
	samples, err := repo.ListBySubjectAndRange(ctx, subject, "weight", day("2025-01-01"), day("2025-01-08"))
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 80.0, samples[0].Value)
	assert.Equal(t, 81.0, samples[1].Value)
}
