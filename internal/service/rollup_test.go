package service

import (
	"alcyxob/adherence-app/internal/domain"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDeriveSessionStatus(t *testing.T) {
	c, s, p := domain.StatusCompleted, domain.StatusSkipped, domain.StatusPending
	cases := []struct {
		name     string
		explicit *domain.CompletionStatus
		items    []domain.CompletionStatus
		want     domain.CompletionStatus
	}{
		{"two of three completed", nil, []domain.CompletionStatus{c, c, p}, domain.StatusPartial},
		{"all completed", nil, []domain.CompletionStatus{c, c, c}, domain.StatusCompleted},
		{"nothing tracked", nil, []domain.CompletionStatus{p, p, p}, domain.StatusPending},
		{"all skipped", nil, []domain.CompletionStatus{s, s, s}, domain.StatusSkipped},
		{"completed and skipped", nil, []domain.CompletionStatus{c, s}, domain.StatusPartial},
		{"some skipped", nil, []domain.CompletionStatus{s, p}, domain.StatusPending},
		{"empty session", nil, nil, domain.StatusPending},
		{"explicit wins over items", ptr(domain.StatusSkipped), []domain.CompletionStatus{c, c}, domain.StatusSkipped},
		{"explicit completed on empty session", ptr(domain.StatusCompleted), nil, domain.StatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveSessionStatus(tc.explicit, tc.items))
		})
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0, Percentage(0, 0))
	assert.Equal(t, 0, Percentage(3, 0))
	assert.Equal(t, 67, Percentage(2, 3))
	assert.Equal(t, 33, Percentage(1, 3))
	assert.Equal(t, 50, Percentage(1, 2))
	assert.Equal(t, 100, Percentage(4, 4))
	assert.Equal(t, 13, Percentage(1, 8), "12.5 rounds half away from zero")
}

func TestStreak(t *testing.T) {
	assert.Equal(t, 0, Streak(nil))
	assert.Equal(t, 0, Streak([]int{0, 3, 3}))
	assert.Equal(t, 2, Streak([]int{1, 2, 0, 5}))
	assert.Equal(t, 3, Streak([]int{1, 1, 1}))
}

func TestParseCountUnit(t *testing.T) {
	u, err := ParseCountUnit("sessions")
	require.NoError(t, err)
	assert.Equal(t, CountSessions, u)
	_, err = ParseCountUnit("minutes")
	assert.Error(t, err)
}

func summaryEntry() *domain.CalendarEntry {
	item := func(name string) domain.CalendarItem {
		return domain.CalendarItem{ID: primitive.NewObjectID(), Name: name}
	}
	return &domain.CalendarEntry{
		ID:   primitive.NewObjectID(),
		Date: mustDate("2024-01-01"),
		Sessions: []domain.CalendarSession{
			{ID: primitive.NewObjectID(), Name: "Push", Items: []domain.CalendarItem{item("Bench"), item("Dips"), item("Press")}},
			{ID: primitive.NewObjectID(), Name: "Core", Items: []domain.CalendarItem{item("Plank")}},
		},
	}
}

func record(entry *domain.CalendarEntry, sessionID, itemID *primitive.ObjectID, status domain.CompletionStatus) domain.TrackingRecord {
	return domain.TrackingRecord{
		TrackingKey: domain.TrackingKey{EntryID: entry.ID, SessionID: sessionID, ItemID: itemID},
		Status:      status,
	}
}

func TestSummarizeDay(t *testing.T) {
	entry := summaryEntry()
	push, core := entry.Sessions[0], entry.Sessions[1]

	t.Run("not materialized", func(t *testing.T) {
		sum := SummarizeDay(mustDate("2024-01-01"), nil, nil, CountItems)
		assert.False(t, sum.Materialized)
		assert.Equal(t, 0, sum.TotalCount)
		assert.Equal(t, 0, sum.Percentage)
		assert.NotNil(t, sum.Sessions)
	})

	t.Run("items derive session status", func(t *testing.T) {
		records := []domain.TrackingRecord{
			record(entry, &push.ID, &push.Items[0].ID, domain.StatusCompleted),
			record(entry, &push.ID, &push.Items[1].ID, domain.StatusCompleted),
			record(entry, &core.ID, &core.Items[0].ID, domain.StatusCompleted),
		}
		sum := SummarizeDay(entry.Date, entry, records, CountItems)
		assert.Equal(t, domain.StatusPartial, sum.Sessions[0].Status)
		assert.False(t, sum.Sessions[0].Explicit)
		assert.Equal(t, domain.StatusCompleted, sum.Sessions[1].Status)
		assert.Equal(t, 3, sum.CompletedCount)
		assert.Equal(t, 4, sum.TotalCount)
		assert.Equal(t, 75, sum.Percentage)
		assert.Equal(t, 1, sum.SessionsCompleted)

		bySession := SummarizeDay(entry.Date, entry, records, CountSessions)
		assert.Equal(t, 1, bySession.CompletedCount)
		assert.Equal(t, 2, bySession.TotalCount)
		assert.Equal(t, 50, bySession.Percentage)
	})

	t.Run("explicit session record wins", func(t *testing.T) {
		records := []domain.TrackingRecord{
			record(entry, &push.ID, nil, domain.StatusCompleted),
			record(entry, &push.ID, &push.Items[0].ID, domain.StatusSkipped),
			record(entry, &core.ID, nil, domain.StatusSkipped),
			record(entry, &core.ID, &core.Items[0].ID, domain.StatusCompleted),
		}
		sum := SummarizeDay(entry.Date, entry, records, CountItems)
		assert.Equal(t, domain.StatusCompleted, sum.Sessions[0].Status)
		assert.True(t, sum.Sessions[0].Explicit)
		assert.Equal(t, 3, sum.Sessions[0].ItemsCompleted)
		assert.Equal(t, domain.StatusSkipped, sum.Sessions[1].Status)
		assert.Equal(t, 0, sum.Sessions[1].ItemsCompleted)
		assert.Equal(t, 3, sum.CompletedCount)
	})

	t.Run("whole day record covers untracked sessions", func(t *testing.T) {
		records := []domain.TrackingRecord{
			record(entry, nil, nil, domain.StatusCompleted),
			record(entry, &core.ID, nil, domain.StatusPartial),
		}
		sum := SummarizeDay(entry.Date, entry, records, CountSessions)
		assert.Equal(t, domain.StatusCompleted, sum.Sessions[0].Status)
		assert.Equal(t, domain.StatusPartial, sum.Sessions[1].Status)
		assert.Equal(t, 1, sum.CompletedCount)
	})

	t.Run("stale and foreign records are ignored", func(t *testing.T) {
		other := summaryEntry()
		gone := primitive.NewObjectID()
		records := []domain.TrackingRecord{
			record(other, &other.Sessions[0].ID, nil, domain.StatusCompleted),
			record(entry, &gone, &gone, domain.StatusCompleted),
		}
		sum := SummarizeDay(entry.Date, entry, records, CountItems)
		assert.Equal(t, 0, sum.CompletedCount)
		assert.Equal(t, domain.StatusPending, sum.Sessions[0].Status)
	})
}

func TestRollupService_Week(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.KindMeal)
	f.createTemplate(t, weekA())

	monday, err := f.calendarSvc.MaterializeFromTemplate(ctx, f.subject, mustDate("2024-01-01"), nil)
	require.NoError(t, err)
	_, err = f.calendarSvc.MaterializeFromTemplate(ctx, f.subject, mustDate("2024-01-02"), nil)
	require.NoError(t, err)
	nextMonday, err := f.calendarSvc.MaterializeFromTemplate(ctx, f.subject, mustDate("2024-01-08"), nil)
	require.NoError(t, err)
	f.track(t, monday, 0, 0, domain.StatusCompleted)
	f.track(t, nextMonday, 0, 0, domain.StatusCompleted)

	week, err := f.rollupSvc.Week(ctx, f.subject, mustDate("2024-01-04"))
	require.NoError(t, err)
	assert.Equal(t, mustDate("2024-01-01"), week.WeekStart)
	assert.Equal(t, mustDate("2024-01-07"), week.WeekEnd)
	require.Len(t, week.Days, 7)
	assert.True(t, week.Days[0].Materialized)
	assert.True(t, week.Days[1].IsRestDay)
	assert.False(t, week.Days[2].Materialized)
	assert.Equal(t, 1, week.CompletedCount)
	assert.Equal(t, 1, week.TotalCount)
	assert.Equal(t, 100, week.Percentage)
}

func TestRollupService_WeekWithoutPlanIsZero(t *testing.T) {
	f := newFixture(t, domain.KindExercise)
	week, err := f.rollupSvc.Week(context.Background(), f.subject, mustDate("2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, 0, week.TotalCount)
	assert.Equal(t, 0, week.Percentage)
}

func TestRollupService_Streak(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.KindExercise)

	// Every day of the week has a single session.
	daily := &domain.WeekTemplate{Name: "Daily"}
	for dow := 0; dow < domain.DaysPerWeek; dow++ {
		daily.Days = append(daily.Days, domain.TemplateDay{DayOfWeek: dow, Sessions: []domain.Session{{Name: "Walk"}}})
	}
	f.createTemplate(t, daily)

	complete := func(date string) {
		entry, err := f.calendarSvc.MaterializeFromTemplate(ctx, f.subject, mustDate(date), nil)
		require.NoError(t, err)
		f.track(t, entry, 0, -1, domain.StatusCompleted)
	}
	complete("2024-01-01")
	complete("2024-01-03")
	complete("2024-01-04")
	complete("2024-01-05")

	streak, err := f.rollupSvc.Streak(ctx, f.subject, mustDate("2024-01-05"))
	require.NoError(t, err)
	assert.Equal(t, 3, streak.Days)
	assert.Equal(t, 30, streak.LookbackDays)
	assert.False(t, streak.Capped)

	streak, err = f.rollupSvc.Streak(ctx, f.subject, mustDate("2024-01-06"))
	require.NoError(t, err)
	assert.Equal(t, 0, streak.Days, "today without completions ends the streak")

	short := NewRollupService(f.calendar, f.tracking, RollupOptions{StreakLookbackDays: 2})
	streak, err = short.Streak(ctx, f.subject, mustDate("2024-01-05"))
	require.NoError(t, err)
	assert.Equal(t, 2, streak.Days)
	assert.True(t, streak.Capped)
}
