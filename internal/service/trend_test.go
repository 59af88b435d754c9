package service

import (
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/repository/memory"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var weightRange = MetricRange{Min: 60, Max: 90, Precision: 1}

func TestSeedHash(t *testing.T) {
	assert.Equal(t, int32(1334876781), SeedHash("12 Jan-weight"))
	assert.Equal(t, int32(-2056511482), SeedHash("19 Jan-weight"), "wraps as a signed 32-bit integer")
	assert.Equal(t, int32(0), SeedHash(""))
}

func TestSeededFallback(t *testing.T) {
	v, ok := SeededFallback{}.Value("12 Jan-weight", weightRange)
	require.True(t, ok)
	assert.Equal(t, 83.4, v)

	again, _ := SeededFallback{}.Value("12 Jan-weight", weightRange)
	assert.Equal(t, v, again)

	other, _ := SeededFallback{}.Value("19 Jan-weight", weightRange)
	assert.Equal(t, 74.5, other)

	calories, _ := SeededFallback{}.Value("12 Jan-calories", MetricRange{Min: 1600, Max: 2600})
	assert.GreaterOrEqual(t, calories, 1600.0)
	assert.LessOrEqual(t, calories, 2600.0)
	assert.Equal(t, float64(int(calories)), calories, "precision 0 gives whole numbers")

	_, ok = NoFallback{}.Value("12 Jan-weight", weightRange)
	assert.False(t, ok)
}

func newTrendFixture(fallback FallbackStrategy) (*memory.ProgressRepository, *memory.TrackingRepository, TrendService) {
	progress := memory.NewProgressRepository()
	meals := memory.NewTrackingRepository(domain.KindMeal)
	sources := map[string]MetricSource{}
	for metric, extract := range MealLedgerMetrics() {
		sources[metric] = NewLedgerSource(meals, extract)
	}
	svc := NewTrendService(NewProgressSource(progress), sources, TrendOptions{
		Ranges: map[string]MetricRange{
			"weight":   weightRange,
			"calories": {Min: 1600, Max: 2600},
		},
		DefaultWeeks: 4,
		Fallback:     fallback,
	})
	return progress, meals, svc
}

func TestTrends_WeeklyAveragesAndFallback(t *testing.T) {
	ctx := context.Background()
	progress, _, svc := newTrendFixture(SeededFallback{})
	subject := primitive.NewObjectID()
	at := func(date string, hour int) time.Time { return mustDate(date).Add(time.Duration(hour) * time.Hour) }

	// Weeks end on Jan 5, 12, 19 and 26.
	for _, s := range []struct {
		at    time.Time
		value float64
	}{
		{at("2024-01-10", 7), 80.4},
		{at("2024-01-12", 23), 79.8},
		{at("2024-01-20", 7), 79.0},
		{at("2024-01-26", 6), 78.45},
		{at("2024-01-27", 6), 10}, // after the window
	} {
		_, err := progress.Create(ctx, &domain.ProgressSample{SubjectID: subject, Metric: "weight", Value: s.value, MeasuredAt: s.at})
		require.NoError(t, err)
	}

	series, err := svc.Trends(ctx, subject, []string{"Weight"}, mustDate("2024-01-26"), 0)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "weight", series[0].Metric)
	points := series[0].Points
	require.Len(t, points, 4)

	assert.Equal(t, "5 Jan", points[0].Label)
	assert.True(t, points[0].Synthetic)
	assert.Equal(t, 0, points[0].SampleCount)
	require.NotNil(t, points[0].Value)

	assert.Equal(t, "12 Jan", points[1].Label)
	assert.False(t, points[1].Synthetic)
	assert.Equal(t, 2, points[1].SampleCount)
	assert.Equal(t, 80.1, *points[1].Value)

	assert.Equal(t, "19 Jan", points[2].Label)
	assert.True(t, points[2].Synthetic, "Jan 20 belongs to the following week")
	assert.Equal(t, 74.5, *points[2].Value)

	assert.Equal(t, mustDate("2024-01-26"), points[3].WeekEnding)
	assert.Equal(t, 2, points[3].SampleCount)
	assert.Equal(t, 78.7, *points[3].Value)
}

func TestTrends_FallbackIsStableAcrossCalls(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newTrendFixture(SeededFallback{})
	subject := primitive.NewObjectID()

	first, err := svc.Trends(ctx, subject, []string{"weight"}, mustDate("2024-01-12"), 1)
	require.NoError(t, err)
	second, err := svc.Trends(ctx, primitive.NewObjectID(), []string{"weight"}, mustDate("2024-01-12"), 1)
	require.NoError(t, err)

	assert.Equal(t, 83.4, *first[0].Points[0].Value)
	assert.Equal(t, *first[0].Points[0].Value, *second[0].Points[0].Value)
}

func TestTrends_NoFallbackLeavesGaps(t *testing.T) {
	_, _, svc := newTrendFixture(NoFallback{})
	series, err := svc.Trends(context.Background(), primitive.NewObjectID(), []string{"weight"}, mustDate("2024-01-12"), 2)
	require.NoError(t, err)
	for _, pt := range series[0].Points {
		assert.Nil(t, pt.Value)
		assert.False(t, pt.Synthetic)
	}
}

func TestTrends_LedgerSumsPerDay(t *testing.T) {
	ctx := context.Background()
	_, meals, svc := newTrendFixture(NoFallback{})
	subject := primitive.NewObjectID()
	entry := primitive.NewObjectID()

	track := func(date string, calories float64, status domain.CompletionStatus) {
		item := primitive.NewObjectID()
		_, err := meals.Upsert(ctx, &domain.TrackingRecord{
			SubjectID:   subject,
			TrackingKey: domain.TrackingKey{EntryID: entry, ItemID: &item},
			TrackedDate: mustDate(date),
			Status:      status,
			Actual:      domain.Measurements{Meal: &domain.MealMeasures{Calories: ptr(calories)}},
		})
		require.NoError(t, err)
	}
	track("2024-01-08", 600, domain.StatusCompleted)
	track("2024-01-08", 1400, domain.StatusCompleted)
	track("2024-01-08", 900, domain.StatusSkipped)
	track("2024-01-10", 2500, domain.StatusPartial)

	series, err := svc.Trends(ctx, subject, []string{"calories"}, mustDate("2024-01-12"), 1)
	require.NoError(t, err)
	pt := series[0].Points[0]
	assert.Equal(t, 2, pt.SampleCount, "one observation per tracked day")
	assert.Equal(t, 2250.0, *pt.Value)
}

func TestTrends_Validation(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newTrendFixture(NoFallback{})
	subject := primitive.NewObjectID()

	_, err := svc.Trends(ctx, subject, []string{"weight"}, mustDate("2024-01-12"), 53)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Trends(ctx, subject, []string{"weight"}, mustDate("2024-01-12"), -1)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Trends(ctx, subject, nil, mustDate("2024-01-12"), 4)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Trends(ctx, subject, []string{" "}, mustDate("2024-01-12"), 4)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExerciseLedgerMetrics(t *testing.T) {
	metrics := ExerciseLedgerMetrics()
	m := domain.Measurements{Exercise: &domain.ExerciseMeasures{
		Slots:           []domain.RepSlot{{Reps: ptr(5), Weight: ptr(100.0)}, {Reps: ptr(8), Weight: ptr(80.0)}, {Reps: ptr(10)}},
		DurationSeconds: ptr(1800),
	}}

	volume, ok := metrics["volume"](m)
	require.True(t, ok)
	assert.Equal(t, 1140.0, volume)

	duration, ok := metrics["duration"](m)
	require.True(t, ok)
	assert.Equal(t, 1800.0, duration)

	_, ok = metrics["volume"](domain.Measurements{})
	assert.False(t, ok)
}

func TestProgressService(t *testing.T) {
	ctx := context.Background()
	svc := NewProgressService(memory.NewProgressRepository())
	subject := primitive.NewObjectID()

	sample, err := svc.Record(ctx, subject, " Weight ", 81.5, time.Date(2024, 1, 10, 7, 0, 0, 0, time.UTC), "after run")
	require.NoError(t, err)
	assert.Equal(t, "weight", sample.Metric)

	recent, err := svc.Record(ctx, subject, "weight", 81.1, time.Time{}, "")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), recent.MeasuredAt, time.Minute)

	list, err := svc.List(ctx, subject, "WEIGHT", mustDate("2024-01-01"), mustDate("2024-02-01"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 81.5, list[0].Value)

	_, err = svc.Record(ctx, subject, "", 1, time.Time{}, "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.List(ctx, subject, "weight", mustDate("2024-02-01"), mustDate("2024-02-01"))
	assert.ErrorIs(t, err, ErrValidation)
}
