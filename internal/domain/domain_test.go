package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDayOfWeekIsMondayFirst(t *testing.T) {
	monday, err := ParseDate("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, 0, DayOfWeek(monday))
	assert.Equal(t, 6, DayOfWeek(monday.AddDate(0, 0, 6)))
	assert.Equal(t, 2, DayOfWeek(time.Date(2024, 1, 3, 23, 59, 0, 0, time.UTC)))
}

func TestWeekStart(t *testing.T) {
	sunday := time.Date(2024, 1, 7, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), WeekStart(sunday))
	monday := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, WeekStart(monday))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, d.Location())

	_, err = ParseDate("29/02/2024")
	assert.Error(t, err)
}

func TestParsePlanKind(t *testing.T) {
	for in, want := range map[string]PlanKind{"meal": KindMeal, "Meals": KindMeal, "exercises": KindExercise} {
		got, err := ParsePlanKind(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParsePlanKind("sleep")
	assert.Error(t, err)
}

func TestMeasurementsValidate(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	i := func(v int) *int { return &v }

	field, err := Measurements{Meal: &MealMeasures{Calories: f(math.NaN())}}.Validate()
	assert.Error(t, err)
	assert.Equal(t, "meal.calories", field)

	field, err = Measurements{Exercise: &ExerciseMeasures{Slots: make([]RepSlot, MaxRepSlots+1)}}.Validate()
	assert.Error(t, err)
	assert.Equal(t, "exercise.slots", field)

	field, err = Measurements{Exercise: &ExerciseMeasures{Slots: []RepSlot{{Reps: i(5)}, {Reps: i(-1)}}}}.Validate()
	assert.Error(t, err)
	assert.Equal(t, "exercise.slots[1].reps", field)

	_, err = Measurements{Exercise: &ExerciseMeasures{Slots: []RepSlot{{Reps: i(5), Weight: f(60)}}, DurationSeconds: i(0)}}.Validate()
	assert.NoError(t, err)
}

func TestMeasurementsCloneIsDeep(t *testing.T) {
	w := 100.0
	orig := Measurements{Exercise: &ExerciseMeasures{Slots: []RepSlot{{Weight: &w}}}}
	cp := orig.Clone()
	*cp.Exercise.Slots[0].Weight = 120
	assert.Equal(t, 100.0, *orig.Exercise.Slots[0].Weight)
}

func TestCalendarEntryLookups(t *testing.T) {
	itemID := primitive.NewObjectID()
	entry := CalendarEntry{Sessions: []CalendarSession{
		{ID: primitive.NewObjectID()},
		{ID: primitive.NewObjectID(), Items: []CalendarItem{{ID: itemID}}},
	}}

	sess, ok := entry.SessionOfItem(itemID)
	require.True(t, ok)
	assert.Equal(t, entry.Sessions[1].ID, sess.ID)
	assert.True(t, sess.HasItem(itemID))

	_, ok = entry.Session(primitive.NewObjectID())
	assert.False(t, ok)

	cp := entry.Clone()
	cp.Sessions[1].Items[0].Name = "changed"
	assert.Empty(t, entry.Sessions[1].Items[0].Name)
}

func TestTrackingKeyLevels(t *testing.T) {
	id := primitive.NewObjectID()
	assert.True(t, TrackingKey{SessionID: &id}.IsSessionLevel())
	assert.True(t, TrackingKey{SessionID: &id, ItemID: &id}.IsItemLevel())
	day := TrackingKey{EntryID: id}
	assert.False(t, day.IsSessionLevel())
	assert.False(t, day.IsItemLevel())
	assert.False(t, CompletionStatus("done").Valid())
}
