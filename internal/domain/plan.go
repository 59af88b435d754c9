package domain

import (
	"fmt"
	"math"
	"strings"
)

// PlanKind separates the two plan domains. Every template, calendar entry,
// tracking record and library item belongs to exactly one kind.
type PlanKind string

const (
	KindMeal     PlanKind = "meal"
	KindExercise PlanKind = "exercise"
)

// MaxRepSlots is the number of recommended rep/weight sub-slots an exercise carries.
const MaxRepSlots = 3

// Valid reports whether k is a known plan kind.
func (k PlanKind) Valid() bool {
	return k == KindMeal || k == KindExercise
}

// ParsePlanKind accepts the singular kind or its plural route form ("meals", "exercises").
func ParsePlanKind(s string) (PlanKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "meal", "meals":
		return KindMeal, nil
	case "exercise", "exercises":
		return KindExercise, nil
	}
	return "", fmt.Errorf("unknown plan kind %q", s)
}

// RepSlot is one recommended (or performed) set: repetitions at a weight.
type RepSlot struct {
	Reps   *int     `bson:"reps,omitempty" json:"reps,omitempty"`
	Weight *float64 `bson:"weight,omitempty" json:"weight,omitempty"`
}

// ExerciseMeasures are the exercise-specific measurement fields.
type ExerciseMeasures struct {
	Slots           []RepSlot `bson:"slots,omitempty" json:"slots,omitempty"` // at most MaxRepSlots
	DurationSeconds *int      `bson:"durationSeconds,omitempty" json:"durationSeconds,omitempty"`
}

// MealMeasures are the meal-specific measurement fields (quantity and macros).
type MealMeasures struct {
	Quantity *float64 `bson:"quantity,omitempty" json:"quantity,omitempty"`
	Unit     string   `bson:"unit,omitempty" json:"unit,omitempty"` // e.g. "g", "ml", "serving"
	Calories *float64 `bson:"calories,omitempty" json:"calories,omitempty"`
	Protein  *float64 `bson:"protein,omitempty" json:"protein,omitempty"`
	Carbs    *float64 `bson:"carbs,omitempty" json:"carbs,omitempty"`
	Fat      *float64 `bson:"fat,omitempty" json:"fat,omitempty"`
}

// Measurements carries either planned values (on items) or actual values
// (on tracking records). Only the block matching the plan kind is expected.
type Measurements struct {
	Exercise *ExerciseMeasures `bson:"exercise,omitempty" json:"exercise,omitempty"`
	Meal     *MealMeasures     `bson:"meal,omitempty" json:"meal,omitempty"`
}

// Clone returns a deep copy so that calendar snapshots never share pointers
// with the template they were copied from.
func (m Measurements) Clone() Measurements {
	var out Measurements
	if m.Exercise != nil {
		ex := ExerciseMeasures{DurationSeconds: cloneInt(m.Exercise.DurationSeconds)}
		if m.Exercise.Slots != nil {
			ex.Slots = make([]RepSlot, len(m.Exercise.Slots))
			for i, s := range m.Exercise.Slots {
				ex.Slots[i] = RepSlot{Reps: cloneInt(s.Reps), Weight: cloneFloat(s.Weight)}
			}
		}
		out.Exercise = &ex
	}
	if m.Meal != nil {
		out.Meal = &MealMeasures{
			Quantity: cloneFloat(m.Meal.Quantity),
			Unit:     m.Meal.Unit,
			Calories: cloneFloat(m.Meal.Calories),
			Protein:  cloneFloat(m.Meal.Protein),
			Carbs:    cloneFloat(m.Meal.Carbs),
			Fat:      cloneFloat(m.Meal.Fat),
		}
	}
	return out
}

// IsZero reports whether no measurement block is set.
func (m Measurements) IsZero() bool {
	return m.Exercise == nil && m.Meal == nil
}

// Validate checks that every value is a finite, non-negative number and that
// the slot limit is respected. The returned string names the offending field.
func (m Measurements) Validate() (string, error) {
	if m.Exercise != nil {
		if len(m.Exercise.Slots) > MaxRepSlots {
			return "exercise.slots", fmt.Errorf("at most %d rep slots are allowed", MaxRepSlots)
		}
		for i, s := range m.Exercise.Slots {
			if s.Reps != nil && *s.Reps < 0 {
				return fmt.Sprintf("exercise.slots[%d].reps", i), fmt.Errorf("must not be negative")
			}
			if err := checkNumber(s.Weight); err != nil {
				return fmt.Sprintf("exercise.slots[%d].weight", i), err
			}
		}
		if d := m.Exercise.DurationSeconds; d != nil && *d < 0 {
			return "exercise.durationSeconds", fmt.Errorf("must not be negative")
		}
	}
	if m.Meal != nil {
		fields := []struct {
			name string
			v    *float64
		}{
			{"meal.quantity", m.Meal.Quantity},
			{"meal.calories", m.Meal.Calories},
			{"meal.protein", m.Meal.Protein},
			{"meal.carbs", m.Meal.Carbs},
			{"meal.fat", m.Meal.Fat},
		}
		for _, f := range fields {
			if err := checkNumber(f.v); err != nil {
				return f.name, err
			}
		}
	}
	return "", nil
}

func checkNumber(v *float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return fmt.Errorf("must be a finite number")
	}
	if *v < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
