package service

import (
	"alcyxob/adherence-app/internal/domain"
	"sort"
	"strings"
)

// checkMeasurements rejects non-finite or negative values and a block that
// does not match the plan kind.
func checkMeasurements(kind domain.PlanKind, m domain.Measurements, field string) error {
	if kind == domain.KindMeal && m.Exercise != nil {
		return invalid(field+".exercise", "not allowed on a %s plan", kind)
	}
	if kind == domain.KindExercise && m.Meal != nil {
		return invalid(field+".meal", "not allowed on an %s plan", kind)
	}
	if sub, err := m.Validate(); err != nil {
		return invalid(field+"."+sub, "%v", err)
	}
	return nil
}

func requireName(name, field string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid(field, "name is required")
	}
	return name, nil
}

// normalizeOrder sorts by the caller-supplied order (stable for ties) and
// rewrites it as a dense 0..n-1 sequence.
func normalizeOrder[T any](list []T, order func(*T) *int) {
	sort.SliceStable(list, func(i, j int) bool { return *order(&list[i]) < *order(&list[j]) })
	for i := range list {
		*order(&list[i]) = i
	}
}
