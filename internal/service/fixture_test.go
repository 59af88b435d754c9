package service

import (
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/repository/memory"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fixture wires one plan kind's services over in-memory repositories.
type fixture struct {
	kind      domain.PlanKind
	subject   primitive.ObjectID
	templates *memory.TemplateRepository
	calendar  *memory.CalendarRepository
	tracking  *memory.TrackingRepository
	library   *memory.LibraryRepository

	templateSvc TemplateService
	calendarSvc CalendarService
	trackingSvc TrackingService
	rollupSvc   RollupService
}

func newFixture(t *testing.T, kind domain.PlanKind) *fixture {
	t.Helper()
	f := &fixture{
		kind:      kind,
		subject:   primitive.NewObjectID(),
		templates: memory.NewTemplateRepository(kind),
		calendar:  memory.NewCalendarRepository(kind),
		tracking:  memory.NewTrackingRepository(kind),
		library:   memory.NewLibraryRepository(kind),
	}
	f.templateSvc = NewTemplateService(kind, f.templates, f.library)
	f.calendarSvc = NewCalendarService(kind, f.calendar, f.templates)
	f.trackingSvc = NewTrackingService(kind, f.tracking, f.calendar, nil)
	f.rollupSvc = NewRollupService(f.calendar, f.tracking, RollupOptions{CountUnit: CountItems, StreakLookbackDays: 30})
	return f
}

func mustDate(s string) time.Time {
	t, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[T any](v T) *T { return &v }

// weekA is a meal template with a Monday breakfast of oatmeal.
func weekA() *domain.WeekTemplate {
	return &domain.WeekTemplate{
		Name: "Week A",
		Days: []domain.TemplateDay{{
			DayOfWeek: 0,
			Sessions: []domain.Session{{
				Name:  "Breakfast",
				Items: []domain.Item{{Name: "Oatmeal", Planned: domain.Measurements{Meal: &domain.MealMeasures{Quantity: ptr(80.0), Unit: "g", Calories: ptr(300.0)}}}},
			}},
		}},
	}
}

func (f *fixture) createTemplate(t *testing.T, tmpl *domain.WeekTemplate) *domain.WeekTemplate {
	t.Helper()
	created, err := f.templateSvc.Create(context.Background(), f.subject, tmpl)
	require.NoError(t, err)
	return created
}

func (f *fixture) track(t *testing.T, entry *domain.CalendarEntry, sessionIdx, itemIdx int, status domain.CompletionStatus) *domain.TrackingRecord {
	t.Helper()
	sess := entry.Sessions[sessionIdx]
	key := domain.TrackingKey{EntryID: entry.ID, SessionID: ptr(sess.ID)}
	if itemIdx >= 0 {
		key.ItemID = ptr(sess.Items[itemIdx].ID)
	}
	rec, err := f.trackingSvc.Upsert(context.Background(), f.subject, UpsertInput{Key: key, Status: status})
	require.NoError(t, err)
	return rec
}
