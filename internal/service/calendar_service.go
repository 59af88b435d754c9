package service

import (
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/repository"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"
)

// maxRangeDays bounds calendar range reads.
const maxRangeDays = 366

// --- Service Interface ---

// CalendarService turns week templates into dated, independently editable
// calendar entries for one plan kind.
type CalendarService interface {
	// Resolve returns the existing entry for the date. found is false when the
	// date has not been materialized; that is not an error.
	Resolve(ctx context.Context, subjectID primitive.ObjectID, date time.Time) (entry *domain.CalendarEntry, found bool, err error)
	// MaterializeFromTemplate creates the entry from a template, or returns the
	// existing one unchanged. templateID nil selects the newest active template.
	MaterializeFromTemplate(ctx context.Context, subjectID primitive.ObjectID, date time.Time, templateID *primitive.ObjectID) (*domain.CalendarEntry, error)
	// ApplyOverride replaces the date's whole session list and marks it overridden.
	ApplyOverride(ctx context.Context, subjectID primitive.ObjectID, date time.Time, sessions []domain.CalendarSession) (*domain.CalendarEntry, error)
	AddSession(ctx context.Context, subjectID primitive.ObjectID, date time.Time, session domain.CalendarSession) (*domain.CalendarEntry, error)
	RemoveSession(ctx context.Context, subjectID primitive.ObjectID, date time.Time, sessionID primitive.ObjectID) (*domain.CalendarEntry, error)
	AddItem(ctx context.Context, subjectID primitive.ObjectID, date time.Time, sessionID primitive.ObjectID, item domain.CalendarItem) (*domain.CalendarEntry, error)
	RemoveItem(ctx context.Context, subjectID primitive.ObjectID, date time.Time, sessionID, itemID primitive.ObjectID) (*domain.CalendarEntry, error)
	// Rematerialize refreshes a non-overridden entry from its template.
	Rematerialize(ctx context.Context, subjectID primitive.ObjectID, date time.Time) (*domain.CalendarEntry, error)
	ListRange(ctx context.Context, subjectID primitive.ObjectID, from, to time.Time) ([]domain.CalendarEntry, error)
}

// --- Service Implementation ---

type calendarService struct {
	kind         domain.PlanKind
	calendarRepo repository.CalendarRepository
	templateRepo repository.TemplateRepository
	flight       singleflight.Group
}

// NewCalendarService creates the materializer for one plan kind.
func NewCalendarService(kind domain.PlanKind, calendarRepo repository.CalendarRepository, templateRepo repository.TemplateRepository) CalendarService {
	return &calendarService{
		kind:         kind,
		calendarRepo: calendarRepo,
		templateRepo: templateRepo,
	}
}

func (s *calendarService) Resolve(ctx context.Context, subjectID primitive.ObjectID, date time.Time) (*domain.CalendarEntry, bool, error) {
	entry, err := s.calendarRepo.GetBySubjectAndDate(ctx, subjectID, domain.DateOnly(date))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry, true, nil
}

// MaterializeFromTemplate collapses concurrent in-process calls for the same
// date and template choice into one; callers in other processes are reconciled
// by the storage uniqueness constraint on (kind, subject, date). The shared
// call is detached from any single caller's cancellation; each caller stops
// waiting when its own context ends.
func (s *calendarService) MaterializeFromTemplate(ctx context.Context, subjectID primitive.ObjectID, date time.Time, templateID *primitive.ObjectID) (*domain.CalendarEntry, error) {
	if subjectID == primitive.NilObjectID {
		return nil, invalid("subjectId", "subject is required")
	}
	day := domain.DateOnly(date)
	source := "active"
	if templateID != nil {
		source = templateID.Hex()
	}
	key := fmt.Sprintf("%s|%s|%s|%s", s.kind, subjectID.Hex(), day.Format(domain.DateLayout), source)

	shared := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		return s.materialize(shared, subjectID, day, templateID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		out := res.Val.(*domain.CalendarEntry).Clone()
		return &out, nil
	}
}

func (s *calendarService) materialize(ctx context.Context, subjectID primitive.ObjectID, day time.Time, templateID *primitive.ObjectID) (*domain.CalendarEntry, error) {
	// 1. An existing entry is returned unchanged
	existing, found, err := s.Resolve(ctx, subjectID, day)
	if err != nil {
		return nil, err
	}
	if found {
		materializationsTotal.WithLabelValues(string(s.kind), "existing").Inc()
		return existing, nil
	}

	// 2. Pick the source template
	tmpl, err := s.selectTemplate(ctx, subjectID, templateID)
	if err != nil {
		return nil, err
	}

	// 3. Copy the matching day and persist
	entry := snapshotDay(tmpl, subjectID, day)
	if _, err := s.calendarRepo.Create(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			materializationsTotal.WithLabelValues(string(s.kind), "raced").Inc()
			return s.calendarRepo.GetBySubjectAndDate(ctx, subjectID, day)
		}
		return nil, err
	}

	outcome := "created"
	if entry.IsRestDay {
		outcome = "rest_day"
	}
	materializationsTotal.WithLabelValues(string(s.kind), outcome).Inc()
	log.Printf("INFO: Materialized %s entry %s for subject %s on %s from template %s",
		s.kind, entry.ID.Hex(), subjectID.Hex(), day.Format(domain.DateLayout), tmpl.ID.Hex())
	return entry, nil
}

// selectTemplate returns the explicit template when given, else the subject's
// most recently created active template.
func (s *calendarService) selectTemplate(ctx context.Context, subjectID primitive.ObjectID, templateID *primitive.ObjectID) (*domain.WeekTemplate, error) {
	if templateID != nil {
		tmpl, err := s.templateRepo.GetByID(ctx, *templateID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrTemplateNotFound
			}
			return nil, err
		}
		if tmpl.OwnerID != subjectID || !tmpl.IsActive {
			return nil, ErrTemplateNotFound
		}
		return tmpl, nil
	}

	templates, err := s.templateRepo.ListByOwner(ctx, subjectID, true)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, ErrNoActiveTemplate
	}
	return &templates[0], nil
}

// snapshotDay copies the template's plan for date into a new entry. Every
// calendar node gets its own id; nothing points back into the template except
// the traceability links.
func snapshotDay(tmpl *domain.WeekTemplate, subjectID primitive.ObjectID, date time.Time) *domain.CalendarEntry {
	templateID := tmpl.ID
	entry := &domain.CalendarEntry{
		SubjectID:  subjectID,
		Date:       domain.DateOnly(date),
		TemplateID: &templateID,
		Sessions:   []domain.CalendarSession{},
	}
	day, ok := tmpl.DayFor(domain.DayOfWeek(date))
	if !ok {
		entry.IsRestDay = true
		return entry
	}
	dayID := day.ID
	entry.TemplateDayID = &dayID
	entry.IsRestDay = day.IsRestDay
	entry.Sessions = copySessions(day.Sessions)
	return entry
}

func copySessions(src []domain.Session) []domain.CalendarSession {
	out := make([]domain.CalendarSession, len(src))
	for i, sess := range src {
		cs := domain.CalendarSession{
			ID:    primitive.NewObjectID(),
			Name:  sess.Name,
			Order: sess.Order,
			Items: make([]domain.CalendarItem, len(sess.Items)),
		}
		for j, it := range sess.Items {
			ci := domain.CalendarItem{
				ID:      primitive.NewObjectID(),
				Name:    it.Name,
				Order:   it.Order,
				Planned: it.Planned.Clone(),
				Notes:   it.Notes,
			}
			if it.LibraryRef != nil {
				ref := *it.LibraryRef
				ci.LibraryRef = &ref
			}
			cs.Items[j] = ci
		}
		normalizeOrder(cs.Items, func(it *domain.CalendarItem) *int { return &it.Order })
		out[i] = cs
	}
	normalizeOrder(out, func(s *domain.CalendarSession) *int { return &s.Order })
	return out
}

// ApplyOverride is last-writer-wins: two concurrent editors of the same date
// silently replace each other's list.
func (s *calendarService) ApplyOverride(ctx context.Context, subjectID primitive.ObjectID, date time.Time, sessions []domain.CalendarSession) (*domain.CalendarEntry, error) {
	// 1. Validate Input
	if subjectID == primitive.NilObjectID {
		return nil, invalid("subjectId", "subject is required")
	}
	prepared, err := s.prepareSessions(sessions)
	if err != nil {
		return nil, err
	}
	day := domain.DateOnly(date)

	// 2. Create the entry when absent
	entry, found, err := s.Resolve(ctx, subjectID, day)
	if err != nil {
		return nil, err
	}
	if !found {
		entry = &domain.CalendarEntry{
			SubjectID:  subjectID,
			Date:       day,
			IsOverride: true,
			IsRestDay:  len(prepared) == 0,
			Sessions:   prepared,
		}
		_, err = s.calendarRepo.Create(ctx, entry)
		if err == nil {
			overridesTotal.WithLabelValues(string(s.kind)).Inc()
			return entry, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		if entry, err = s.calendarRepo.GetBySubjectAndDate(ctx, subjectID, day); err != nil {
			return nil, err
		}
	}

	// 3. Replace the whole list; the override flag never goes back to false
	entry.Sessions = prepared
	entry.IsOverride = true
	entry.IsRestDay = len(prepared) == 0
	if err := s.calendarRepo.UpdateContent(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	overridesTotal.WithLabelValues(string(s.kind)).Inc()
	return entry, nil
}

// prepareSessions validates an override list. Ids supplied by the caller are
// kept so existing tracking records stay attached; missing ids are generated.
func (s *calendarService) prepareSessions(input []domain.CalendarSession) ([]domain.CalendarSession, error) {
	sessions := domain.CloneSessions(input)
	if sessions == nil {
		sessions = []domain.CalendarSession{}
	}
	seen := make(map[primitive.ObjectID]bool)
	claim := func(id *primitive.ObjectID, field string) error {
		if *id == primitive.NilObjectID {
			*id = primitive.NewObjectID()
		}
		if seen[*id] {
			return invalid(field+".id", "duplicate id %s", id.Hex())
		}
		seen[*id] = true
		return nil
	}

	for i := range sessions {
		sf := fmt.Sprintf("sessions[%d]", i)
		sess := &sessions[i]
		if err := claim(&sess.ID, sf); err != nil {
			return nil, err
		}
		name, err := requireName(sess.Name, sf+".name")
		if err != nil {
			return nil, err
		}
		sess.Name = name
		if sess.Items == nil {
			sess.Items = []domain.CalendarItem{}
		}
		for j := range sess.Items {
			itf := fmt.Sprintf("%s.items[%d]", sf, j)
			it := &sess.Items[j]
			if err := claim(&it.ID, itf); err != nil {
				return nil, err
			}
			name, err := requireName(it.Name, itf+".name")
			if err != nil {
				return nil, err
			}
			it.Name = name
			if err := checkMeasurements(s.kind, it.Planned, itf+".planned"); err != nil {
				return nil, err
			}
		}
		normalizeOrder(sess.Items, func(it *domain.CalendarItem) *int { return &it.Order })
	}
	normalizeOrder(sessions, func(s *domain.CalendarSession) *int { return &s.Order })
	return sessions, nil
}

// === Ad hoc edits: read the full entry, change it in memory, override ===

// currentSessions returns the date's sessions, materializing from the active
// template first so an ad hoc edit does not drop the planned content.
func (s *calendarService) currentSessions(ctx context.Context, subjectID primitive.ObjectID, date time.Time) ([]domain.CalendarSession, error) {
	entry, found, err := s.Resolve(ctx, subjectID, date)
	if err != nil {
		return nil, err
	}
	if found {
		return entry.Sessions, nil
	}
	entry, err = s.MaterializeFromTemplate(ctx, subjectID, date, nil)
	if err != nil {
		if errors.Is(err, ErrNoActiveTemplate) {
			return []domain.CalendarSession{}, nil
		}
		return nil, err
	}
	return entry.Sessions, nil
}

func (s *calendarService) AddSession(ctx context.Context, subjectID primitive.ObjectID, date time.Time, session domain.CalendarSession) (*domain.CalendarEntry, error) {
	sessions, err := s.currentSessions(ctx, subjectID, date)
	if err != nil {
		return nil, err
	}
	session.ID = primitive.NilObjectID
	session.Order = len(sessions)
	session.Items = append([]domain.CalendarItem(nil), session.Items...)
	for i := range session.Items {
		session.Items[i].ID = primitive.NilObjectID
	}
	return s.ApplyOverride(ctx, subjectID, date, append(sessions, session))
}

func (s *calendarService) RemoveSession(ctx context.Context, subjectID primitive.ObjectID, date time.Time, sessionID primitive.ObjectID) (*domain.CalendarEntry, error) {
	sessions, err := s.currentSessions(ctx, subjectID, date)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].ID == sessionID {
			remaining := append(sessions[:i:i], sessions[i+1:]...)
			return s.ApplyOverride(ctx, subjectID, date, remaining)
		}
	}
	return nil, ErrSessionNotFound
}

func (s *calendarService) AddItem(ctx context.Context, subjectID primitive.ObjectID, date time.Time, sessionID primitive.ObjectID, item domain.CalendarItem) (*domain.CalendarEntry, error) {
	sessions, err := s.currentSessions(ctx, subjectID, date)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].ID == sessionID {
			item.ID = primitive.NilObjectID
			item.Order = len(sessions[i].Items)
			sessions[i].Items = append(sessions[i].Items, item)
			return s.ApplyOverride(ctx, subjectID, date, sessions)
		}
	}
	return nil, ErrSessionNotFound
}

func (s *calendarService) RemoveItem(ctx context.Context, subjectID primitive.ObjectID, date time.Time, sessionID, itemID primitive.ObjectID) (*domain.CalendarEntry, error) {
	sessions, err := s.currentSessions(ctx, subjectID, date)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].ID != sessionID {
			continue
		}
		items := sessions[i].Items
		for j := range items {
			if items[j].ID == itemID {
				sessions[i].Items = append(items[:j:j], items[j+1:]...)
				return s.ApplyOverride(ctx, subjectID, date, sessions)
			}
		}
		return nil, ErrItemNotFound
	}
	return nil, ErrSessionNotFound
}

// Rematerialize re-copies the source template into an entry that was never
// overridden. Tracking records that referenced the old session and item ids
// stay in the ledger but no longer count toward rollups.
func (s *calendarService) Rematerialize(ctx context.Context, subjectID primitive.ObjectID, date time.Time) (*domain.CalendarEntry, error) {
	day := domain.DateOnly(date)
	entry, found, err := s.Resolve(ctx, subjectID, day)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrEntryNotFound
	}
	if entry.IsOverride {
		return nil, ErrEntryOverridden
	}

	tmpl, err := s.selectTemplate(ctx, subjectID, entry.TemplateID)
	if errors.Is(err, ErrTemplateNotFound) && entry.TemplateID != nil {
		log.Printf("WARN: Template %s of entry %s is gone, falling back to the active template", entry.TemplateID.Hex(), entry.ID.Hex())
		tmpl, err = s.selectTemplate(ctx, subjectID, nil)
	}
	if err != nil {
		return nil, err
	}

	fresh := snapshotDay(tmpl, subjectID, day)
	entry.TemplateID = fresh.TemplateID
	entry.TemplateDayID = fresh.TemplateDayID
	entry.IsRestDay = fresh.IsRestDay
	entry.Sessions = fresh.Sessions
	if err := s.calendarRepo.UpdateContent(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	materializationsTotal.WithLabelValues(string(s.kind), "refreshed").Inc()
	return entry, nil
}

func (s *calendarService) ListRange(ctx context.Context, subjectID primitive.ObjectID, from, to time.Time) ([]domain.CalendarEntry, error) {
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return s.calendarRepo.ListBySubjectAndRange(ctx, subjectID, from, to)
}

func checkRange(from, to time.Time) error {
	if to.Before(from) {
		return invalid("to", "must not be before from")
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		return invalid("to", "range must not exceed %d days", maxRangeDays)
	}
	return nil
}
