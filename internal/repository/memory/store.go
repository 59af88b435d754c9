// Package memory provides in-memory implementations of the repository
// interfaces, used by tests and by the "memory" database driver. Every value
// is cloned on the way in and out so callers never share state with the store,
// and the same uniqueness constraints as the persistent drivers are enforced.
package memory

import (
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/repository"
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time contract assertions.
var (
	_ repository.TemplateRepository = (*TemplateRepository)(nil)
	_ repository.CalendarRepository = (*CalendarRepository)(nil)
	_ repository.TrackingRepository = (*TrackingRepository)(nil)
	_ repository.LibraryRepository  = (*LibraryRepository)(nil)
	_ repository.ProgressRepository = (*ProgressRepository)(nil)
)

var nowFunc = func() time.Time { return time.Now().UTC() }

// TemplateRepository stores week templates of one kind.
type TemplateRepository struct {
	mu        sync.RWMutex
	kind      domain.PlanKind
	seq       int
	templates map[primitive.ObjectID]storedTemplate
}

type storedTemplate struct {
	seq  int
	tmpl domain.WeekTemplate
}

// NewTemplateRepository creates an empty template repository.
func NewTemplateRepository(kind domain.PlanKind) *TemplateRepository {
	return &TemplateRepository{kind: kind, templates: make(map[primitive.ObjectID]storedTemplate)}
}

func (r *TemplateRepository) Create(_ context.Context, tmpl *domain.WeekTemplate) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tmpl.ID = primitive.NewObjectID()
	tmpl.Kind = r.kind
	now := nowFunc()
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now
	r.seq++
	r.templates[tmpl.ID] = storedTemplate{seq: r.seq, tmpl: tmpl.Clone()}
	return tmpl.ID, nil
}

func (r *TemplateRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.WeekTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := st.tmpl.Clone()
	return &out, nil
}

func (r *TemplateRepository) ListByOwner(_ context.Context, ownerID primitive.ObjectID, activeOnly bool) ([]domain.WeekTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []storedTemplate
	for _, st := range r.templates {
		if st.tmpl.OwnerID != ownerID || (activeOnly && !st.tmpl.IsActive) {
			continue
		}
		matched = append(matched, st)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq > matched[j].seq })
	out := make([]domain.WeekTemplate, len(matched))
	for i, st := range matched {
		out[i] = st.tmpl.Clone()
	}
	return out, nil
}

func (r *TemplateRepository) Replace(_ context.Context, tmpl *domain.WeekTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.templates[tmpl.ID]
	if !ok {
		return repository.ErrNotFound
	}
	tmpl.UpdatedAt = nowFunc()
	next := tmpl.Clone()
	next.Kind = st.tmpl.Kind
	next.OwnerID = st.tmpl.OwnerID
	next.CreatedAt = st.tmpl.CreatedAt
	st.tmpl = next
	r.templates[tmpl.ID] = st
	return nil
}

func (r *TemplateRepository) AddDay(_ context.Context, templateID primitive.ObjectID, day domain.TemplateDay) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.templates[templateID]
	if !ok {
		return repository.ErrNotFound
	}
	if _, taken := st.tmpl.DayFor(day.DayOfWeek); taken {
		return repository.ErrDuplicate
	}
	st.tmpl.Days = append(st.tmpl.Days, day.Clone())
	st.tmpl.UpdatedAt = nowFunc()
	r.templates[templateID] = st
	return nil
}

func (r *TemplateRepository) SetActive(_ context.Context, id primitive.ObjectID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.templates[id]
	if !ok {
		return repository.ErrNotFound
	}
	st.tmpl.IsActive = active
	st.tmpl.UpdatedAt = nowFunc()
	r.templates[id] = st
	return nil
}

// CalendarRepository stores calendar entries of one kind.
type CalendarRepository struct {
	mu        sync.RWMutex
	kind      domain.PlanKind
	entries   map[primitive.ObjectID]domain.CalendarEntry
	bySubject map[subjectDate]primitive.ObjectID
}

type subjectDate struct {
	subject primitive.ObjectID
	date    string
}

func keyOf(subject primitive.ObjectID, date time.Time) subjectDate {
	return subjectDate{subject: subject, date: domain.DateOnly(date).Format(domain.DateLayout)}
}

// NewCalendarRepository creates an empty calendar repository.
func NewCalendarRepository(kind domain.PlanKind) *CalendarRepository {
	return &CalendarRepository{
		kind:      kind,
		entries:   make(map[primitive.ObjectID]domain.CalendarEntry),
		bySubject: make(map[subjectDate]primitive.ObjectID),
	}
}

func (r *CalendarRepository) Create(_ context.Context, entry *domain.CalendarEntry) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := keyOf(entry.SubjectID, entry.Date)
	if _, exists := r.bySubject[k]; exists {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	entry.ID = primitive.NewObjectID()
	entry.Kind = r.kind
	entry.Date = domain.DateOnly(entry.Date)
	now := nowFunc()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	r.entries[entry.ID] = entry.Clone()
	r.bySubject[k] = entry.ID
	return entry.ID, nil
}

func (r *CalendarRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.CalendarEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := e.Clone()
	return &out, nil
}

func (r *CalendarRepository) GetBySubjectAndDate(ctx context.Context, subjectID primitive.ObjectID, date time.Time) (*domain.CalendarEntry, error) {
	r.mu.RLock()
	id, ok := r.bySubject[keyOf(subjectID, date)]
	r.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *CalendarRepository) ListBySubjectAndRange(_ context.Context, subjectID primitive.ObjectID, from, to time.Time) ([]domain.CalendarEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	var out []domain.CalendarEntry
	for _, e := range r.entries {
		if e.SubjectID != subjectID || e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *CalendarRepository) UpdateContent(_ context.Context, entry *domain.CalendarEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.entries[entry.ID]
	if !ok {
		return repository.ErrNotFound
	}
	entry.UpdatedAt = nowFunc()
	next := entry.Clone()
	next.Kind = stored.Kind
	next.SubjectID = stored.SubjectID
	next.Date = stored.Date
	next.CreatedAt = stored.CreatedAt
	r.entries[entry.ID] = next
	return nil
}

// TrackingRepository stores tracking records of one kind.
type TrackingRepository struct {
	mu      sync.RWMutex
	kind    domain.PlanKind
	records map[primitive.ObjectID]domain.TrackingRecord
	byKey   map[trackingKey]primitive.ObjectID
}

type trackingKey struct {
	entry, session, item primitive.ObjectID
}

func flattenKey(k domain.TrackingKey) trackingKey {
	out := trackingKey{entry: k.EntryID}
	if k.SessionID != nil {
		out.session = *k.SessionID
	}
	if k.ItemID != nil {
		out.item = *k.ItemID
	}
	return out
}

// NewTrackingRepository creates an empty tracking repository.
func NewTrackingRepository(kind domain.PlanKind) *TrackingRepository {
	return &TrackingRepository{
		kind:    kind,
		records: make(map[primitive.ObjectID]domain.TrackingRecord),
		byKey:   make(map[trackingKey]primitive.ObjectID),
	}
}

func (r *TrackingRepository) Upsert(_ context.Context, record *domain.TrackingRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := nowFunc()
	k := flattenKey(record.TrackingKey)
	record.Kind = r.kind
	record.TrackedDate = domain.DateOnly(record.TrackedDate)
	record.UpdatedAt = now
	inserted := false
	if id, ok := r.byKey[k]; ok {
		record.ID = id
		record.CreatedAt = r.records[id].CreatedAt
	} else {
		record.ID = primitive.NewObjectID()
		record.CreatedAt = now
		r.byKey[k] = record.ID
		inserted = true
	}
	r.records[record.ID] = record.Clone()
	return inserted, nil
}

func (r *TrackingRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.TrackingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := rec.Clone()
	return &out, nil
}

func (r *TrackingRepository) GetByKey(ctx context.Context, key domain.TrackingKey) (*domain.TrackingRecord, error) {
	r.mu.RLock()
	id, ok := r.byKey[flattenKey(key)]
	r.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *TrackingRepository) ListByEntry(_ context.Context, entryID primitive.ObjectID) ([]domain.TrackingRecord, error) {
	return r.list(func(rec domain.TrackingRecord) bool { return rec.EntryID == entryID }), nil
}

func (r *TrackingRepository) ListBySubjectAndRange(_ context.Context, subjectID primitive.ObjectID, from, to time.Time) ([]domain.TrackingRecord, error) {
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	return r.list(func(rec domain.TrackingRecord) bool {
		return rec.SubjectID == subjectID && !rec.TrackedDate.Before(from) && !rec.TrackedDate.After(to)
	}), nil
}

func (r *TrackingRepository) list(match func(domain.TrackingRecord) bool) []domain.TrackingRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.TrackingRecord
	for _, rec := range r.records {
		if match(rec) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TrackedDate.Equal(out[j].TrackedDate) {
			return out[i].TrackedDate.Before(out[j].TrackedDate)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out
}

// LibraryRepository stores library items of one kind.
type LibraryRepository struct {
	mu    sync.RWMutex
	kind  domain.PlanKind
	items map[primitive.ObjectID]domain.LibraryItem
}

// NewLibraryRepository creates an empty library repository.
func NewLibraryRepository(kind domain.PlanKind) *LibraryRepository {
	return &LibraryRepository{kind: kind, items: make(map[primitive.ObjectID]domain.LibraryItem)}
}

func (r *LibraryRepository) Create(_ context.Context, item *domain.LibraryItem) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item.ID = primitive.NewObjectID()
	item.Kind = r.kind
	now := nowFunc()
	item.CreatedAt = now
	item.UpdatedAt = now
	stored := *item
	stored.Defaults = item.Defaults.Clone()
	r.items[item.ID] = stored
	return item.ID, nil
}

func (r *LibraryRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.LibraryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	item.Defaults = item.Defaults.Clone()
	return &item, nil
}

func (r *LibraryRepository) GetByOwnerID(_ context.Context, ownerID primitive.ObjectID) ([]domain.LibraryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.LibraryItem
	for _, item := range r.items {
		if item.OwnerID == ownerID {
			item.Defaults = item.Defaults.Clone()
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *LibraryRepository) Update(_ context.Context, item *domain.LibraryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[item.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Name = item.Name
	stored.Description = item.Description
	stored.Category = item.Category
	stored.Defaults = item.Defaults.Clone()
	stored.UpdatedAt = nowFunc()
	item.UpdatedAt = stored.UpdatedAt
	r.items[item.ID] = stored
	return nil
}

// ProgressRepository stores progress samples.
type ProgressRepository struct {
	mu      sync.RWMutex
	samples []domain.ProgressSample
}

// NewProgressRepository creates an empty progress repository.
func NewProgressRepository() *ProgressRepository {
	return &ProgressRepository{}
}

func (r *ProgressRepository) Create(_ context.Context, sample *domain.ProgressSample) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sample.ID = primitive.NewObjectID()
	sample.CreatedAt = nowFunc()
	r.samples = append(r.samples, *sample)
	return sample.ID, nil
}

func (r *ProgressRepository) ListBySubjectAndRange(_ context.Context, subjectID primitive.ObjectID, metric string, from, to time.Time) ([]domain.ProgressSample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ProgressSample
	for _, s := range r.samples {
		if s.SubjectID == subjectID && s.Metric == metric && !s.MeasuredAt.Before(from) && s.MeasuredAt.Before(to) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MeasuredAt.Before(out[j].MeasuredAt) })
	return out, nil
}
