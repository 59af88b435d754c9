package service

import (
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/repository"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Service Interface ---

// TemplateService owns the reusable week plans of one plan kind. Every
// operation is scoped to the owning subject; a template owned by someone else
// is reported as not found.
type TemplateService interface {
	Create(ctx context.Context, ownerID primitive.ObjectID, input *domain.WeekTemplate) (*domain.WeekTemplate, error)
	// Update replaces the whole day/session/item tree; every node gets a fresh id.
	Update(ctx context.Context, ownerID, templateID primitive.ObjectID, input *domain.WeekTemplate) (*domain.WeekTemplate, error)
	AddDay(ctx context.Context, ownerID, templateID primitive.ObjectID, day domain.TemplateDay) (*domain.WeekTemplate, error)
	Deactivate(ctx context.Context, ownerID, templateID primitive.ObjectID) error
	Get(ctx context.Context, ownerID, templateID primitive.ObjectID) (*domain.WeekTemplate, error)
	List(ctx context.Context, ownerID primitive.ObjectID, activeOnly bool) ([]domain.WeekTemplate, error)
}

// --- Service Implementation ---

type templateService struct {
	kind         domain.PlanKind
	templateRepo repository.TemplateRepository
	libraryRepo  repository.LibraryRepository
}

// NewTemplateService creates a template service for one plan kind.
func NewTemplateService(kind domain.PlanKind, templateRepo repository.TemplateRepository, libraryRepo repository.LibraryRepository) TemplateService {
	return &templateService{
		kind:         kind,
		templateRepo: templateRepo,
		libraryRepo:  libraryRepo,
	}
}

// Create validates and stores a new, active template.
func (s *templateService) Create(ctx context.Context, ownerID primitive.ObjectID, input *domain.WeekTemplate) (*domain.WeekTemplate, error) {
	// 1. Validate Input
	if ownerID == primitive.NilObjectID {
		return nil, invalid("ownerId", "owner is required")
	}
	name, err := requireName(input.Name, "name")
	if err != nil {
		return nil, err
	}
	days, err := s.prepareDays(ctx, input.Days)
	if err != nil {
		return nil, err
	}

	// 2. Persist
	tmpl := &domain.WeekTemplate{
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
		Days:        days,
	}
	if _, err := s.templateRepo.Create(ctx, tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// Update swaps the template's tree wholesale. Calendar entries hold copies, so
// the old node ids are not referenced by anything and can be discarded.
func (s *templateService) Update(ctx context.Context, ownerID, templateID primitive.ObjectID, input *domain.WeekTemplate) (*domain.WeekTemplate, error) {
	existing, err := s.Get(ctx, ownerID, templateID)
	if err != nil {
		return nil, err
	}
	name, err := requireName(input.Name, "name")
	if err != nil {
		return nil, err
	}
	days, err := s.prepareDays(ctx, input.Days)
	if err != nil {
		return nil, err
	}

	existing.Name = name
	existing.Description = strings.TrimSpace(input.Description)
	existing.Days = days
	if err := s.templateRepo.Replace(ctx, existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return existing, nil
}

// AddDay appends one day. The storage layer enforces day_of_week uniqueness so
// that two concurrent adds for the same weekday cannot both succeed.
func (s *templateService) AddDay(ctx context.Context, ownerID, templateID primitive.ObjectID, day domain.TemplateDay) (*domain.WeekTemplate, error) {
	tmpl, err := s.Get(ctx, ownerID, templateID)
	if err != nil {
		return nil, err
	}
	prepared, err := s.prepareDay(ctx, "day", day)
	if err != nil {
		return nil, err
	}
	if _, taken := tmpl.DayFor(prepared.DayOfWeek); taken {
		return nil, ErrDayOfWeekTaken
	}

	if err := s.templateRepo.AddDay(ctx, templateID, prepared); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrDayOfWeekTaken
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return s.Get(ctx, ownerID, templateID)
}

// Deactivate soft-deletes a template. Already materialized dates keep their copies.
func (s *templateService) Deactivate(ctx context.Context, ownerID, templateID primitive.ObjectID) error {
	if _, err := s.Get(ctx, ownerID, templateID); err != nil {
		return err
	}
	if err := s.templateRepo.SetActive(ctx, templateID, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTemplateNotFound
		}
		return err
	}
	return nil
}

func (s *templateService) Get(ctx context.Context, ownerID, templateID primitive.ObjectID) (*domain.WeekTemplate, error) {
	tmpl, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if tmpl.OwnerID != ownerID {
		return nil, ErrTemplateNotFound
	}
	return tmpl, nil
}

func (s *templateService) List(ctx context.Context, ownerID primitive.ObjectID, activeOnly bool) ([]domain.WeekTemplate, error) {
	if ownerID == primitive.NilObjectID {
		return nil, invalid("ownerId", "owner is required")
	}
	return s.templateRepo.ListByOwner(ctx, ownerID, activeOnly)
}

// === Tree preparation ===

func (s *templateService) prepareDays(ctx context.Context, input []domain.TemplateDay) ([]domain.TemplateDay, error) {
	days := make([]domain.TemplateDay, 0, len(input))
	seen := make(map[int]bool, len(input))
	for i, d := range input {
		field := fmt.Sprintf("days[%d]", i)
		prepared, err := s.prepareDay(ctx, field, d)
		if err != nil {
			return nil, err
		}
		if seen[prepared.DayOfWeek] {
			return nil, fmt.Errorf("%s.dayOfWeek %d: %w", field, prepared.DayOfWeek, ErrDayOfWeekTaken)
		}
		seen[prepared.DayOfWeek] = true
		days = append(days, prepared)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].DayOfWeek < days[j].DayOfWeek })
	return days, nil
}

func (s *templateService) prepareDay(ctx context.Context, field string, d domain.TemplateDay) (domain.TemplateDay, error) {
	if d.DayOfWeek < 0 || d.DayOfWeek >= domain.DaysPerWeek {
		return domain.TemplateDay{}, invalid(field+".dayOfWeek", "must be between 0 (Monday) and %d (Sunday), got %d", domain.DaysPerWeek-1, d.DayOfWeek)
	}
	out := domain.TemplateDay{
		ID:        primitive.NewObjectID(),
		DayOfWeek: d.DayOfWeek,
		IsRestDay: d.IsRestDay,
		Sessions:  make([]domain.Session, 0, len(d.Sessions)),
	}
	for j, sess := range d.Sessions {
		sf := fmt.Sprintf("%s.sessions[%d]", field, j)
		name, err := requireName(sess.Name, sf+".name")
		if err != nil {
			return domain.TemplateDay{}, err
		}
		ps := domain.Session{ID: primitive.NewObjectID(), Name: name, Order: sess.Order, Items: make([]domain.Item, 0, len(sess.Items))}
		for k, it := range sess.Items {
			item, err := s.prepareItem(ctx, fmt.Sprintf("%s.items[%d]", sf, k), it)
			if err != nil {
				return domain.TemplateDay{}, err
			}
			ps.Items = append(ps.Items, item)
		}
		normalizeOrder(ps.Items, func(it *domain.Item) *int { return &it.Order })
		out.Sessions = append(out.Sessions, ps)
	}
	normalizeOrder(out.Sessions, func(s *domain.Session) *int { return &s.Order })
	return out, nil
}

// prepareItem validates one item and fills blanks from its library definition.
func (s *templateService) prepareItem(ctx context.Context, field string, it domain.Item) (domain.Item, error) {
	out := domain.Item{
		ID:      primitive.NewObjectID(),
		Name:    it.Name,
		Order:   it.Order,
		Planned: it.Planned.Clone(),
		Notes:   it.Notes,
	}
	if it.LibraryRef != nil {
		lib, err := s.libraryRepo.GetByID(ctx, *it.LibraryRef)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.Item{}, invalid(field+".libraryRef", "unknown library item %s", it.LibraryRef.Hex())
			}
			return domain.Item{}, err
		}
		ref := lib.ID
		out.LibraryRef = &ref
		if strings.TrimSpace(out.Name) == "" {
			out.Name = lib.Name
		}
		if out.Planned.IsZero() {
			out.Planned = lib.Defaults.Clone()
		}
	}
	name, err := requireName(out.Name, field+".name")
	if err != nil {
		return domain.Item{}, err
	}
	out.Name = name
	if err := checkMeasurements(s.kind, out.Planned, field+".planned"); err != nil {
		return domain.Item{}, err
	}
	return out, nil
}
