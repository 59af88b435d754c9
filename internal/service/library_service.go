package service

import (
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/repository"
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LibraryService manages a planner's reusable food or exercise definitions.
type LibraryService interface {
	Create(ctx context.Context, ownerID primitive.ObjectID, input *domain.LibraryItem) (*domain.LibraryItem, error)
	Get(ctx context.Context, itemID primitive.ObjectID) (*domain.LibraryItem, error)
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]domain.LibraryItem, error)
	Update(ctx context.Context, ownerID, itemID primitive.ObjectID, input *domain.LibraryItem) (*domain.LibraryItem, error)
}

type libraryService struct {
	kind        domain.PlanKind
	libraryRepo repository.LibraryRepository
}

// NewLibraryService creates a library service for one plan kind.
func NewLibraryService(kind domain.PlanKind, libraryRepo repository.LibraryRepository) LibraryService {
	return &libraryService{kind: kind, libraryRepo: libraryRepo}
}

func (s *libraryService) Create(ctx context.Context, ownerID primitive.ObjectID, input *domain.LibraryItem) (*domain.LibraryItem, error) {
	if ownerID == primitive.NilObjectID {
		return nil, invalid("ownerId", "owner is required")
	}
	name, err := requireName(input.Name, "name")
	if err != nil {
		return nil, err
	}
	if err := checkMeasurements(s.kind, input.Defaults, "defaults"); err != nil {
		return nil, err
	}

	item := &domain.LibraryItem{
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Defaults:    input.Defaults.Clone(),
	}
	if _, err := s.libraryRepo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Get is readable by anyone; library items carry no subject data.
func (s *libraryService) Get(ctx context.Context, itemID primitive.ObjectID) (*domain.LibraryItem, error) {
	item, err := s.libraryRepo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLibraryItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (s *libraryService) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]domain.LibraryItem, error) {
	if ownerID == primitive.NilObjectID {
		return nil, invalid("ownerId", "owner is required")
	}
	return s.libraryRepo.GetByOwnerID(ctx, ownerID)
}

// Update changes an item the caller owns. Templates that already copied its
// defaults are unaffected.
func (s *libraryService) Update(ctx context.Context, ownerID, itemID primitive.ObjectID, input *domain.LibraryItem) (*domain.LibraryItem, error) {
	name, err := requireName(input.Name, "name")
	if err != nil {
		return nil, err
	}
	if err := checkMeasurements(s.kind, input.Defaults, "defaults"); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if existing.OwnerID != ownerID {
		return nil, ErrLibraryAccessDenied
	}

	existing.Name = name
	existing.Description = strings.TrimSpace(input.Description)
	existing.Category = strings.TrimSpace(input.Category)
	existing.Defaults = input.Defaults.Clone()
	if err := s.libraryRepo.Update(ctx, existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLibraryItemNotFound
		}
		return nil, err
	}
	return existing, nil
}
