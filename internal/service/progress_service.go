package service

import (
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/repository"
	"context"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressService logs body and performance measurements outside the plan.
type ProgressService interface {
	Record(ctx context.Context, subjectID primitive.ObjectID, metric string, value float64, measuredAt time.Time, note string) (*domain.ProgressSample, error)
	// List returns samples with from <= measuredAt < to, oldest first.
	List(ctx context.Context, subjectID primitive.ObjectID, metric string, from, to time.Time) ([]domain.ProgressSample, error)
}

type progressService struct {
	progressRepo repository.ProgressRepository
}

// NewProgressService creates a new progress service.
func NewProgressService(progressRepo repository.ProgressRepository) ProgressService {
	return &progressService{progressRepo: progressRepo}
}

func (s *progressService) Record(ctx context.Context, subjectID primitive.ObjectID, metric string, value float64, measuredAt time.Time, note string) (*domain.ProgressSample, error) {
	metric = strings.ToLower(strings.TrimSpace(metric))
	if metric == "" {
		return nil, invalid("metric", "metric is required")
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, invalid("value", "must be a finite number")
	}
	if measuredAt.IsZero() {
		measuredAt = time.Now()
	}

	sample := &domain.ProgressSample{
		SubjectID:  subjectID,
		Metric:     metric,
		Value:      value,
		MeasuredAt: measuredAt.UTC(),
		Note:       strings.TrimSpace(note),
	}
	if _, err := s.progressRepo.Create(ctx, sample); err != nil {
		return nil, err
	}
	return sample, nil
}

func (s *progressService) List(ctx context.Context, subjectID primitive.ObjectID, metric string, from, to time.Time) ([]domain.ProgressSample, error) {
	metric = strings.ToLower(strings.TrimSpace(metric))
	if metric == "" {
		return nil, invalid("metric", "metric is required")
	}
	if !to.After(from) {
		return nil, invalid("to", "must be after from")
	}
	return s.progressRepo.ListBySubjectAndRange(ctx, subjectID, metric, from, to)
}
