package sqlite

import (
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/repository"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type sqliteProgressRepository struct {
	db *sql.DB
}

// NewSQLiteProgressRepository creates a progress sample repository.
func NewSQLiteProgressRepository(db *sql.DB) repository.ProgressRepository {
	return &sqliteProgressRepository{db: db}
}

func (r *sqliteProgressRepository) Create(ctx context.Context, sample *domain.ProgressSample) (primitive.ObjectID, error) {
	if sample.SubjectID == primitive.NilObjectID || sample.Metric == "" || sample.MeasuredAt.IsZero() {
		return primitive.NilObjectID, errors.New("progress sample requires subjectId, metric and measuredAt")
	}
	sample.ID = primitive.NewObjectID()
	sample.CreatedAt = time.Now().UTC()

	payload, err := json.Marshal(sample)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("encode progress sample: %w", err)
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO progress_samples(id, subject_id, metric, measured_at, payload) VALUES(?,?,?,?,?)`,
		sample.ID.Hex(), sample.SubjectID.Hex(), sample.Metric, sample.MeasuredAt.UnixNano(), payload); err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert progress sample: %w", err)
	}
	return sample.ID, nil
}

func (r *sqliteProgressRepository) ListBySubjectAndRange(ctx context.Context, subjectID primitive.ObjectID, metric string, from, to time.Time) ([]domain.ProgressSample, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payload FROM progress_samples WHERE subject_id = ? AND metric = ? AND measured_at >= ? AND measured_at < ? ORDER BY measured_at`,
		subjectID.Hex(), metric, from.UnixNano(), to.UnixNano())
	if err != nil {
		return nil, err
	}
	return scanPayloads[domain.ProgressSample](rows)
}
