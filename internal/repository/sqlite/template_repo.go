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

type sqliteTemplateRepository struct {
	db   *sql.DB
	kind domain.PlanKind
}

// NewSQLiteTemplateRepository creates a template repository scoped to one plan kind.
func NewSQLiteTemplateRepository(db *sql.DB, kind domain.PlanKind) repository.TemplateRepository {
	return &sqliteTemplateRepository{db: db, kind: kind}
}

func (r *sqliteTemplateRepository) Create(ctx context.Context, tmpl *domain.WeekTemplate) (primitive.ObjectID, error) {
	if tmpl.Name == "" || tmpl.OwnerID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("template name and owner ID are required")
	}
	tmpl.ID = primitive.NewObjectID()
	tmpl.Kind = r.kind
	now := time.Now().UTC()
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now

	payload, err := json.Marshal(tmpl)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("encode template: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO week_templates(id, kind, owner_id, is_active, payload) VALUES(?,?,?,?,?)`,
		tmpl.ID.Hex(), string(r.kind), tmpl.OwnerID.Hex(), tmpl.IsActive, payload)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert template: %w", err)
	}
	return tmpl.ID, nil
}

func (r *sqliteTemplateRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WeekTemplate, error) {
	return r.get(ctx, r.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *sqliteTemplateRepository) get(ctx context.Context, q queryer, id primitive.ObjectID) (*domain.WeekTemplate, error) {
	var payload []byte
	err := q.QueryRowContext(ctx, `SELECT payload FROM week_templates WHERE id = ? AND kind = ?`, id.Hex(), string(r.kind)).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var tmpl domain.WeekTemplate
	if err := json.Unmarshal(payload, &tmpl); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	return &tmpl, nil
}

func (r *sqliteTemplateRepository) ListByOwner(ctx context.Context, ownerID primitive.ObjectID, activeOnly bool) ([]domain.WeekTemplate, error) {
	query := `SELECT payload FROM week_templates WHERE kind = ? AND owner_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY rowid DESC`
	rows, err := r.db.QueryContext(ctx, query, string(r.kind), ownerID.Hex())
	if err != nil {
		return nil, err
	}
	return scanPayloads[domain.WeekTemplate](rows)
}

func (r *sqliteTemplateRepository) Replace(ctx context.Context, tmpl *domain.WeekTemplate) error {
	return r.mutate(ctx, tmpl.ID, func(stored *domain.WeekTemplate) error {
		stored.Name = tmpl.Name
		stored.Description = tmpl.Description
		stored.IsActive = tmpl.IsActive
		stored.Days = tmpl.Clone().Days
		tmpl.UpdatedAt = stored.UpdatedAt
		return nil
	})
}

func (r *sqliteTemplateRepository) AddDay(ctx context.Context, templateID primitive.ObjectID, day domain.TemplateDay) error {
	return r.mutate(ctx, templateID, func(stored *domain.WeekTemplate) error {
		if _, taken := stored.DayFor(day.DayOfWeek); taken {
			return repository.ErrDuplicate
		}
		stored.Days = append(stored.Days, day.Clone())
		return nil
	})
}

func (r *sqliteTemplateRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	return r.mutate(ctx, id, func(stored *domain.WeekTemplate) error {
		stored.IsActive = active
		return nil
	})
}

// mutate loads, changes and rewrites a template inside one transaction.
func (r *sqliteTemplateRepository) mutate(ctx context.Context, id primitive.ObjectID, change func(*domain.WeekTemplate) error) (retErr error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	stored, err := r.get(ctx, tx, id)
	if err != nil {
		return err
	}
	stored.UpdatedAt = time.Now().UTC()
	if err := change(stored); err != nil {
		return err
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE week_templates SET is_active = ?, payload = ? WHERE id = ?`,
		stored.IsActive, payload, id.Hex()); err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return tx.Commit()
}

// scanPayloads decodes the single payload column of every row.
func scanPayloads[T any](rows *sql.Rows) ([]T, error) {
	defer func() { _ = rows.Close() }()
	var out []T
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
