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

type sqliteCalendarRepository struct {
	db   *sql.DB
	kind domain.PlanKind
}

// NewSQLiteCalendarRepository creates a calendar repository scoped to one plan kind.
func NewSQLiteCalendarRepository(db *sql.DB, kind domain.PlanKind) repository.CalendarRepository {
	return &sqliteCalendarRepository{db: db, kind: kind}
}

// Create inserts a new entry; UNIQUE(kind, subject_id, date) reports a lost race as ErrDuplicate.
func (r *sqliteCalendarRepository) Create(ctx context.Context, entry *domain.CalendarEntry) (primitive.ObjectID, error) {
	if entry.SubjectID == primitive.NilObjectID || entry.Date.IsZero() {
		return primitive.NilObjectID, errors.New("calendar entry requires subjectId and date")
	}
	entry.ID = primitive.NewObjectID()
	entry.Kind = r.kind
	entry.Date = domain.DateOnly(entry.Date)
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	payload, err := json.Marshal(entry)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("encode calendar entry: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO calendar_entries(id, kind, subject_id, date, payload) VALUES(?,?,?,?,?)`,
		entry.ID.Hex(), string(r.kind), entry.SubjectID.Hex(), entry.Date.Format(domain.DateLayout), payload)
	if err != nil {
		if isUniqueViolation(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, fmt.Errorf("insert calendar entry: %w", err)
	}
	return entry.ID, nil
}

func (r *sqliteCalendarRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CalendarEntry, error) {
	return r.getOne(ctx, `SELECT payload FROM calendar_entries WHERE id = ? AND kind = ?`, id.Hex(), string(r.kind))
}

func (r *sqliteCalendarRepository) GetBySubjectAndDate(ctx context.Context, subjectID primitive.ObjectID, date time.Time) (*domain.CalendarEntry, error) {
	return r.getOne(ctx, `SELECT payload FROM calendar_entries WHERE kind = ? AND subject_id = ? AND date = ?`,
		string(r.kind), subjectID.Hex(), domain.DateOnly(date).Format(domain.DateLayout))
}

func (r *sqliteCalendarRepository) getOne(ctx context.Context, query string, args ...any) (*domain.CalendarEntry, error) {
	var payload []byte
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var entry domain.CalendarEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("decode calendar entry: %w", err)
	}
	return &entry, nil
}

func (r *sqliteCalendarRepository) ListBySubjectAndRange(ctx context.Context, subjectID primitive.ObjectID, from, to time.Time) ([]domain.CalendarEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payload FROM calendar_entries WHERE kind = ? AND subject_id = ? AND date >= ? AND date <= ? ORDER BY date`,
		string(r.kind), subjectID.Hex(), domain.DateOnly(from).Format(domain.DateLayout), domain.DateOnly(to).Format(domain.DateLayout))
	if err != nil {
		return nil, err
	}
	return scanPayloads[domain.CalendarEntry](rows)
}

// UpdateContent rewrites the entry's content; identity columns never change.
func (r *sqliteCalendarRepository) UpdateContent(ctx context.Context, entry *domain.CalendarEntry) error {
	stored, err := r.GetByID(ctx, entry.ID)
	if err != nil {
		return err
	}
	entry.UpdatedAt = time.Now().UTC()
	next := entry.Clone()
	next.Kind = stored.Kind
	next.SubjectID = stored.SubjectID
	next.Date = stored.Date
	next.CreatedAt = stored.CreatedAt

	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode calendar entry: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE calendar_entries SET payload = ? WHERE id = ? AND kind = ?`,
		payload, entry.ID.Hex(), string(r.kind))
	if err != nil {
		return fmt.Errorf("update calendar entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
