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

type sqliteTrackingRepository struct {
	db   *sql.DB
	kind domain.PlanKind
}

// NewSQLiteTrackingRepository creates a tracking repository scoped to one plan kind.
func NewSQLiteTrackingRepository(db *sql.DB, kind domain.PlanKind) repository.TrackingRepository {
	return &sqliteTrackingRepository{db: db, kind: kind}
}

func optionalHex(id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	return id.Hex()
}

// Upsert updates the record stored under the key, or inserts it. An insert
// that loses a race against another writer falls back to the update path.
func (r *sqliteTrackingRepository) Upsert(ctx context.Context, record *domain.TrackingRecord) (bool, error) {
	if record.EntryID == primitive.NilObjectID || record.SubjectID == primitive.NilObjectID {
		return false, errors.New("tracking record requires entryId and subjectId")
	}
	now := time.Now().UTC()
	record.Kind = r.kind
	record.TrackedDate = domain.DateOnly(record.TrackedDate)
	record.UpdatedAt = now

	existing, err := r.GetByKey(ctx, record.TrackingKey)
	switch {
	case err == nil:
		return false, r.update(ctx, existing, record)
	case !errors.Is(err, repository.ErrNotFound):
		return false, err
	}

	record.ID = primitive.NewObjectID()
	record.CreatedAt = now
	payload, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("encode tracking record: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO tracking_records(id, kind, subject_id, entry_id, session_id, item_id, tracked_date, payload) VALUES(?,?,?,?,?,?,?,?)`,
		record.ID.Hex(), string(r.kind), record.SubjectID.Hex(), record.EntryID.Hex(),
		optionalHex(record.SessionID), optionalHex(record.ItemID), record.TrackedDate.Format(domain.DateLayout), payload)
	if isUniqueViolation(err) {
		existing, err = r.GetByKey(ctx, record.TrackingKey)
		if err != nil {
			return false, err
		}
		return false, r.update(ctx, existing, record)
	}
	if err != nil {
		return false, fmt.Errorf("insert tracking record: %w", err)
	}
	return true, nil
}

func (r *sqliteTrackingRepository) update(ctx context.Context, existing, record *domain.TrackingRecord) error {
	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode tracking record: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE tracking_records SET tracked_date = ?, payload = ? WHERE id = ?`,
		record.TrackedDate.Format(domain.DateLayout), payload, record.ID.Hex()); err != nil {
		return fmt.Errorf("update tracking record: %w", err)
	}
	return nil
}

func (r *sqliteTrackingRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrackingRecord, error) {
	return r.getOne(ctx, `SELECT payload FROM tracking_records WHERE id = ? AND kind = ?`, id.Hex(), string(r.kind))
}

func (r *sqliteTrackingRepository) GetByKey(ctx context.Context, key domain.TrackingKey) (*domain.TrackingRecord, error) {
	return r.getOne(ctx, `SELECT payload FROM tracking_records WHERE entry_id = ? AND session_id = ? AND item_id = ?`,
		key.EntryID.Hex(), optionalHex(key.SessionID), optionalHex(key.ItemID))
}

func (r *sqliteTrackingRepository) getOne(ctx context.Context, query string, args ...any) (*domain.TrackingRecord, error) {
	var payload []byte
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var record domain.TrackingRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("decode tracking record: %w", err)
	}
	return &record, nil
}

func (r *sqliteTrackingRepository) ListByEntry(ctx context.Context, entryID primitive.ObjectID) ([]domain.TrackingRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM tracking_records WHERE entry_id = ? ORDER BY rowid`, entryID.Hex())
	if err != nil {
		return nil, err
	}
	return scanPayloads[domain.TrackingRecord](rows)
}

func (r *sqliteTrackingRepository) ListBySubjectAndRange(ctx context.Context, subjectID primitive.ObjectID, from, to time.Time) ([]domain.TrackingRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payload FROM tracking_records WHERE kind = ? AND subject_id = ? AND tracked_date >= ? AND tracked_date <= ? ORDER BY tracked_date, rowid`,
		string(r.kind), subjectID.Hex(), domain.DateOnly(from).Format(domain.DateLayout), domain.DateOnly(to).Format(domain.DateLayout))
	if err != nil {
		return nil, err
	}
	return scanPayloads[domain.TrackingRecord](rows)
}
