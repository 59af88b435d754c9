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

type sqliteLibraryRepository struct {
	db   *sql.DB
	kind domain.PlanKind
}

// NewSQLiteLibraryRepository creates a library repository scoped to one plan kind.
func NewSQLiteLibraryRepository(db *sql.DB, kind domain.PlanKind) repository.LibraryRepository {
	return &sqliteLibraryRepository{db: db, kind: kind}
}

func (r *sqliteLibraryRepository) Create(ctx context.Context, item *domain.LibraryItem) (primitive.ObjectID, error) {
	if item.Name == "" || item.OwnerID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("library item name and owner ID are required")
	}
	item.ID = primitive.NewObjectID()
	item.Kind = r.kind
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	payload, err := json.Marshal(item)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("encode library item: %w", err)
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO library_items(id, kind, owner_id, name, payload) VALUES(?,?,?,?,?)`,
		item.ID.Hex(), string(r.kind), item.OwnerID.Hex(), item.Name, payload); err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert library item: %w", err)
	}
	return item.ID, nil
}

func (r *sqliteLibraryRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.LibraryItem, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM library_items WHERE id = ? AND kind = ?`, id.Hex(), string(r.kind)).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var item domain.LibraryItem
	if err := json.Unmarshal(payload, &item); err != nil {
		return nil, fmt.Errorf("decode library item: %w", err)
	}
	return &item, nil
}

func (r *sqliteLibraryRepository) GetByOwnerID(ctx context.Context, ownerID primitive.ObjectID) ([]domain.LibraryItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM library_items WHERE kind = ? AND owner_id = ? ORDER BY name`,
		string(r.kind), ownerID.Hex())
	if err != nil {
		return nil, err
	}
	return scanPayloads[domain.LibraryItem](rows)
}

func (r *sqliteLibraryRepository) Update(ctx context.Context, item *domain.LibraryItem) error {
	stored, err := r.GetByID(ctx, item.ID)
	if err != nil {
		return err
	}
	stored.Name = item.Name
	stored.Description = item.Description
	stored.Category = item.Category
	stored.Defaults = item.Defaults.Clone()
	stored.UpdatedAt = time.Now().UTC()
	item.UpdatedAt = stored.UpdatedAt

	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode library item: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE library_items SET name = ?, payload = ? WHERE id = ?`,
		stored.Name, payload, stored.ID.Hex()); err != nil {
		return fmt.Errorf("update library item: %w", err)
	}
	return nil
}
