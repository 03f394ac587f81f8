package profile

import (
	"context"
	"database/sql"
	"errors"

	"github.com/SanchitCoder/PortIQ/internal/db"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// GetByID returns nil without error when the profile does not exist.
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var p Profile
	err := r.db.GetContext(ctx, &p, `
		SELECT id, email, full_name, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return db.Exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM profiles WHERE id = $1)`, id)
}

func (r *repository) Create(ctx context.Context, id uuid.UUID, email string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, id, email)
	return err
}

func (r *repository) Upsert(ctx context.Context, id uuid.UUID, email, fullName string) (*Profile, error) {
	var p Profile
	err := r.db.GetContext(ctx, &p, `
		INSERT INTO profiles (id, email, full_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id)
		DO UPDATE SET full_name = EXCLUDED.full_name,
		              email = CASE WHEN EXCLUDED.email = '' THEN profiles.email ELSE EXCLUDED.email END,
		              updated_at = NOW()
		RETURNING id, email, full_name, created_at, updated_at
	`, id, email, fullName)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
