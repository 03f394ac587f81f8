package profile

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Create(ctx context.Context, id uuid.UUID, email string) error
	Upsert(ctx context.Context, id uuid.UUID, email, fullName string) (*Profile, error)
}
