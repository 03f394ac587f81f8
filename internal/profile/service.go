package profile

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/SanchitCoder/PortIQ/internal/logger"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

var ErrEmptyName = errors.New("full name is required")

var sanitizer = bluemonday.StrictPolicy()

type Service interface {
	// Ensure returns the caller's profile, creating an empty one first if
	// the user has never been seen.
	Ensure(ctx context.Context, id uuid.UUID, email string) (*Profile, error)
	UpdateName(ctx context.Context, id uuid.UUID, email, fullName string) (*Profile, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Ensure(ctx context.Context, id uuid.UUID, email string) (*Profile, error) {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check profile: %w", err)
	}
	if !exists {
		if err := s.repo.Create(ctx, id, email); err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		logger.Info("profile created", "user_id", id.String())
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p == nil {
		return &Profile{ID: id, Email: email}, nil
	}
	return p, nil
}

func (s *service) UpdateName(ctx context.Context, id uuid.UUID, email, fullName string) (*Profile, error) {
	name := strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(fullName)))
	if name == "" {
		return nil, ErrEmptyName
	}

	p, err := s.repo.Upsert(ctx, id, email, name)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}
