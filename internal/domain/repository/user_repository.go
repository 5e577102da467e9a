package repository

import (
	"context"

	"swapmarket/internal/domain/entity"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	// UpdateRating stores the new rating aggregates of a user.
	UpdateRating(ctx context.Context, id string, rating float64, count int) error
}
