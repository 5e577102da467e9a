package repository

import (
	"context"

	"swapmarket/internal/domain/entity"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	GetByOfferAndReviewer(ctx context.Context, offerID, reviewerID string) (*entity.Review, error)
	ListByTargetID(ctx context.Context, targetID string, limit, offset int) ([]*entity.Review, int64, error)
}
