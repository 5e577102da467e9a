package repository

import (
	"context"

	"swapmarket/internal/domain/entity"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	ListByOfferID(ctx context.Context, offerID string) ([]*entity.Message, error)
	ListAll(ctx context.Context, limit, offset int) ([]*entity.Message, int64, error)
}
