package repository

import (
	"context"

	"swapmarket/internal/domain/entity"
)

type OfferRepository interface {
	// Create stores the offer together with its initial items.
	Create(ctx context.Context, offer *entity.Offer, items []*entity.OfferItem) error
	GetByID(ctx context.Context, id string) (*entity.Offer, error)
	ListByFromUser(ctx context.Context, userID string) ([]*entity.Offer, error)
	ListByToUser(ctx context.Context, userID string) ([]*entity.Offer, error)
	CountByToUserAndStatus(ctx context.Context, userID string, status entity.OfferStatus) (int64, error)
	// FindActiveBetween returns the pending or accepted offer connecting the
	// two users in either direction, or a NOT_FOUND error.
	FindActiveBetween(ctx context.Context, userA, userB string) (*entity.Offer, error)

	// UpdateStatus moves the offer from one status to another atomically. It
	// fails with INVALID_TRANSITION when the stored status is not from.
	UpdateStatus(ctx context.Context, id string, from, to entity.OfferStatus) (*entity.Offer, error)
	MarkDeleted(ctx context.Context, id string, side entity.Side) (*entity.Offer, error)
	Delete(ctx context.Context, id string) error

	ListItems(ctx context.Context, offerID string) ([]*entity.OfferItem, error)
	// AddItem stores the item and the cash adjustment priced over the stored
	// items plus the new one. It fails with CONFLICT when the offer is no
	// longer in the expected status or already holds the product.
	AddItem(ctx context.Context, item *entity.OfferItem, expected entity.OfferStatus, price PriceFunc) (*entity.Offer, error)
	// DeleteItem removes the item and stores the re-priced cash adjustment.
	// When the removal would leave a side without items the offer is rejected
	// instead and every item is kept. Status check, recount and write happen
	// in one transaction.
	DeleteItem(ctx context.Context, offerID, offerItemID string, expected entity.OfferStatus, price PriceFunc) (*ItemDeletion, error)
}

// PriceFunc computes the cash adjustment of offer holding items. It may run
// more than once when a transaction retries.
type PriceFunc func(ctx context.Context, offer *entity.Offer, items []*entity.OfferItem) (float64, error)

// ItemDeletion is the outcome of OfferRepository.DeleteItem.
type ItemDeletion struct {
	Offer    *entity.Offer
	Rejected bool
}
