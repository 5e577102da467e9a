package usecase

import (
	"context"

	"swapmarket/internal/domain/entity"
	"swapmarket/internal/domain/repository"
	"swapmarket/internal/domain/service"
	"swapmarket/pkg/errors"
	"swapmarket/pkg/logger"
)

type OfferUseCase struct {
	offerRepo   repository.OfferRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	publisher   EventPublisher
}

func NewOfferUseCase(
	offerRepo repository.OfferRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	publisher EventPublisher,
) *OfferUseCase {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &OfferUseCase{
		offerRepo:   offerRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		publisher:   publisher,
	}
}

type OfferItemInput struct {
	ItemID   string
	Quantity int
}

type CreateOfferInput struct {
	ToUserID string
	// OfferedItems are the sender's own products.
	OfferedItems []OfferItemInput
	// RequestedItems are products of the receiver.
	RequestedItems []OfferItemInput
}

// DeleteItemResult tells the caller whether removing the item rejected the whole offer.
type DeleteItemResult struct {
	Offer    *entity.Offer `json:"offer"`
	Rejected bool          `json:"rejected"`
}

func (uc *OfferUseCase) CreateOffer(ctx context.Context, fromUserID string, input CreateOfferInput) (*entity.Offer, error) {
	if input.ToUserID == "" {
		return nil, errors.BadRequest("Recipient is required", nil)
	}
	if input.ToUserID == fromUserID {
		return nil, errors.BadRequest("You cannot make an offer to yourself", nil)
	}
	if len(input.OfferedItems) == 0 || len(input.RequestedItems) == 0 {
		return nil, errors.BadRequest("Both sides of an offer need at least one item", nil)
	}

	if _, err := uc.userRepo.GetByID(ctx, input.ToUserID); err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return nil, errors.NotFound("Recipient", err)
		}
		return nil, err
	}

	existing, err := uc.offerRepo.FindActiveBetween(ctx, fromUserID, input.ToUserID)
	if err == nil && existing != nil {
		return nil, errors.Conflict("An active offer already exists between these users")
	}
	if err != nil && !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	var items []*entity.OfferItem
	var lines []service.PricedLine
	seen := make(map[string]bool)

	add := func(inputs []OfferItemInput, ownerID string) error {
		for _, in := range inputs {
			if seen[in.ItemID] {
				return errors.BadRequest("The same product cannot be added twice", nil)
			}
			seen[in.ItemID] = true

			product, quantity, err := uc.validateItem(ctx, in, ownerID)
			if err != nil {
				return err
			}
			items = append(items, &entity.OfferItem{
				ItemID:    product.ID,
				OfferedBy: ownerID,
				Quantity:  quantity,
			})
			lines = append(lines, service.PricedLine{
				OfferedBy:         ownerID,
				Price:             product.Price,
				Quantity:          quantity,
				AvailableQuantity: product.Quantity,
			})
		}
		return nil
	}
	if err := add(input.OfferedItems, fromUserID); err != nil {
		return nil, err
	}
	if err := add(input.RequestedItems, input.ToUserID); err != nil {
		return nil, err
	}

	offer := &entity.Offer{
		FromUserID:     fromUserID,
		ToUserID:       input.ToUserID,
		Status:         entity.OfferPending,
		CashAdjustment: service.CalculateCashAdjustment(lines, fromUserID, input.ToUserID),
	}

	if err := uc.offerRepo.Create(ctx, offer, items); err != nil {
		return nil, err
	}

	logger.Info("Offer %s created by %s for %s (cash adjustment %.2f)", offer.ID, fromUserID, input.ToUserID, offer.CashAdjustment)
	uc.publisher.PublishOfferUpdate(offer, "created", fromUserID)
	return offer, nil
}

func (uc *OfferUseCase) AddItem(ctx context.Context, userID, offerID string, input OfferItemInput) (*entity.OfferItem, error) {
	offer, _, err := loadOfferForParty(ctx, uc.offerRepo, offerID, userID)
	if err != nil {
		return nil, err
	}
	if offer.Status != entity.OfferPending {
		return nil, errors.Conflict("Items can only be added to a pending offer")
	}

	product, quantity, err := uc.validateItem(ctx, input, userID)
	if err != nil {
		return nil, err
	}

	item := &entity.OfferItem{
		OfferID:   offerID,
		ItemID:    product.ID,
		OfferedBy: userID,
		Quantity:  quantity,
	}

	updated, err := uc.offerRepo.AddItem(ctx, item, entity.OfferPending, uc.priceOffer)
	if err != nil {
		return nil, err
	}

	uc.publisher.PublishOfferUpdate(updated, "item_added", userID)
	return item, nil
}

// Accept moves a pending offer to accepted. Only the receiver may accept.
func (uc *OfferUseCase) Accept(ctx context.Context, userID, offerID string) (*entity.Offer, error) {
	offer, side, err := loadOfferForParty(ctx, uc.offerRepo, offerID, userID)
	if err != nil {
		return nil, err
	}
	if side != entity.SideReceiver {
		return nil, errors.Forbidden("Only the receiver can accept an offer", nil)
	}
	if offer.Status != entity.OfferPending {
		return nil, errors.InvalidTransition(string(offer.Status), string(entity.OfferAccepted))
	}

	return uc.transition(ctx, offer, entity.OfferAccepted, userID)
}

// Reject moves a pending offer to rejected. Either party may reject; the
// sender withdrawing is a rejection too.
func (uc *OfferUseCase) Reject(ctx context.Context, userID, offerID string) (*entity.Offer, error) {
	offer, _, err := loadOfferForParty(ctx, uc.offerRepo, offerID, userID)
	if err != nil {
		return nil, err
	}
	if offer.Status != entity.OfferPending {
		return nil, errors.InvalidTransition(string(offer.Status), string(entity.OfferRejected))
	}

	return uc.transition(ctx, offer, entity.OfferRejected, userID)
}

// Complete closes an accepted offer. Only the sender may complete it.
func (uc *OfferUseCase) Complete(ctx context.Context, userID, offerID string) (*entity.Offer, error) {
	offer, side, err := loadOfferForParty(ctx, uc.offerRepo, offerID, userID)
	if err != nil {
		return nil, err
	}
	if side != entity.SideSender {
		return nil, errors.Forbidden("Only the sender can complete an offer", nil)
	}
	if offer.Status != entity.OfferAccepted {
		return nil, errors.InvalidTransition(string(offer.Status), string(entity.OfferCompleted))
	}

	return uc.transition(ctx, offer, entity.OfferCompleted, userID)
}

// DeleteItem removes one line from a pending or accepted offer. When the
// removal leaves either side without items the offer is rejected instead and
// the lines are kept for history.
func (uc *OfferUseCase) DeleteItem(ctx context.Context, userID, offerID, offerItemID string) (*DeleteItemResult, error) {
	offer, _, err := loadOfferForParty(ctx, uc.offerRepo, offerID, userID)
	if err != nil {
		return nil, err
	}
	if !offer.Status.IsActive() {
		return nil, errors.Conflict("Items can only be removed from a pending or accepted offer")
	}

	deletion, err := uc.offerRepo.DeleteItem(ctx, offerID, offerItemID, offer.Status, uc.priceOffer)
	if err != nil {
		return nil, err
	}

	if deletion.Rejected {
		logger.Info("Offer %s lost every item on one side; rejected by %s", offerID, userID)
		uc.publisher.PublishOfferUpdate(deletion.Offer, string(entity.OfferRejected), userID)
		return &DeleteItemResult{Offer: deletion.Offer, Rejected: true}, nil
	}

	uc.publisher.PublishOfferUpdate(deletion.Offer, "item_removed", userID)
	return &DeleteItemResult{Offer: deletion.Offer}, nil
}

// DeleteFinally removes a rejected or completed offer from the caller's
// view. Once both parties removed it the record is deleted.
func (uc *OfferUseCase) DeleteFinally(ctx context.Context, userID, offerID string) (bool, error) {
	offer, side, err := loadOfferForParty(ctx, uc.offerRepo, offerID, userID)
	if err != nil {
		return false, err
	}
	if !offer.Status.IsTerminal() {
		return false, errors.Conflict("Only rejected or completed offers can be deleted")
	}

	updated, err := uc.offerRepo.MarkDeleted(ctx, offerID, side)
	if err != nil {
		return false, err
	}

	if updated.DeletedBySender && updated.DeletedByReceiver {
		if err := uc.offerRepo.Delete(ctx, offerID); err != nil {
			return false, err
		}
		logger.Info("Offer %s deleted by both parties", offerID)
		return true, nil
	}

	return false, nil
}

func (uc *OfferUseCase) transition(ctx context.Context, offer *entity.Offer, to entity.OfferStatus, actorID string) (*entity.Offer, error) {
	if !entity.CanTransition(offer.Status, to) {
		return nil, errors.InvalidTransition(string(offer.Status), string(to))
	}

	updated, err := uc.offerRepo.UpdateStatus(ctx, offer.ID, offer.Status, to)
	if err != nil {
		logger.Error("Failed to move offer %s from %s to %s: %v", offer.ID, offer.Status, to, err)
		return nil, err
	}

	logger.Info("Offer %s moved from %s to %s by %s", offer.ID, offer.Status, to, actorID)
	uc.publisher.PublishOfferUpdate(updated, string(to), actorID)
	return updated, nil
}

func (uc *OfferUseCase) validateItem(ctx context.Context, in OfferItemInput, ownerID string) (*entity.Product, int, error) {
	if in.ItemID == "" {
		return nil, 0, errors.BadRequest("Item id is required", nil)
	}
	if in.Quantity < 0 {
		return nil, 0, errors.BadRequest("Quantity must be positive", nil)
	}

	product, err := uc.productRepo.GetByID(ctx, in.ItemID)
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return nil, 0, errors.NotFound("Product", err)
		}
		return nil, 0, err
	}
	if product.UserID != ownerID {
		return nil, 0, errors.BadRequest("Product does not belong to the party offering it", nil)
	}

	quantity := in.Quantity
	if quantity == 0 {
		quantity = 1
	}
	stock := product.Quantity
	if stock <= 0 {
		stock = 1
	}
	if quantity > stock {
		return nil, 0, errors.BadRequest("Quantity exceeds the available stock", nil)
	}

	return product, quantity, nil
}

// priceOffer is the cash adjustment of offer holding items at current
// product prices.
func (uc *OfferUseCase) priceOffer(ctx context.Context, offer *entity.Offer, items []*entity.OfferItem) (float64, error) {
	lines, err := uc.priceLines(ctx, items)
	if err != nil {
		return 0, err
	}
	return service.CalculateCashAdjustment(lines, offer.FromUserID, offer.ToUserID), nil
}

// priceLines joins items with their product prices. A missing product fails
// the whole computation so a wrong adjustment is never stored.
func (uc *OfferUseCase) priceLines(ctx context.Context, items []*entity.OfferItem) ([]service.PricedLine, error) {
	lines := make([]service.PricedLine, 0, len(items))
	for _, it := range items {
		product, err := uc.productRepo.GetByID(ctx, it.ItemID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, service.PricedLine{
			OfferedBy:         it.OfferedBy,
			Price:             product.Price,
			Quantity:          it.Quantity,
			Qty:               it.Qty,
			AvailableQuantity: product.Quantity,
		})
	}
	return lines, nil
}

// loadOfferForParty fetches an offer and the caller's side in it.
func loadOfferForParty(ctx context.Context, repo repository.OfferRepository, offerID, userID string) (*entity.Offer, entity.Side, error) {
	offer, err := repo.GetByID(ctx, offerID)
	if err != nil {
		return nil, "", err
	}
	side, ok := offer.SideOf(userID)
	if !ok {
		return nil, "", errors.Forbidden("You are not a party to this offer", nil)
	}
	return offer, side, nil
}
