package repository

import (
	"fmt"
	"sort"

	"swapmarket/internal/domain/entity"
	"swapmarket/internal/domain/service"
	"swapmarket/pkg/errors"
)

// checkExpectedStatus guards item mutations against an offer that moved on
// since the caller read it.
func checkExpectedStatus(offer *entity.Offer, expected entity.OfferStatus) error {
	if offer.Status != expected {
		return errors.Conflict(fmt.Sprintf("Offer is %s now, reload it and try again", offer.Status))
	}
	return nil
}

func sortItems(items []*entity.OfferItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].DateCreated.Equal(items[j].DateCreated) {
			return items[i].ID < items[j].ID
		}
		return items[i].DateCreated.Before(items[j].DateCreated)
	})
}

func checkDuplicateProduct(items []*entity.OfferItem, productID string) error {
	for _, it := range items {
		if it.ItemID == productID {
			return errors.Conflict("This product is already part of the offer")
		}
	}
	return nil
}

// planDeletion splits items around offerItemID and reports whether removing
// it leaves one side of the offer empty.
func planDeletion(offer *entity.Offer, items []*entity.OfferItem, offerItemID string) (remaining []*entity.OfferItem, cascade bool, err error) {
	found := false
	remaining = make([]*entity.OfferItem, 0, len(items))
	for _, it := range items {
		if it.ID == offerItemID {
			found = true
			continue
		}
		remaining = append(remaining, it)
	}
	if !found {
		return nil, false, errors.NotFound("Offer item", nil)
	}

	sender, receiver := service.CountBySide(remaining, offer.FromUserID, offer.ToUserID)
	if sender == 0 || receiver == 0 {
		if !entity.CanTransition(offer.Status, entity.OfferRejected) {
			return nil, false, errors.InvalidTransition(string(offer.Status), string(entity.OfferRejected))
		}
		return remaining, true, nil
	}
	return remaining, false, nil
}
