package repository

import (
	"context"
	stderrors "errors"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"swapmarket/internal/domain/entity"
	"swapmarket/internal/domain/repository"
	"swapmarket/pkg/errors"
)

const (
	offersCollection = "offers"
	itemsCollection  = "items"
)

type firestoreOfferRepository struct {
	client *firestore.Client
}

func NewFirestoreOfferRepository(client *firestore.Client) repository.OfferRepository {
	return &firestoreOfferRepository{
		client: client,
	}
}

func (r *firestoreOfferRepository) offerRef(id string) *firestore.DocumentRef {
	return r.client.Collection(offersCollection).Doc(id)
}

func (r *firestoreOfferRepository) Create(ctx context.Context, offer *entity.Offer, items []*entity.OfferItem) error {
	if offer.ID == "" {
		offer.ID = uuid.New().String()
	}

	now := time.Now()
	offer.DateCreated = now
	offer.DateUpdated = now

	ref := r.offerRef(offer.ID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(ref, offer); err != nil {
			return err
		}
		for _, item := range items {
			if item.ID == "" {
				item.ID = uuid.New().String()
			}
			item.OfferID = offer.ID
			item.DateCreated = now
			if err := tx.Create(ref.Collection(itemsCollection).Doc(item.ID), item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Internal("Failed to create offer", err)
	}

	return nil
}

func (r *firestoreOfferRepository) GetByID(ctx context.Context, id string) (*entity.Offer, error) {
	doc, err := r.offerRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Offer", err)
		}
		return nil, errors.Internal("Failed to get offer", err)
	}

	var offer entity.Offer
	if err := doc.DataTo(&offer); err != nil {
		return nil, errors.Internal("Failed to parse offer data", err)
	}

	return &offer, nil
}

func (r *firestoreOfferRepository) ListByFromUser(ctx context.Context, userID string) ([]*entity.Offer, error) {
	query := r.client.Collection(offersCollection).
		Where("fromUserId", "==", userID).
		OrderBy("dateCreated", firestore.Desc)
	return r.collect(query.Documents(ctx))
}

func (r *firestoreOfferRepository) ListByToUser(ctx context.Context, userID string) ([]*entity.Offer, error) {
	query := r.client.Collection(offersCollection).
		Where("toUserId", "==", userID).
		OrderBy("dateCreated", firestore.Desc)
	return r.collect(query.Documents(ctx))
}

func (r *firestoreOfferRepository) CountByToUserAndStatus(ctx context.Context, userID string, offerStatus entity.OfferStatus) (int64, error) {
	docs, err := r.client.Collection(offersCollection).
		Where("toUserId", "==", userID).
		Where("statusOffer", "==", string(offerStatus)).
		Documents(ctx).GetAll()
	if err != nil {
		return 0, errors.Internal("Failed to count offers", err)
	}

	var count int64
	for _, doc := range docs {
		var offer entity.Offer
		if err := doc.DataTo(&offer); err != nil {
			continue
		}
		if !offer.DeletedByReceiver {
			count++
		}
	}
	return count, nil
}

func (r *firestoreOfferRepository) FindActiveBetween(ctx context.Context, userA, userB string) (*entity.Offer, error) {
	active := []string{string(entity.OfferPending), string(entity.OfferAccepted)}

	for _, pair := range [][2]string{{userA, userB}, {userB, userA}} {
		iter := r.client.Collection(offersCollection).
			Where("fromUserId", "==", pair[0]).
			Where("toUserId", "==", pair[1]).
			Where("statusOffer", "in", active).
			Limit(1).
			Documents(ctx)
		offers, err := r.collect(iter)
		if err != nil {
			return nil, err
		}
		if len(offers) > 0 {
			return offers[0], nil
		}
	}

	return nil, errors.NotFound("Active offer", nil)
}

func (r *firestoreOfferRepository) UpdateStatus(ctx context.Context, id string, from, to entity.OfferStatus) (*entity.Offer, error) {
	ref := r.offerRef(id)
	var updated entity.Offer

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Offer", err)
			}
			return err
		}
		if err := doc.DataTo(&updated); err != nil {
			return errors.Internal("Failed to parse offer data", err)
		}
		if updated.Status != from || !entity.CanTransition(from, to) {
			return errors.InvalidTransition(string(updated.Status), string(to))
		}

		now := time.Now()
		updated.Status = to
		updated.DateUpdated = now
		return tx.Update(ref, []firestore.Update{
			{Path: "statusOffer", Value: string(to)},
			{Path: "dateUpdated", Value: now},
		})
	})
	if err != nil {
		return nil, wrapTxError("Failed to update offer status", err)
	}

	return &updated, nil
}

func (r *firestoreOfferRepository) MarkDeleted(ctx context.Context, id string, side entity.Side) (*entity.Offer, error) {
	ref := r.offerRef(id)
	var updated entity.Offer

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Offer", err)
			}
			return err
		}
		if err := doc.DataTo(&updated); err != nil {
			return errors.Internal("Failed to parse offer data", err)
		}

		path := "deletedByReceiver"
		if side == entity.SideSender {
			path = "deletedBySender"
			updated.DeletedBySender = true
		} else {
			updated.DeletedByReceiver = true
		}
		updated.DateUpdated = time.Now()
		return tx.Update(ref, []firestore.Update{
			{Path: path, Value: true},
			{Path: "dateUpdated", Value: updated.DateUpdated},
		})
	})
	if err != nil {
		return nil, wrapTxError("Failed to hide offer", err)
	}

	return &updated, nil
}

func (r *firestoreOfferRepository) Delete(ctx context.Context, id string) error {
	ref := r.offerRef(id)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		items, err := tx.Documents(ref.Collection(itemsCollection)).GetAll()
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := tx.Delete(item.Ref); err != nil {
				return err
			}
		}
		return tx.Delete(ref)
	})
	if err != nil {
		return errors.Internal("Failed to delete offer", err)
	}

	return nil
}

func (r *firestoreOfferRepository) ListItems(ctx context.Context, offerID string) ([]*entity.OfferItem, error) {
	iter := r.offerRef(offerID).Collection(itemsCollection).
		OrderBy("dateCreated", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var items []*entity.OfferItem
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate offer items", err)
		}

		var item entity.OfferItem
		if err := doc.DataTo(&item); err != nil {
			log.Printf("Error parsing offer item %s of offer %s: %v", doc.Ref.ID, offerID, err)
			continue
		}
		item.ID = doc.Ref.ID
		items = append(items, &item)
	}

	return items, nil
}

// readForUpdate loads the offer and all its items inside tx.
func (r *firestoreOfferRepository) readForUpdate(tx *firestore.Transaction, ref *firestore.DocumentRef) (*entity.Offer, []*entity.OfferItem, error) {
	doc, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil, errors.NotFound("Offer", err)
		}
		return nil, nil, err
	}
	var offer entity.Offer
	if err := doc.DataTo(&offer); err != nil {
		return nil, nil, errors.Internal("Failed to parse offer data", err)
	}
	offer.ID = ref.ID

	docs, err := tx.Documents(ref.Collection(itemsCollection)).GetAll()
	if err != nil {
		return nil, nil, err
	}
	items := make([]*entity.OfferItem, 0, len(docs))
	for _, d := range docs {
		var item entity.OfferItem
		if err := d.DataTo(&item); err != nil {
			return nil, nil, errors.Internal("Failed to parse offer item data", err)
		}
		item.ID = d.Ref.ID
		items = append(items, &item)
	}
	sortItems(items)

	return &offer, items, nil
}

func (r *firestoreOfferRepository) AddItem(ctx context.Context, item *entity.OfferItem, expected entity.OfferStatus, price repository.PriceFunc) (*entity.Offer, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	ref := r.offerRef(item.OfferID)
	var updated *entity.Offer

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		offer, items, err := r.readForUpdate(tx, ref)
		if err != nil {
			return err
		}
		if err := checkExpectedStatus(offer, expected); err != nil {
			return err
		}
		if err := checkDuplicateProduct(items, item.ItemID); err != nil {
			return err
		}

		item.DateCreated = time.Now()
		cash, err := price(ctx, offer, append(items, item))
		if err != nil {
			return err
		}

		if err := tx.Create(ref.Collection(itemsCollection).Doc(item.ID), item); err != nil {
			return err
		}
		offer.CashAdjustment = cash
		offer.DateUpdated = item.DateCreated
		updated = offer
		return tx.Update(ref, []firestore.Update{
			{Path: "cashAdjustment", Value: cash},
			{Path: "dateUpdated", Value: offer.DateUpdated},
		})
	})
	if err != nil {
		return nil, wrapTxError("Failed to add offer item", err)
	}

	return updated, nil
}

func (r *firestoreOfferRepository) DeleteItem(ctx context.Context, offerID, offerItemID string, expected entity.OfferStatus, price repository.PriceFunc) (*repository.ItemDeletion, error) {
	ref := r.offerRef(offerID)
	var result *repository.ItemDeletion

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		offer, items, err := r.readForUpdate(tx, ref)
		if err != nil {
			return err
		}
		if err := checkExpectedStatus(offer, expected); err != nil {
			return err
		}

		remaining, cascade, err := planDeletion(offer, items, offerItemID)
		if err != nil {
			return err
		}

		now := time.Now()
		offer.DateUpdated = now
		if cascade {
			offer.Status = entity.OfferRejected
			result = &repository.ItemDeletion{Offer: offer, Rejected: true}
			return tx.Update(ref, []firestore.Update{
				{Path: "statusOffer", Value: string(entity.OfferRejected)},
				{Path: "dateUpdated", Value: now},
			})
		}

		cash, err := price(ctx, offer, remaining)
		if err != nil {
			return err
		}
		if err := tx.Delete(ref.Collection(itemsCollection).Doc(offerItemID)); err != nil {
			return err
		}
		offer.CashAdjustment = cash
		result = &repository.ItemDeletion{Offer: offer}
		return tx.Update(ref, []firestore.Update{
			{Path: "cashAdjustment", Value: cash},
			{Path: "dateUpdated", Value: now},
		})
	})
	if err != nil {
		return nil, wrapTxError("Failed to delete offer item", err)
	}

	return result, nil
}

func (r *firestoreOfferRepository) collect(iter *firestore.DocumentIterator) ([]*entity.Offer, error) {
	defer iter.Stop()

	var offers []*entity.Offer
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate offers", err)
		}

		var offer entity.Offer
		if err := doc.DataTo(&offer); err != nil {
			log.Printf("Error parsing offer %s: %v", doc.Ref.ID, err)
			continue
		}
		offer.ID = doc.Ref.ID
		offers = append(offers, &offer)
	}

	return offers, nil
}

// wrapTxError keeps application errors raised inside a transaction and wraps
// everything else as an internal error.
func wrapTxError(message string, err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return errors.Internal(message, err)
}
