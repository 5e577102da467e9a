package repository

import (
	"context"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"swapmarket/internal/domain/entity"
	"swapmarket/internal/domain/repository"
	"swapmarket/pkg/errors"
)

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}

	message.DateCreated = time.Now()

	_, err := r.client.Collection("messages").Doc(message.ID).Set(ctx, message)
	if err != nil {
		return errors.Internal("Failed to create message", err)
	}

	return nil
}

func (r *firestoreMessageRepository) ListByOfferID(ctx context.Context, offerID string) ([]*entity.Message, error) {
	iter := r.client.Collection("messages").
		Where("offerId", "==", offerID).
		OrderBy("dateCreated", firestore.Asc).
		Documents(ctx)

	messages, err := readMessages(iter)
	if err != nil {
		log.Printf("Firestore error while listing messages for offer %s: %v", offerID, err)
		return nil, err
	}
	return messages, nil
}

func (r *firestoreMessageRepository) ListAll(ctx context.Context, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.client.Collection("messages").OrderBy("dateCreated", firestore.Desc)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("Failed to count messages", err)
	}
	total := int64(len(countDocs))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	messages, err := readMessages(query.Documents(ctx))
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func readMessages(iter *firestore.DocumentIterator) ([]*entity.Message, error) {
	defer iter.Stop()

	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return nil, errors.Internal("Failed to parse message data", err)
		}
		message.ID = doc.Ref.ID
		messages = append(messages, &message)
	}

	return messages, nil
}
