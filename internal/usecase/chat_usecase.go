package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"swapmarket/internal/domain/entity"
	"swapmarket/internal/domain/repository"
	"swapmarket/internal/infrastructure/ratelimit"
	"swapmarket/pkg/errors"
	"swapmarket/pkg/logger"
)

// MaxMessageLength bounds one chat message after trimming.
const MaxMessageLength = 2000

type ChatUseCase struct {
	offerRepo   repository.OfferRepository
	messageRepo repository.MessageRepository
	rateLimiter *ratelimit.RateLimiter
	publisher   EventPublisher
}

func NewChatUseCase(
	offerRepo repository.OfferRepository,
	messageRepo repository.MessageRepository,
	rateLimiter *ratelimit.RateLimiter,
	publisher EventPublisher,
) *ChatUseCase {
	if rateLimiter == nil {
		rateLimiter = ratelimit.NewRateLimiter()
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &ChatUseCase{
		offerRepo:   offerRepo,
		messageRepo: messageRepo,
		rateLimiter: rateLimiter,
		publisher:   publisher,
	}
}

// SendMessage appends a message to the offer's conversation. The recipient is
// always the other party of the offer.
func (uc *ChatUseCase) SendMessage(ctx context.Context, userID, offerID, text string) (*entity.Message, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		return nil, errors.BadRequest("Message cannot be empty", nil)
	}
	if len(content) > MaxMessageLength {
		return nil, errors.BadRequest(fmt.Sprintf("Message cannot be longer than %d characters", MaxMessageLength), nil)
	}

	if allowed, wait := uc.rateLimiter.Allow(userID, "send_message"); !allowed {
		logger.Warn("User %s is sending messages too fast", userID)
		return nil, errors.TooManyRequests(fmt.Sprintf("Too many messages, try again in %s", wait.Round(time.Second)))
	}

	offer, _, err := loadOfferForParty(ctx, uc.offerRepo, offerID, userID)
	if err != nil {
		return nil, err
	}

	message := &entity.Message{
		OfferID:    offer.ID,
		FromUserID: userID,
		ToUserID:   offer.PartnerOf(userID),
		Message:    content,
	}

	if err := uc.messageRepo.Create(ctx, message); err != nil {
		logger.Error("Failed to store message for offer %s: %v", offerID, err)
		return nil, err
	}

	uc.publisher.PublishMessage(message)
	return message, nil
}

// GetMessages returns the conversation of an offer, oldest first.
func (uc *ChatUseCase) GetMessages(ctx context.Context, userID, offerID string) ([]*entity.Message, error) {
	if _, _, err := loadOfferForParty(ctx, uc.offerRepo, offerID, userID); err != nil {
		return nil, err
	}

	messages, err := uc.messageRepo.ListByOfferID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []*entity.Message{}
	}
	return messages, nil
}

// ListAllMessages is the moderation listing. Callers are checked by the admin middleware.
func (uc *ChatUseCase) ListAllMessages(ctx context.Context, limit, offset int) ([]*entity.Message, int64, error) {
	return uc.messageRepo.ListAll(ctx, limit, offset)
}
