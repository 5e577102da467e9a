package usecase

import "swapmarket/internal/domain/entity"

// EventPublisher pushes negotiation events to connected parties.
type EventPublisher interface {
	PublishOfferUpdate(offer *entity.Offer, action, actorID string)
	PublishMessage(message *entity.Message)
}

type noopPublisher struct{}

func (noopPublisher) PublishOfferUpdate(*entity.Offer, string, string) {}
func (noopPublisher) PublishMessage(*entity.Message)                   {}

// UserCacheInvalidator drops cached user summaries after the stored user
// changes.
type UserCacheInvalidator interface {
	InvalidateUser(userID string)
}

type noopUserCache struct{}

func (noopUserCache) InvalidateUser(string) {}
