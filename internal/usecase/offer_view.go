package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"swapmarket/internal/domain/entity"
	"swapmarket/internal/infrastructure/poller"
	"swapmarket/pkg/errors"
	"swapmarket/pkg/logger"
)

var (
	ErrEmptyMessage     = errors.BadRequest("Message cannot be empty", nil)
	ErrNoConversation   = errors.BadRequest("No offer selected", nil)
	DefaultPollInterval = 2 * time.Second
)

// OfferSource is what an OfferView reads offers from.
type OfferSource interface {
	ListSent(ctx context.Context, userID string) ([]*OfferSummary, error)
	ListReceived(ctx context.Context, userID string) ([]*OfferSummary, error)
	GetOffer(ctx context.Context, userID, offerID string) (*OfferSummary, error)
}

// ConversationSource is what an OfferView reads and writes messages through.
type ConversationSource interface {
	GetMessages(ctx context.Context, userID, offerID string) ([]*entity.Message, error)
	SendMessage(ctx context.Context, userID, offerID, text string) (*entity.Message, error)
}

type SnapshotKind string

const (
	OffersSnapshot       SnapshotKind = "offers_snapshot"
	ConversationSnapshot SnapshotKind = "conversation_snapshot"
)

// ViewSnapshot is the state of a view after one successful poll.
type ViewSnapshot struct {
	Kind     SnapshotKind      `json:"-"`
	Sent     []*OfferSummary   `json:"sent,omitempty"`
	Received []*OfferSummary   `json:"received,omitempty"`
	OfferID  string            `json:"offer_id,omitempty"`
	Offer    *OfferSummary     `json:"offer,omitempty"`
	Messages []*entity.Message `json:"messages,omitempty"`
}

// OfferView holds one user's negotiation screen: their offer lists and at
// most one selected conversation, each refreshed by its own poller. Local
// state is a cache that every successful poll replaces.
type OfferView struct {
	userID     string
	interval   time.Duration
	offers     OfferSource
	chat       ConversationSource
	onSnapshot func(ViewSnapshot)

	selectMu sync.Mutex

	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	closed     bool
	listPoller *poller.Poller
	convPoller *poller.Poller
	sent       []*OfferSummary
	received   []*OfferSummary
	selected   string
	offer      *OfferSummary
	messages   []*entity.Message
}

func NewOfferView(userID string, offers OfferSource, chat ConversationSource, interval time.Duration, onSnapshot func(ViewSnapshot)) *OfferView {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if onSnapshot == nil {
		onSnapshot = func(ViewSnapshot) {}
	}
	return &OfferView{
		userID:     userID,
		interval:   interval,
		offers:     offers,
		chat:       chat,
		onSnapshot: onSnapshot,
	}
}

// Start begins polling the offer lists. A conversation selected before Start
// begins polling too.
func (v *OfferView) Start(ctx context.Context) {
	v.selectMu.Lock()
	defer v.selectMu.Unlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed || v.ctx != nil {
		return
	}

	v.ctx, v.cancel = context.WithCancel(ctx)
	v.listPoller = poller.Start(v.ctx, v.interval, func(ctx context.Context) {
		v.RefreshOffers(ctx)
	})
	if v.selected != "" {
		v.convPoller = v.startConversation(v.selected)
	}
}

// Select switches the conversation. The previous conversation poller has
// exited before the new one starts. An empty id clears the selection.
func (v *OfferView) Select(offerID string) {
	v.selectMu.Lock()
	defer v.selectMu.Unlock()

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	old := v.convPoller
	v.convPoller = nil
	v.selected = offerID
	v.offer = nil
	v.messages = nil
	v.mu.Unlock()

	if old != nil {
		old.Stop()
	}

	if offerID == "" {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ctx != nil && !v.closed {
		v.convPoller = v.startConversation(offerID)
	}
}

func (v *OfferView) startConversation(offerID string) *poller.Poller {
	return poller.Start(v.ctx, v.interval, func(ctx context.Context) {
		v.refreshConversation(ctx, offerID)
	})
}

// Send posts a message to the selected conversation and appends it locally
// until the next poll replaces the list.
func (v *OfferView) Send(ctx context.Context, text string) (*entity.Message, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	v.mu.Lock()
	offerID := v.selected
	v.mu.Unlock()
	if offerID == "" {
		return nil, ErrNoConversation
	}

	message, err := v.chat.SendMessage(ctx, v.userID, offerID, content)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	if v.selected == offerID {
		v.messages = append(v.messages, message)
	}
	v.mu.Unlock()

	return message, nil
}

// RefreshOffers fetches both lists once. On failure the previous lists stay.
func (v *OfferView) RefreshOffers(ctx context.Context) error {
	sent, err := v.offers.ListSent(ctx, v.userID)
	if err != nil {
		logger.Warn("Offer view of %s: failed to refresh sent offers: %v", v.userID, err)
		return err
	}
	received, err := v.offers.ListReceived(ctx, v.userID)
	if err != nil {
		logger.Warn("Offer view of %s: failed to refresh received offers: %v", v.userID, err)
		return err
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.sent = sent
	v.received = received
	v.mu.Unlock()

	v.onSnapshot(ViewSnapshot{Kind: OffersSnapshot, Sent: sent, Received: received})
	return nil
}

// RefreshConversation fetches the selected conversation once.
func (v *OfferView) RefreshConversation(ctx context.Context) error {
	v.mu.Lock()
	offerID := v.selected
	v.mu.Unlock()
	if offerID == "" {
		return ErrNoConversation
	}
	return v.refreshConversation(ctx, offerID)
}

func (v *OfferView) refreshConversation(ctx context.Context, offerID string) error {
	offer, err := v.offers.GetOffer(ctx, v.userID, offerID)
	if err != nil {
		logger.Warn("Offer view of %s: failed to refresh offer %s: %v", v.userID, offerID, err)
		return err
	}
	messages, err := v.chat.GetMessages(ctx, v.userID, offerID)
	if err != nil {
		logger.Warn("Offer view of %s: failed to refresh messages of %s: %v", v.userID, offerID, err)
		return err
	}

	v.mu.Lock()
	if v.closed || v.selected != offerID {
		// selection changed while fetching
		v.mu.Unlock()
		return nil
	}
	v.offer = offer
	v.messages = messages
	v.mu.Unlock()

	v.onSnapshot(ViewSnapshot{Kind: ConversationSnapshot, OfferID: offerID, Offer: offer, Messages: messages})
	return nil
}

// Offers returns the last fetched lists.
func (v *OfferView) Offers() (sent, received []*OfferSummary) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]*OfferSummary(nil), v.sent...), append([]*OfferSummary(nil), v.received...)
}

// Conversation returns the selected offer id and its last known messages.
func (v *OfferView) Conversation() (string, []*entity.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected, append([]*entity.Message(nil), v.messages...)
}

// Close stops both pollers and waits for them to exit.
func (v *OfferView) Close() {
	v.selectMu.Lock()
	defer v.selectMu.Unlock()

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	cancel := v.cancel
	list, conv := v.listPoller, v.convPoller
	v.listPoller, v.convPoller = nil, nil
	v.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if list != nil {
		list.Stop()
	}
	if conv != nil {
		conv.Stop()
	}
}
