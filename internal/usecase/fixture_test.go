package usecase

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	memrepo "swapmarket/internal/adapter/repository"
	"swapmarket/internal/domain/entity"
	"swapmarket/internal/domain/repository"
	"swapmarket/pkg/errors"
)

type publishedEvent struct {
	offerID string
	action  string
	actorID string
}

type recordingPublisher struct {
	mu       sync.Mutex
	events   []publishedEvent
	messages []*entity.Message
}

func (p *recordingPublisher) PublishOfferUpdate(offer *entity.Offer, action, actorID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{offerID: offer.ID, action: action, actorID: actorID})
}

func (p *recordingPublisher) PublishMessage(message *entity.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message)
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.action)
	}
	return out
}

type fixture struct {
	store       *memrepo.MemoryStore
	offerRepo   repository.OfferRepository
	messageRepo repository.MessageRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	reviewRepo  repository.ReviewRepository
	publisher   *recordingPublisher
	offers      *OfferUseCase
}

// newFixture seeds three users. Alice owns a1 (100) and a2 (50, 5 in stock),
// Bob owns b1 (300) and b2 (20, 3 in stock), Carol owns c1 (10).
func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memrepo.NewMemoryStore()
	store.PutUser(&entity.User{ID: "alice", FirstName: "Alice", LastName: "Adams", Username: "alice", Avatar: "alice.png"})
	store.PutUser(&entity.User{ID: "bob", FirstName: "Bob", LastName: "Brown", Username: "bobby"})
	store.PutUser(&entity.User{ID: "carol", FirstName: "Carol", Username: "carol"})

	store.PutProduct(&entity.Product{ID: "a1", UserID: "alice", Title: "Vintage camera", Price: 100, Quantity: 1})
	store.PutProduct(&entity.Product{ID: "a2", UserID: "alice", Title: "Film roll", Price: 50, Quantity: 5})
	store.PutProduct(&entity.Product{ID: "b1", UserID: "bob", Title: "Road bike", Price: 300, Quantity: 1})
	store.PutProduct(&entity.Product{ID: "b2", UserID: "bob", Title: "Bike light", Price: 20, Quantity: 3})
	store.PutProduct(&entity.Product{ID: "c1", UserID: "carol", Title: "Board game", Price: 10, Quantity: 1})

	f := &fixture{
		store:       store,
		offerRepo:   memrepo.NewMemoryOfferRepository(store),
		messageRepo: memrepo.NewMemoryMessageRepository(store),
		productRepo: memrepo.NewMemoryProductRepository(store),
		userRepo:    memrepo.NewMemoryUserRepository(store),
		reviewRepo:  memrepo.NewMemoryReviewRepository(store),
		publisher:   &recordingPublisher{},
	}
	f.offers = NewOfferUseCase(f.offerRepo, f.productRepo, f.userRepo, f.publisher)
	return f
}

// scenarioA creates Alice -> Bob: camera x1 and film x2 for the bike.
func (f *fixture) scenarioA(t *testing.T) *entity.Offer {
	t.Helper()
	offer, err := f.offers.CreateOffer(context.Background(), "alice", CreateOfferInput{
		ToUserID:       "bob",
		OfferedItems:   []OfferItemInput{{ItemID: "a1", Quantity: 1}, {ItemID: "a2", Quantity: 2}},
		RequestedItems: []OfferItemInput{{ItemID: "b1", Quantity: 1}},
	})
	require.NoError(t, err)
	return offer
}

// oneForOne creates Alice -> Bob: camera for bike.
func (f *fixture) oneForOne(t *testing.T) *entity.Offer {
	t.Helper()
	offer, err := f.offers.CreateOffer(context.Background(), "alice", CreateOfferInput{
		ToUserID:       "bob",
		OfferedItems:   []OfferItemInput{{ItemID: "a1"}},
		RequestedItems: []OfferItemInput{{ItemID: "b1"}},
	})
	require.NoError(t, err)
	return offer
}

func (f *fixture) itemFor(t *testing.T, offerID, productID string) *entity.OfferItem {
	t.Helper()
	items, err := f.offerRepo.ListItems(context.Background(), offerID)
	require.NoError(t, err)
	for _, it := range items {
		if it.ItemID == productID {
			return it
		}
	}
	t.Fatalf("offer %s has no line for product %s", offerID, productID)
	return nil
}

func errCode(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func errStatus(err error) int {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Status
	}
	return 0
}
