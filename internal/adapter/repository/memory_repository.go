package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"swapmarket/internal/domain/entity"
	"swapmarket/internal/domain/repository"
	"swapmarket/pkg/errors"
)

// MemoryStore keeps every collection in process. It backs the "memory"
// storage driver and the use-case tests.
type MemoryStore struct {
	mu       sync.RWMutex
	offers   map[string]*entity.Offer
	items    map[string]map[string]*entity.OfferItem // offerID -> itemID -> item
	versions map[string]int                          // bumped on every offer write
	messages []*entity.Message
	products map[string]*entity.Product
	users    map[string]*entity.User
	reviews  []*entity.Review
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		offers:   make(map[string]*entity.Offer),
		items:    make(map[string]map[string]*entity.OfferItem),
		versions: make(map[string]int),
		products: make(map[string]*entity.Product),
		users:    make(map[string]*entity.User),
	}
}

// PutUser inserts or replaces a user.
func (s *MemoryStore) PutUser(user *entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.users[u.ID] = &u
}

// PutProduct inserts or replaces a product.
func (s *MemoryStore) PutProduct(product *entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *product
	s.products[p.ID] = &p
}

type memoryOfferRepository struct{ s *MemoryStore }

func NewMemoryOfferRepository(s *MemoryStore) repository.OfferRepository {
	return &memoryOfferRepository{s: s}
}

func (r *memoryOfferRepository) Create(ctx context.Context, offer *entity.Offer, items []*entity.OfferItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if offer.ID == "" {
		offer.ID = uuid.New().String()
	}
	if _, exists := r.s.offers[offer.ID]; exists {
		return errors.Conflict("Offer already exists")
	}

	now := time.Now()
	offer.DateCreated = now
	offer.DateUpdated = now
	o := *offer
	r.s.offers[o.ID] = &o

	r.s.items[o.ID] = make(map[string]*entity.OfferItem)
	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.OfferID = o.ID
		item.DateCreated = now
		it := *item
		r.s.items[o.ID][it.ID] = &it
	}
	return nil
}

func (r *memoryOfferRepository) GetByID(ctx context.Context, id string) (*entity.Offer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.offers[id]
	if !ok {
		return nil, errors.NotFound("Offer", nil)
	}
	cp := *o
	return &cp, nil
}

func (r *memoryOfferRepository) list(match func(*entity.Offer) bool) []*entity.Offer {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entity.Offer
	for _, o := range r.s.offers {
		if match(o) {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DateCreated.Equal(out[j].DateCreated) {
			return out[i].ID < out[j].ID
		}
		return out[i].DateCreated.After(out[j].DateCreated)
	})
	return out
}

func (r *memoryOfferRepository) ListByFromUser(ctx context.Context, userID string) ([]*entity.Offer, error) {
	return r.list(func(o *entity.Offer) bool { return o.FromUserID == userID }), nil
}

func (r *memoryOfferRepository) ListByToUser(ctx context.Context, userID string) ([]*entity.Offer, error) {
	return r.list(func(o *entity.Offer) bool { return o.ToUserID == userID }), nil
}

func (r *memoryOfferRepository) CountByToUserAndStatus(ctx context.Context, userID string, status entity.OfferStatus) (int64, error) {
	offers := r.list(func(o *entity.Offer) bool {
		return o.ToUserID == userID && o.Status == status && !o.DeletedByReceiver
	})
	return int64(len(offers)), nil
}

func (r *memoryOfferRepository) FindActiveBetween(ctx context.Context, userA, userB string) (*entity.Offer, error) {
	offers := r.list(func(o *entity.Offer) bool {
		between := (o.FromUserID == userA && o.ToUserID == userB) || (o.FromUserID == userB && o.ToUserID == userA)
		return between && o.Status.IsActive()
	})
	if len(offers) == 0 {
		return nil, errors.NotFound("Active offer", nil)
	}
	return offers[0], nil
}

func (r *memoryOfferRepository) UpdateStatus(ctx context.Context, id string, from, to entity.OfferStatus) (*entity.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.offers[id]
	if !ok {
		return nil, errors.NotFound("Offer", nil)
	}
	if o.Status != from || !entity.CanTransition(from, to) {
		return nil, errors.InvalidTransition(string(o.Status), string(to))
	}
	o.Status = to
	o.DateUpdated = time.Now()
	r.s.versions[id]++
	cp := *o
	return &cp, nil
}

func (r *memoryOfferRepository) MarkDeleted(ctx context.Context, id string, side entity.Side) (*entity.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.offers[id]
	if !ok {
		return nil, errors.NotFound("Offer", nil)
	}
	if side == entity.SideSender {
		o.DeletedBySender = true
	} else {
		o.DeletedByReceiver = true
	}
	o.DateUpdated = time.Now()
	r.s.versions[id]++
	cp := *o
	return &cp, nil
}

func (r *memoryOfferRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.offers, id)
	delete(r.s.items, id)
	delete(r.s.versions, id)
	return nil
}

func (r *memoryOfferRepository) ListItems(ctx context.Context, offerID string) ([]*entity.OfferItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.copyItems(offerID), nil
}

// copyItems must be called with the store lock held.
func (r *memoryOfferRepository) copyItems(offerID string) []*entity.OfferItem {
	var out []*entity.OfferItem
	for _, it := range r.s.items[offerID] {
		cp := *it
		out = append(out, &cp)
	}
	sortItems(out)
	return out
}

// maxItemAttempts matches the Firestore client's default transaction retries.
const maxItemAttempts = 5

// snapshot copies the offer, its items and its version.
func (r *memoryOfferRepository) snapshot(offerID string) (*entity.Offer, []*entity.OfferItem, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.offers[offerID]
	if !ok {
		return nil, nil, 0, errors.NotFound("Offer", nil)
	}
	cp := *o
	return &cp, r.copyItems(offerID), r.s.versions[offerID], nil
}

// optimistic runs read, price and write the way a Firestore transaction
// does: pricing happens outside the store lock and commit only applies when
// the offer version is unchanged, otherwise the attempt is repeated.
func (r *memoryOfferRepository) optimistic(ctx context.Context, offerID string, attempt func(offer *entity.Offer, items []*entity.OfferItem) (commit func(o *entity.Offer), err error)) error {
	for i := 0; i < maxItemAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		offer, items, version, err := r.snapshot(offerID)
		if err != nil {
			return err
		}
		commit, err := attempt(offer, items)
		if err != nil {
			return err
		}

		r.s.mu.Lock()
		o, ok := r.s.offers[offerID]
		if !ok {
			r.s.mu.Unlock()
			return errors.NotFound("Offer", nil)
		}
		if r.s.versions[offerID] != version {
			r.s.mu.Unlock()
			continue
		}
		o.DateUpdated = time.Now()
		commit(o)
		r.s.versions[offerID]++
		r.s.mu.Unlock()
		return nil
	}
	return errors.Conflict("Offer is being modified, try again")
}

func (r *memoryOfferRepository) AddItem(ctx context.Context, item *entity.OfferItem, expected entity.OfferStatus, price repository.PriceFunc) (*entity.Offer, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	var updated entity.Offer
	err := r.optimistic(ctx, item.OfferID, func(offer *entity.Offer, items []*entity.OfferItem) (func(*entity.Offer), error) {
		if err := checkExpectedStatus(offer, expected); err != nil {
			return nil, err
		}
		if err := checkDuplicateProduct(items, item.ItemID); err != nil {
			return nil, err
		}

		item.DateCreated = time.Now()
		cash, err := price(ctx, offer, append(items, item))
		if err != nil {
			return nil, err
		}

		return func(o *entity.Offer) {
			it := *item
			if r.s.items[o.ID] == nil {
				r.s.items[o.ID] = make(map[string]*entity.OfferItem)
			}
			r.s.items[o.ID][it.ID] = &it
			o.CashAdjustment = cash
			updated = *o
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *memoryOfferRepository) DeleteItem(ctx context.Context, offerID, offerItemID string, expected entity.OfferStatus, price repository.PriceFunc) (*repository.ItemDeletion, error) {
	var result repository.ItemDeletion
	err := r.optimistic(ctx, offerID, func(offer *entity.Offer, items []*entity.OfferItem) (func(*entity.Offer), error) {
		if err := checkExpectedStatus(offer, expected); err != nil {
			return nil, err
		}

		remaining, cascade, err := planDeletion(offer, items, offerItemID)
		if err != nil {
			return nil, err
		}

		if cascade {
			return func(o *entity.Offer) {
				o.Status = entity.OfferRejected
				cp := *o
				result = repository.ItemDeletion{Offer: &cp, Rejected: true}
			}, nil
		}

		cash, err := price(ctx, offer, remaining)
		if err != nil {
			return nil, err
		}
		return func(o *entity.Offer) {
			delete(r.s.items[offerID], offerItemID)
			o.CashAdjustment = cash
			cp := *o
			result = repository.ItemDeletion{Offer: &cp}
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

type memoryMessageRepository struct{ s *MemoryStore }

func NewMemoryMessageRepository(s *MemoryStore) repository.MessageRepository {
	return &memoryMessageRepository{s: s}
}

func (r *memoryMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.DateCreated = time.Now()
	m := *message
	r.s.messages = append(r.s.messages, &m)
	return nil
}

func (r *memoryMessageRepository) ListByOfferID(ctx context.Context, offerID string) ([]*entity.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entity.Message
	for _, m := range r.s.messages {
		if m.OfferID == offerID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memoryMessageRepository) ListAll(ctx context.Context, limit, offset int) ([]*entity.Message, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	total := len(r.s.messages)
	var out []*entity.Message
	// newest first
	for i := total - 1 - offset; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		cp := *r.s.messages[i]
		out = append(out, &cp)
	}
	return out, int64(total), nil
}

type memoryProductRepository struct{ s *MemoryStore }

func NewMemoryProductRepository(s *MemoryStore) repository.ProductRepository {
	return &memoryProductRepository{s: s}
}

func (r *memoryProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, errors.NotFound("Product", nil)
	}
	cp := *p
	return &cp, nil
}

type memoryUserRepository struct{ s *MemoryStore }

func NewMemoryUserRepository(s *MemoryStore) repository.UserRepository {
	return &memoryUserRepository{s: s}
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	cp := *u
	return &cp, nil
}

func (r *memoryUserRepository) UpdateRating(ctx context.Context, id string, rating float64, count int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return errors.NotFound("User", nil)
	}
	u.Rating = rating
	u.RatingCount = count
	return nil
}

type memoryReviewRepository struct{ s *MemoryStore }

func NewMemoryReviewRepository(s *MemoryStore) repository.ReviewRepository {
	return &memoryReviewRepository{s: s}
}

func (r *memoryReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	review.DateCreated = time.Now()
	cp := *review
	r.s.reviews = append(r.s.reviews, &cp)
	return nil
}

func (r *memoryReviewRepository) GetByOfferAndReviewer(ctx context.Context, offerID, reviewerID string) (*entity.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, rv := range r.s.reviews {
		if rv.OfferID == offerID && rv.ReviewerID == reviewerID {
			cp := *rv
			return &cp, nil
		}
	}
	return nil, errors.NotFound("Review", nil)
}

func (r *memoryReviewRepository) ListByTargetID(ctx context.Context, targetID string, limit, offset int) ([]*entity.Review, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []*entity.Review
	for i := len(r.s.reviews) - 1; i >= 0; i-- {
		if r.s.reviews[i].TargetID == targetID {
			cp := *r.s.reviews[i]
			matched = append(matched, &cp)
		}
	}
	total := int64(len(matched))
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}
