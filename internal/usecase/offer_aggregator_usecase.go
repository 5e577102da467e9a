package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sahilm/fuzzy"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"swapmarket/internal/domain/entity"
	"swapmarket/internal/domain/repository"
	"swapmarket/internal/domain/service"
	"swapmarket/pkg/errors"
	"swapmarket/pkg/logger"
)

var errNotVisible = errors.NotFound("Offer", nil)

const (
	unknownUserName    = "Unknown"
	unknownProductName = "Unknown product"
)

// defaultUserCacheTTL bounds how stale a cached partner summary may get when
// it changes outside this process.
const defaultUserCacheTTL = time.Minute

type AggregatorConfig struct {
	Concurrency      int
	UserCacheSize    int
	UserCacheTTL     time.Duration
	DefaultAvatarURL string
}

type UserSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Avatar   string  `json:"avatar"`
	Verified bool    `json:"verified"`
	Rating   float64 `json:"rating"`
}

type OfferLine struct {
	OfferItemID string          `json:"offer_item_id"`
	ItemID      string          `json:"item_id"`
	OfferedBy   string          `json:"offered_by"`
	Product     *entity.Product `json:"product"`
	UnitPrice   float64         `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   float64         `json:"line_total"`
}

// OfferSummary is one offer as a party sees it in the sent/received lists.
type OfferSummary struct {
	Offer          *entity.Offer    `json:"offer"`
	ViewerSide     entity.Side      `json:"viewer_side"`
	Partner        UserSummary      `json:"partner"`
	SenderItems    []*OfferLine     `json:"sender_items"`
	ReceiverItems  []*OfferLine     `json:"receiver_items"`
	SenderTotal    float64          `json:"sender_total"`
	ReceiverTotal  float64          `json:"receiver_total"`
	CashAdjustment float64          `json:"cash_adjustment"`
	Cash           service.CashView `json:"cash"`
}

// OfferAggregatorUseCase joins offers with their items, products and partner
// users. Enrichment failures degrade to placeholders; only listing the
// offers themselves can fail.
type OfferAggregatorUseCase struct {
	offerRepo   repository.OfferRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository

	users         *expirable.LRU[string, UserSummary]
	concurrency   int64
	defaultAvatar string
}

func NewOfferAggregatorUseCase(
	offerRepo repository.OfferRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	cfg AggregatorConfig,
) *OfferAggregatorUseCase {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.UserCacheSize <= 0 {
		cfg.UserCacheSize = 1
	}
	if cfg.UserCacheTTL <= 0 {
		cfg.UserCacheTTL = defaultUserCacheTTL
	}
	cache := expirable.NewLRU[string, UserSummary](cfg.UserCacheSize, nil, cfg.UserCacheTTL)

	return &OfferAggregatorUseCase{
		offerRepo:     offerRepo,
		productRepo:   productRepo,
		userRepo:      userRepo,
		users:         cache,
		concurrency:   int64(cfg.Concurrency),
		defaultAvatar: cfg.DefaultAvatarURL,
	}
}

func (uc *OfferAggregatorUseCase) ListSent(ctx context.Context, userID string) ([]*OfferSummary, error) {
	offers, err := uc.offerRepo.ListByFromUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return uc.aggregate(ctx, userID, offers)
}

func (uc *OfferAggregatorUseCase) ListReceived(ctx context.Context, userID string) ([]*OfferSummary, error) {
	offers, err := uc.offerRepo.ListByToUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return uc.aggregate(ctx, userID, offers)
}

func (uc *OfferAggregatorUseCase) GetOffer(ctx context.Context, userID, offerID string) (*OfferSummary, error) {
	offer, _, err := loadOfferForParty(ctx, uc.offerRepo, offerID, userID)
	if err != nil {
		return nil, err
	}

	summaries, err := uc.aggregate(ctx, userID, []*entity.Offer{offer})
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		// the caller already removed it from their view
		return nil, errNotVisible
	}
	return summaries[0], nil
}

// CountNotifications returns how many received offers wait for the user's answer.
func (uc *OfferAggregatorUseCase) CountNotifications(ctx context.Context, userID string) (int64, error) {
	return uc.offerRepo.CountByToUserAndStatus(ctx, userID, entity.OfferPending)
}

// Search fuzzy-matches the query against partner names and product titles of
// both sent and received offers. Results are ordered by match quality.
func (uc *OfferAggregatorUseCase) Search(ctx context.Context, userID, query string) ([]*OfferSummary, error) {
	sent, err := uc.ListSent(ctx, userID)
	if err != nil {
		return nil, err
	}
	received, err := uc.ListReceived(ctx, userID)
	if err != nil {
		return nil, err
	}
	all := append(sent, received...)

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return all, nil
	}

	matches := fuzzy.FindFrom(query, searchSource(all))
	results := make([]*OfferSummary, 0, len(matches))
	for _, m := range matches {
		results = append(results, all[m.Index])
	}
	logger.Debug("Offer search %q for %s matched %d of %d offers", query, userID, len(results), len(all))
	return results, nil
}

// searchSource implements fuzzy.Source over offer summaries.
type searchSource []*OfferSummary

func (s searchSource) Len() int { return len(s) }

func (s searchSource) String(i int) string {
	parts := []string{s[i].Partner.Name, s[i].Partner.Username}
	for _, l := range s[i].SenderItems {
		parts = append(parts, l.Product.DisplayName())
	}
	for _, l := range s[i].ReceiverItems {
		parts = append(parts, l.Product.DisplayName())
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func (uc *OfferAggregatorUseCase) aggregate(ctx context.Context, viewerID string, offers []*entity.Offer) ([]*OfferSummary, error) {
	visible := make([]*entity.Offer, 0, len(offers))
	for _, o := range offers {
		if !o.HiddenFor(viewerID) {
			visible = append(visible, o)
		}
	}
	if len(visible) == 0 {
		return []*OfferSummary{}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(uc.concurrency)

	items := make([][]*entity.OfferItem, len(visible))
	for i, o := range visible {
		i, o := i, o
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			list, err := uc.offerRepo.ListItems(gctx, o.ID)
			if err != nil {
				logger.Warn("Failed to load items of offer %s: %v", o.ID, err)
				list = []*entity.OfferItem{}
			}
			items[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	partnerIDs := make([]string, 0, len(visible))
	seenUsers := make(map[string]bool)
	for _, o := range visible {
		id := o.PartnerOf(viewerID)
		if !seenUsers[id] {
			seenUsers[id] = true
			partnerIDs = append(partnerIDs, id)
		}
	}

	productIDs := make([]string, 0)
	seenProducts := make(map[string]bool)
	for _, list := range items {
		for _, it := range list {
			if !seenProducts[it.ItemID] {
				seenProducts[it.ItemID] = true
				productIDs = append(productIDs, it.ItemID)
			}
		}
	}

	var mu sync.Mutex
	users := make(map[string]UserSummary, len(partnerIDs))
	products := make(map[string]*entity.Product, len(productIDs))

	g, gctx = errgroup.WithContext(ctx)
	for _, id := range partnerIDs {
		id := id
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			u := uc.resolveUser(gctx, id)
			mu.Lock()
			users[id] = u
			mu.Unlock()
			return nil
		})
	}
	for _, id := range productIDs {
		id := id
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			p, err := uc.productRepo.GetByID(gctx, id)
			if err != nil {
				logger.Warn("Failed to load product %s: %v", id, err)
				p = &entity.Product{ID: id, Title: unknownProductName}
			}
			mu.Lock()
			products[id] = p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summaries := make([]*OfferSummary, 0, len(visible))
	for i, o := range visible {
		summaries = append(summaries, uc.summarize(viewerID, o, items[i], users, products))
	}
	return summaries, nil
}

func (uc *OfferAggregatorUseCase) summarize(
	viewerID string,
	offer *entity.Offer,
	items []*entity.OfferItem,
	users map[string]UserSummary,
	products map[string]*entity.Product,
) *OfferSummary {
	side, _ := offer.SideOf(viewerID)
	summary := &OfferSummary{
		Offer:          offer,
		ViewerSide:     side,
		Partner:        users[offer.PartnerOf(viewerID)],
		SenderItems:    []*OfferLine{},
		ReceiverItems:  []*OfferLine{},
		CashAdjustment: offer.CashAdjustment,
		Cash:           service.DescribeCashAdjustment(offer.CashAdjustment, side),
	}

	lines := make([]service.PricedLine, 0, len(items))
	for _, it := range items {
		product := products[it.ItemID]
		priced := service.PricedLine{
			OfferedBy:         it.OfferedBy,
			Price:             product.Price,
			Quantity:          it.Quantity,
			Qty:               it.Qty,
			AvailableQuantity: product.Quantity,
		}
		lines = append(lines, priced)

		line := &OfferLine{
			OfferItemID: it.ID,
			ItemID:      it.ItemID,
			OfferedBy:   it.OfferedBy,
			Product:     product,
			UnitPrice:   product.Price,
			Quantity:    service.EffectiveQuantity(it.Quantity, it.Qty, product.Quantity),
			LineTotal:   priced.Total(),
		}
		switch it.OfferedBy {
		case offer.FromUserID:
			summary.SenderItems = append(summary.SenderItems, line)
		case offer.ToUserID:
			summary.ReceiverItems = append(summary.ReceiverItems, line)
		}
	}

	summary.SenderTotal, summary.ReceiverTotal = service.SideTotals(lines, offer.FromUserID, offer.ToUserID)
	return summary
}

// InvalidateUser drops the cached summary of a user whose profile or rating
// changed.
func (uc *OfferAggregatorUseCase) InvalidateUser(userID string) {
	uc.users.Remove(userID)
}

// resolveUser reads through the LRU cache. Placeholders are never cached so
// a user that failed to load is retried on the next aggregation.
func (uc *OfferAggregatorUseCase) resolveUser(ctx context.Context, id string) UserSummary {
	if cached, ok := uc.users.Get(id); ok {
		return cached
	}

	user, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		logger.Warn("Failed to load user %s: %v", id, err)
		return UserSummary{ID: id, Name: unknownUserName, Avatar: uc.defaultAvatar}
	}

	summary := UserSummary{
		ID:       id,
		Name:     user.DisplayName(),
		Username: user.Username,
		Avatar:   user.Avatar,
		Verified: user.Verified,
		Rating:   user.Rating,
	}
	if summary.Name == "" {
		summary.Name = unknownUserName
	}
	if summary.Avatar == "" {
		summary.Avatar = uc.defaultAvatar
	}
	uc.users.Add(id, summary)
	return summary
}
