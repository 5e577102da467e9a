package usecase

import (
	"context"
	"math"
	"strings"

	"swapmarket/internal/domain/entity"
	"swapmarket/internal/domain/repository"
	"swapmarket/pkg/errors"
	"swapmarket/pkg/logger"
)

type ReviewUseCase struct {
	reviewRepo repository.ReviewRepository
	offerRepo  repository.OfferRepository
	userRepo   repository.UserRepository
	userCache  UserCacheInvalidator
}

// NewReviewUseCase builds the review flow. userCache may be nil when nothing
// caches user summaries.
func NewReviewUseCase(
	reviewRepo repository.ReviewRepository,
	offerRepo repository.OfferRepository,
	userRepo repository.UserRepository,
	userCache UserCacheInvalidator,
) *ReviewUseCase {
	if userCache == nil {
		userCache = noopUserCache{}
	}
	return &ReviewUseCase{
		reviewRepo: reviewRepo,
		offerRepo:  offerRepo,
		userRepo:   userRepo,
		userCache:  userCache,
	}
}

type CreateReviewInput struct {
	OfferID string
	Rating  int
	Comment string
}

// CreateReview rates the other party of a completed offer. Each party may
// review an offer once.
func (uc *ReviewUseCase) CreateReview(ctx context.Context, reviewerID string, input CreateReviewInput) (*entity.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, errors.BadRequest("Rating must be between 1 and 5", nil)
	}

	offer, _, err := loadOfferForParty(ctx, uc.offerRepo, input.OfferID, reviewerID)
	if err != nil {
		return nil, err
	}
	if offer.Status != entity.OfferCompleted {
		return nil, errors.BadRequest("Only completed offers can be reviewed", nil)
	}

	existing, err := uc.reviewRepo.GetByOfferAndReviewer(ctx, offer.ID, reviewerID)
	if err == nil && existing != nil {
		return nil, errors.Conflict("You already reviewed this offer")
	}
	if err != nil && !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	review := &entity.Review{
		OfferID:    offer.ID,
		ReviewerID: reviewerID,
		TargetID:   offer.PartnerOf(reviewerID),
		Rating:     input.Rating,
		Comment:    strings.TrimSpace(input.Comment),
	}

	if err := uc.reviewRepo.Create(ctx, review); err != nil {
		return nil, err
	}

	// the review stands even if the aggregate could not be refreshed
	if err := uc.updateUserRating(ctx, review.TargetID, review.Rating); err != nil {
		logger.Warn("Failed to update rating of user %s: %v", review.TargetID, err)
	} else {
		uc.userCache.InvalidateUser(review.TargetID)
	}

	return review, nil
}

func (uc *ReviewUseCase) ListUserReviews(ctx context.Context, userID string, page, limit int) ([]*entity.Review, int64, error) {
	offset := (page - 1) * limit
	if offset < 0 {
		offset = 0
	}

	reviews, total, err := uc.reviewRepo.ListByTargetID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if reviews == nil {
		reviews = []*entity.Review{}
	}
	return reviews, total, nil
}

// updateUserRating folds one new rating into the running average.
func (uc *ReviewUseCase) updateUserRating(ctx context.Context, userID string, newRating int) error {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	total := user.Rating * float64(user.RatingCount)
	count := user.RatingCount + 1
	rating := math.Round((total+float64(newRating))/float64(count)*100) / 100

	return uc.userRepo.UpdateRating(ctx, userID, rating, count)
}
