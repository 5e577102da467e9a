package handler

import (
	"swapmarket/internal/usecase"
)

var (
	offerHandler  *OfferHandler
	reviewHandler *ReviewHandler
	healthHandler *HealthHandler
)

func Setup(
	offerUseCase *usecase.OfferUseCase,
	aggregatorUseCase *usecase.OfferAggregatorUseCase,
	reviewUseCase *usecase.ReviewUseCase,
	storageDriver string,
) {
	offerHandler = NewOfferHandler(offerUseCase, aggregatorUseCase)
	reviewHandler = NewReviewHandler(reviewUseCase)
	healthHandler = NewHealthHandler(storageDriver)
}

func GetOfferHandler() *OfferHandler {
	return offerHandler
}

func GetReviewHandler() *ReviewHandler {
	return reviewHandler
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}
