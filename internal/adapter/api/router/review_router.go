package router

import (
	"swapmarket/internal/adapter/api/handler"
	"swapmarket/internal/adapter/api/middleware"

	"github.com/labstack/echo/v4"
)

func SetupReviewRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	reviewHandler := handler.GetReviewHandler()

	// Public routes
	e.GET("/v1/users/:id/reviews", reviewHandler.ListUserReviews)

	// Protected routes (require authentication)
	e.POST("/v1/offers/:id/reviews", reviewHandler.CreateReview, authMiddleware.Authenticate)
}
