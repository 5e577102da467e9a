package router

import (
	"github.com/labstack/echo/v4"

	"swapmarket/internal/adapter/api/handler"
	"swapmarket/internal/adapter/api/middleware"
	"swapmarket/internal/infrastructure/ratelimit"
)

func SetupOfferRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	offerHandler := handler.GetOfferHandler()

	offers := e.Group("/v1/offers")
	offers.Use(authMiddleware.Authenticate)

	offers.POST("", offerHandler.CreateOffer, middleware.RateLimit(limiter, "create_offer"))
	offers.GET("/sent", offerHandler.ListSent)
	offers.GET("/received", offerHandler.ListReceived)
	offers.GET("/notifications", offerHandler.Notifications)
	offers.GET("/search", offerHandler.Search)
	offers.GET("/:id", offerHandler.GetOffer)

	// State changes share one budget per user
	actions := offers.Group("", middleware.RateLimit(limiter, "offer_action"))
	actions.POST("/:id/accept", offerHandler.AcceptOffer)
	actions.POST("/:id/reject", offerHandler.RejectOffer)
	actions.POST("/:id/complete", offerHandler.CompleteOffer)
	actions.POST("/:id/items", offerHandler.AddItem)
	actions.DELETE("/:id/items/:itemId", offerHandler.DeleteItem)
	actions.DELETE("/:id", offerHandler.DeleteOffer)
}
