package router

import (
	"github.com/labstack/echo/v4"

	"swapmarket/internal/adapter/api/handler"
	"swapmarket/internal/adapter/api/middleware"
	"swapmarket/internal/infrastructure/ratelimit"
)

func Setup(
	e *echo.Echo,
	authMiddleware *middleware.AuthMiddleware,
	adminMiddleware *middleware.AdminMiddleware,
	limiter *ratelimit.RateLimiter,
	chatHandler *handler.ChatHandler,
	wsHandler *handler.WebSocketHandler,
) {
	SetupOfferRouter(e, authMiddleware, limiter)
	SetupChatRouter(e, chatHandler, authMiddleware, adminMiddleware)
	SetupReviewRouter(e, authMiddleware)
	SetupWebSocketRouter(e, wsHandler, authMiddleware)
	SetupHealthRouter(e)
}
