package router

import (
	"github.com/labstack/echo/v4"

	"swapmarket/internal/adapter/api/handler"
	"swapmarket/internal/adapter/api/middleware"
)

// SetupChatRouter sets up the per-offer conversation routes (excluding WebSocket)
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	chatGroup := e.Group("/v1/offers/:id/messages")
	chatGroup.Use(authMiddleware.Authenticate)

	chatGroup.POST("", chatHandler.SendMessage) // rate limited inside the chat use case
	chatGroup.GET("", chatHandler.GetMessages)

	admin := e.Group("/v1/admin/messages")
	admin.Use(authMiddleware.Authenticate)
	admin.Use(adminMiddleware.AdminOnly)

	admin.GET("", chatHandler.ListAllMessages)
}
