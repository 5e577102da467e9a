package router

import (
	"github.com/labstack/echo/v4"

	"swapmarket/internal/adapter/api/handler"
	"swapmarket/internal/adapter/api/middleware"
)

// SetupWebSocketRouter sets up WebSocket routes
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler, authMiddleware *middleware.AuthMiddleware) {
	// Browsers pass the token as ?token= on the handshake
	e.GET("/ws", wsHandler.HandleWebSocket, authMiddleware.Authenticate)
}
