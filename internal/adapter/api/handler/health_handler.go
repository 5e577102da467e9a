package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type HealthHandler struct {
	storageDriver string
}

func NewHealthHandler(storageDriver string) *HealthHandler {
	return &HealthHandler{
		storageDriver: storageDriver,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"storage": h.storageDriver,
		"time":    time.Now().Format(time.RFC3339),
	})
}
