package handler

import (
	"github.com/labstack/echo/v4"

	"swapmarket/internal/usecase"
	"swapmarket/pkg/errors"
	"swapmarket/pkg/response"
)

type OfferHandler struct {
	offerUseCase      *usecase.OfferUseCase
	aggregatorUseCase *usecase.OfferAggregatorUseCase
}

func NewOfferHandler(offerUseCase *usecase.OfferUseCase, aggregatorUseCase *usecase.OfferAggregatorUseCase) *OfferHandler {
	return &OfferHandler{
		offerUseCase:      offerUseCase,
		aggregatorUseCase: aggregatorUseCase,
	}
}

type offerItemRequest struct {
	ItemID   string `json:"item_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"omitempty,min=1"`
}

type createOfferRequest struct {
	ToUserID string `json:"to_user_id" validate:"required"`
	// Items are requested from the recipient, MyItems are the caller's own.
	Items   []offerItemRequest `json:"items" validate:"required,min=1,dive"`
	MyItems []offerItemRequest `json:"my_items" validate:"required,min=1,dive"`
}

func toItemInputs(items []offerItemRequest) []usecase.OfferItemInput {
	inputs := make([]usecase.OfferItemInput, 0, len(items))
	for _, it := range items {
		inputs = append(inputs, usecase.OfferItemInput{ItemID: it.ItemID, Quantity: it.Quantity})
	}
	return inputs
}

func (h *OfferHandler) CreateOffer(c echo.Context) error {
	var req createOfferRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	offer, err := h.offerUseCase.CreateOffer(c.Request().Context(), userID, usecase.CreateOfferInput{
		ToUserID:       req.ToUserID,
		OfferedItems:   toItemInputs(req.MyItems),
		RequestedItems: toItemInputs(req.Items),
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, offer)
}

func (h *OfferHandler) ListSent(c echo.Context) error {
	userID := c.Get("uid").(string)

	offers, err := h.aggregatorUseCase.ListSent(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessCount(c, offers, int64(len(offers)))
}

func (h *OfferHandler) ListReceived(c echo.Context) error {
	userID := c.Get("uid").(string)

	offers, err := h.aggregatorUseCase.ListReceived(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessCount(c, offers, int64(len(offers)))
}

// Notifications returns the number of received offers waiting for an answer.
func (h *OfferHandler) Notifications(c echo.Context) error {
	userID := c.Get("uid").(string)

	count, err := h.aggregatorUseCase.CountNotifications(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessCount(c, map[string]int64{"pending": count}, count)
}

func (h *OfferHandler) Search(c echo.Context) error {
	userID := c.Get("uid").(string)

	offers, err := h.aggregatorUseCase.Search(c.Request().Context(), userID, c.QueryParam("q"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessCount(c, offers, int64(len(offers)))
}

func (h *OfferHandler) GetOffer(c echo.Context) error {
	userID := c.Get("uid").(string)

	offer, err := h.aggregatorUseCase.GetOffer(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, offer)
}

func (h *OfferHandler) AcceptOffer(c echo.Context) error {
	userID := c.Get("uid").(string)

	offer, err := h.offerUseCase.Accept(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, offer)
}

func (h *OfferHandler) RejectOffer(c echo.Context) error {
	userID := c.Get("uid").(string)

	offer, err := h.offerUseCase.Reject(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, offer)
}

func (h *OfferHandler) CompleteOffer(c echo.Context) error {
	userID := c.Get("uid").(string)

	offer, err := h.offerUseCase.Complete(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, offer)
}

func (h *OfferHandler) AddItem(c echo.Context) error {
	var req offerItemRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	item, err := h.offerUseCase.AddItem(c.Request().Context(), userID, c.Param("id"), usecase.OfferItemInput{
		ItemID:   req.ItemID,
		Quantity: req.Quantity,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, item)
}

func (h *OfferHandler) DeleteItem(c echo.Context) error {
	userID := c.Get("uid").(string)

	result, err := h.offerUseCase.DeleteItem(c.Request().Context(), userID, c.Param("id"), c.Param("itemId"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}

// DeleteOffer hides a finished offer for the caller.
func (h *OfferHandler) DeleteOffer(c echo.Context) error {
	userID := c.Get("uid").(string)

	deleted, err := h.offerUseCase.DeleteFinally(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]bool{"deleted": deleted})
}
