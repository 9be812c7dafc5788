package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-spot-reservation/internal/repository"
)

// PublicHandler serves the lot listing users browse before booking.
type PublicHandler struct {
	Lots *repository.LotRepo
}

func NewPublicHandler(lots *repository.LotRepo) *PublicHandler {
	if lots == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{Lots: lots}
}

// ListLots returns every lot with its current available-spot count.
func (h *PublicHandler) ListLots(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	lots, err := h.Lots.ListWithAvailability(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, lots)
}
