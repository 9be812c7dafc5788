package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-spot-reservation/internal/repository"
)

// DashboardHandler serves the aggregate views: a personal rollup for
// users, system-wide occupancy for admins and per-lot occupancy.
type DashboardHandler struct {
	Dash *repository.DashboardRepo
}

func NewDashboardHandler(dash *repository.DashboardRepo) *DashboardHandler {
	if dash == nil {
		panic("nil repository passed to NewDashboardHandler")
	}
	return &DashboardHandler{Dash: dash}
}

// UserDashboard returns the current user's booking count, lifetime spend
// and most recent booking.
func (h *DashboardHandler) UserDashboard(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sum, err := h.Dash.UserSummary(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

// AdminDashboard returns totals across all lots plus a per-lot breakdown.
func (h *DashboardHandler) AdminDashboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sum, err := h.Dash.SystemSummary(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

// LotDashboard returns live occupancy for a single lot.
func (h *DashboardHandler) LotDashboard(c echo.Context) error {
	lotID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sum, err := h.Dash.LotSummary(ctx, lotID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}
