package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-spot-reservation/internal/database"
	"github.com/iliyamo/parking-spot-reservation/internal/repository"
)

// AdminHandler implements lot administration: create with spot fan-out,
// attribute edits and capacity resize, deletion, and the monitoring
// listings.
type AdminHandler struct {
	Lots     *repository.LotRepo
	Spots    *repository.SpotRepo
	Bookings *repository.BookingRepo
	Users    *repository.UserRepo
}

func NewAdminHandler(lots *repository.LotRepo, spots *repository.SpotRepo, bookings *repository.BookingRepo, users *repository.UserRepo) *AdminHandler {
	if lots == nil || spots == nil || bookings == nil || users == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{Lots: lots, Spots: spots, Bookings: bookings, Users: users}
}

const maxLotCapacity = 10000

type createLotReq struct {
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	PinCode      string  `json:"pin_code"`
	PricePerHour float64 `json:"price_per_hour"`
	Capacity     uint32  `json:"capacity"`
}

type updateLotReq struct {
	Name         *string  `json:"name"`
	Address      *string  `json:"address"`
	PinCode      *string  `json:"pin_code"`
	PricePerHour *float64 `json:"price_per_hour"`
	Capacity     *uint32  `json:"capacity"`
}

// CreateLot inserts a lot and fans out one AVAILABLE spot row per unit of
// capacity, numbered 1..capacity, in a single transaction.
func (h *AdminHandler) CreateLot(c echo.Context) error {
	var req createLotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Address = strings.TrimSpace(req.Address)
	req.PinCode = strings.TrimSpace(req.PinCode)
	if req.Name == "" || req.Address == "" || req.PinCode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/address/pin_code required"})
	}
	if req.PricePerHour <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price_per_hour must be positive"})
	}
	if req.Capacity < 1 || req.Capacity > maxLotCapacity {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity out of range"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	lot := &repository.Lot{
		Name:         req.Name,
		Address:      req.Address,
		PinCode:      req.PinCode,
		PricePerHour: req.PricePerHour,
		Capacity:     req.Capacity,
	}
	err := database.WithTx(ctx, h.Lots.DB(), func(tx *sql.Tx) error {
		if err := h.Lots.CreateTx(ctx, tx, lot); err != nil {
			return err
		}
		return h.Spots.CreateBulkTx(ctx, tx, lot.ID, repository.GrowNumbers(0, int(req.Capacity)))
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, lot)
}

// UpdateLot edits lot attributes and resizes capacity. A grow appends new
// spots numbered past the current maximum; a shrink deletes available,
// history-free spots from the top and is rejected when not enough such
// spots exist. The lot row lock serializes concurrent admin edits.
func (h *AdminHandler) UpdateLot(c echo.Context) error {
	lotID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	var req updateLotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.PricePerHour != nil && *req.PricePerHour <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price_per_hour must be positive"})
	}
	if req.Capacity != nil && (*req.Capacity < 1 || *req.Capacity > maxLotCapacity) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity out of range"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var updated *repository.Lot
	err = database.WithTx(ctx, h.Lots.DB(), func(tx *sql.Tx) error {
		lot, err := h.Lots.GetByIDTx(ctx, tx, lotID)
		if err != nil {
			return err
		}

		if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
			lot.Name = strings.TrimSpace(*req.Name)
		}
		if req.Address != nil && strings.TrimSpace(*req.Address) != "" {
			lot.Address = strings.TrimSpace(*req.Address)
		}
		if req.PinCode != nil && strings.TrimSpace(*req.PinCode) != "" {
			lot.PinCode = strings.TrimSpace(*req.PinCode)
		}
		if req.PricePerHour != nil {
			lot.PricePerHour = *req.PricePerHour
		}

		if req.Capacity != nil {
			count, maxNumber, err := h.Spots.CountAndMaxNumberTx(ctx, tx, lotID)
			if err != nil {
				return err
			}
			target := int(*req.Capacity)
			switch {
			case target > count:
				numbers := repository.GrowNumbers(maxNumber, target-count)
				if err := h.Spots.CreateBulkTx(ctx, tx, lotID, numbers); err != nil {
					return err
				}
			case target < count:
				removable, err := h.Spots.RemovableForUpdateTx(ctx, tx, lotID, count-target)
				if err != nil {
					return err
				}
				if len(removable) < count-target {
					return repository.ErrInsufficientRemovableSpots
				}
				ids := make([]uint64, 0, len(removable))
				for _, s := range removable {
					ids = append(ids, s.ID)
				}
				if err := h.Spots.DeleteByIDsTx(ctx, tx, ids); err != nil {
					return err
				}
			}
			lot.Capacity = *req.Capacity
		}

		if err := h.Lots.UpdateTx(ctx, tx, lot); err != nil {
			return err
		}
		updated = lot
		return nil
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteLot removes a lot with its spots and their booking history. All
// spots are locked first; the delete is refused while any spot is
// occupied, and the lock window keeps a concurrent book from slipping in
// behind the check.
func (h *AdminHandler) DeleteLot(c echo.Context) error {
	lotID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	err = database.WithTx(ctx, h.Lots.DB(), func(tx *sql.Tx) error {
		if _, err := h.Lots.GetByIDTx(ctx, tx, lotID); err != nil {
			return err
		}
		spotIDs, occupied, err := h.Spots.LockAllTx(ctx, tx, lotID)
		if err != nil {
			return err
		}
		if occupied > 0 {
			return repository.ErrLotOccupied
		}
		if err := h.Bookings.DeleteBySpotIDsTx(ctx, tx, spotIDs); err != nil {
			return err
		}
		if err := h.Spots.DeleteByIDsTx(ctx, tx, spotIDs); err != nil {
			return err
		}
		return h.Lots.DeleteTx(ctx, tx, lotID)
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "lot deleted"})
}

// ListLots returns all lots with live availability counts.
func (h *AdminHandler) ListLots(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	lots, err := h.Lots.ListWithAvailability(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, lots)
}

// SpotStatuses returns every spot with its occupant, the admin monitoring
// view.
func (h *AdminHandler) SpotStatuses(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	spots, err := h.Spots.ListStatuses(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, spots)
}

// ListUsers returns all registered USER accounts without password hashes.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.ListByRole(ctx, "USER")
	if err != nil {
		return fail(c, err)
	}
	out := make([]userPart, 0, len(users))
	for _, u := range users {
		out = append(out, userPart{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role})
	}
	return c.JSON(http.StatusOK, out)
}
