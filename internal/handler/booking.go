package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-spot-reservation/internal/database"
	"github.com/iliyamo/parking-spot-reservation/internal/queue"
	"github.com/iliyamo/parking-spot-reservation/internal/repository"
	"github.com/iliyamo/parking-spot-reservation/internal/service"
)

// BookingHandler implements the booking lifecycle: book a spot, release
// it, and read active and past bookings. Book and release run inside a
// retried transaction so lock conflicts under load surface as a clean
// retry instead of an error response.
type BookingHandler struct {
	Lots     *repository.LotRepo
	Spots    *repository.SpotRepo
	Bookings *repository.BookingRepo
}

func NewBookingHandler(lots *repository.LotRepo, spots *repository.SpotRepo, bookings *repository.BookingRepo) *BookingHandler {
	if lots == nil || spots == nil || bookings == nil {
		panic("nil repository passed to NewBookingHandler")
	}
	return &BookingHandler{Lots: lots, Spots: spots, Bookings: bookings}
}

type bookResp struct {
	BookingID  uint64    `json:"booking_id"`
	LotID      uint64    `json:"lot_id"`
	LotName    string    `json:"lot_name"`
	SpotID     uint64    `json:"spot_id"`
	SpotNumber uint32    `json:"spot_number"`
	StartTime  time.Time `json:"start_time"`
}

// Book allocates the lowest-numbered available spot in a lot to the
// current user and opens a booking on it. One transaction covers the
// already-booked check, the spot pick, the status flip and the insert:
// two users racing for the last spot serialize on the spot row lock, and
// one user double-submitting serializes on their own booking rows.
func (h *BookingHandler) Book(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	lotID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	lot, err := h.Lots.GetByID(ctx, lotID)
	if err != nil {
		return fail(c, err)
	}

	var (
		booking *repository.Booking
		spot    *repository.Spot
	)
	err = database.WithTx(ctx, h.Lots.DB(), func(tx *sql.Tx) error {
		if _, err := h.Bookings.ActiveForUpdateTx(ctx, tx, uid); err == nil {
			return repository.ErrAlreadyBooked
		} else if !errors.Is(err, repository.ErrNoActiveBooking) {
			return err
		}

		s, err := h.Spots.FirstAvailableForUpdateTx(ctx, tx, lotID)
		if err != nil {
			return err
		}
		if err := h.Spots.SetStatusTx(ctx, tx, s.ID, repository.SpotOccupied); err != nil {
			return err
		}
		b, err := h.Bookings.CreateTx(ctx, tx, uid, s.ID, time.Now().UTC())
		if err != nil {
			return err
		}
		booking, spot = b, s
		return nil
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusCreated, bookResp{
		BookingID:  booking.ID,
		LotID:      lot.ID,
		LotName:    lot.Name,
		SpotID:     spot.ID,
		SpotNumber: spot.SpotNumber,
		StartTime:  booking.StartTime,
	})
}

// Release closes the current user's open booking, frees its spot and
// returns the receipt. The cost is computed server-side from the stored
// start time; partial hours bill as full hours. After commit a
// booking.closed event goes to the audit queue; a broker outage never
// fails the release.
func (h *BookingHandler) Release(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var receipt *repository.BookingDetail
	err = database.WithTx(ctx, h.Lots.DB(), func(tx *sql.Tx) error {
		b, err := h.Bookings.ActiveForUpdateTx(ctx, tx, uid)
		if err != nil {
			return err
		}
		detail, err := h.Bookings.DetailByIDTx(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		lot, err := h.Lots.GetByIDTx(ctx, tx, detail.LotID)
		if err != nil {
			return err
		}

		end := time.Now().UTC()
		cost := repository.CostForDuration(b.StartTime, end, lot.PricePerHour)
		if err := h.Bookings.CloseTx(ctx, tx, b.ID, end, cost); err != nil {
			return err
		}
		if err := h.Spots.SetStatusTx(ctx, tx, b.SpotID, repository.SpotAvailable); err != nil {
			return err
		}

		receipt, err = h.Bookings.DetailByIDTx(ctx, tx, b.ID)
		return err
	})
	if err != nil {
		return fail(c, err)
	}

	go publishClosed(uid, receipt)

	return c.JSON(http.StatusOK, receipt)
}

func publishClosed(userID uint64, d *repository.BookingDetail) {
	if d == nil || d.EndTime == nil || d.Cost == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = service.PublishBookingClosed(ctx, queue.BookingClosedEvent{
		BookingID:  d.ID,
		UserID:     userID,
		LotID:      d.LotID,
		LotName:    d.LotName,
		SpotNumber: d.SpotNumber,
		StartTime:  d.StartTime,
		EndTime:    *d.EndTime,
		Cost:       *d.Cost,
		ClosedAt:   time.Now().UTC(),
	})
}

// Active returns the user's open booking, or 404 when there is none.
func (h *BookingHandler) Active(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Bookings.ActiveDetailByUser(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// History returns the user's closed bookings, newest first. Pagination via
// page and page_size query parameters; page_size is capped at 100.
func (h *BookingHandler) History(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Bookings.HistoryByUser(ctx, uid, size, (page-1)*size)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"page":      page,
		"page_size": size,
		"items":     items,
	})
}
