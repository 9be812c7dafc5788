package handler // handler defines the HTTP endpoints

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-spot-reservation/internal/database"
	"github.com/iliyamo/parking-spot-reservation/internal/repository"
)

// getUserID extracts the authenticated user's ID from the context. The JWT
// middleware stores the sub claim, which arrives as float64 after JSON
// decoding.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// fail translates a repository error into the matching HTTP response.
// Conflicts map to 409, missing resources to 404, exhausted lock retries
// to 503 and anything unexpected to 500.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrLotNotFound),
		errors.Is(err, repository.ErrSpotNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrNoActiveBooking):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrAlreadyBooked),
		errors.Is(err, repository.ErrLotFull),
		errors.Is(err, repository.ErrDuplicateLotName),
		errors.Is(err, repository.ErrInsufficientRemovableSpots),
		errors.Is(err, repository.ErrLotOccupied):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, database.ErrTxContended):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily unavailable, please retry"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
