package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-spot-reservation/internal/queue"
	"github.com/iliyamo/parking-spot-reservation/internal/repository"
	"github.com/iliyamo/parking-spot-reservation/internal/service"
)

// ExportHandler accepts CSV export requests and hands them to the worker
// through the export queue. The HTTP response carries only the job ID;
// the CSV itself arrives by email.
type ExportHandler struct {
	Users *repository.UserRepo
}

func NewExportHandler(users *repository.UserRepo) *ExportHandler {
	if users == nil {
		panic("nil repository passed to NewExportHandler")
	}
	return &ExportHandler{Users: users}
}

// RequestCSV enqueues an export of the current user's booking history.
func (h *ExportHandler) RequestCSV(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}

	ev := queue.ExportRequestedEvent{
		JobID:       uuid.NewString(),
		UserID:      u.ID,
		Email:       u.Email,
		Username:    u.Username,
		RequestedAt: time.Now().UTC(),
	}
	if err := service.PublishExportRequested(ctx, ev); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "export queue unavailable"})
	}

	return c.JSON(http.StatusAccepted, echo.Map{
		"job_id":  ev.JobID,
		"message": "export started, you will receive an email",
	})
}
