package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-booking/internal/apperror"
	"github.com/iliyamo/office-booking/internal/model"
	"github.com/iliyamo/office-booking/internal/service"
)

// Bookings is implemented by *service.BookingService.  Its errors are
// already AppErrors and are returned unchanged.
type Bookings interface {
	TryCreateBooking(ctx context.Context, actor service.Actor, in service.CreateBookingInput) (*model.Booking, error)
	Occupied(ctx context.Context, start, end time.Time, floorID string) ([]string, error)
	ListBySpace(ctx context.Context, spaceID string) ([]model.Booking, error)
	ListByUser(ctx context.Context, actor service.Actor, userID string) ([]model.UserBooking, error)
	ListAll(ctx context.Context) ([]model.AdminBooking, error)
	Cancel(ctx context.Context, actor service.Actor, id string) error
}

type BookingHandler struct {
	Bookings Bookings
}

func NewBookingHandler(b Bookings) *BookingHandler {
	return &BookingHandler{Bookings: b}
}

type createBookingReq struct {
	SpaceID   string    `json:"space_id" validate:"required,uuid"`
	UserID    string    `json:"user_id" validate:"omitempty,uuid"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// POST /api/bookings
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.TryCreateBooking(ctx, actorOf(c), service.CreateBookingInput{
		SpaceID:   req.SpaceID,
		UserID:    req.UserID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

// GET /api/bookings?space_id=
func (h *BookingHandler) ListBySpace(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Bookings.ListBySpace(ctx, strings.TrimSpace(c.QueryParam("space_id")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// GET /api/bookings/occupied?start_time=&end_time=[&floor_id=]
func (h *BookingHandler) Occupied(c echo.Context) error {
	start, err := queryTime(c, "start_time")
	if err != nil {
		return err
	}
	end, err := queryTime(c, "end_time")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	ids, err := h.Bookings.Occupied(ctx, start, end, strings.TrimSpace(c.QueryParam("floor_id")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ids)
}

// GET /api/bookings/user/:user_id
func (h *BookingHandler) ListByUser(c echo.Context) error {
	userID, err := pathUUID(c, "user_id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Bookings.ListByUser(ctx, actorOf(c), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// GET /api/admin/bookings
func (h *BookingHandler) ListAll(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Bookings.ListAll(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// DELETE /api/bookings/:id
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Bookings.Cancel(ctx, actorOf(c), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking cancelled"})
}

// queryTime parses an RFC 3339 timestamp with offset from the query string.
func queryTime(c echo.Context, name string) (time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return time.Time{}, apperror.Validation("Validation failed",
			apperror.FieldError{Field: name, Message: name + " is required"})
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperror.Validation("Validation failed",
			apperror.FieldError{Field: name, Message: "Invalid " + strings.ReplaceAll(name, "_", " ") + " format"})
	}
	return t, nil
}
