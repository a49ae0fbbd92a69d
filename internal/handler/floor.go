package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-booking/internal/apperror"
	"github.com/iliyamo/office-booking/internal/model"
	"github.com/iliyamo/office-booking/internal/repository"
)

// FloorStore is implemented by *repository.FloorRepo.
type FloorStore interface {
	List(ctx context.Context) ([]model.Floor, error)
	Create(ctx context.Context, f *model.Floor) error
	Update(ctx context.Context, id, name string, width, height *int) (*model.Floor, error)
	DeleteCascade(ctx context.Context, id string) (repository.CascadeResult, error)
	Stats(ctx context.Context, id string, now time.Time) (*model.FloorStats, error)
}

type FloorHandler struct {
	Floors FloorStore
	Audit  AuditRecorder
}

func NewFloorHandler(floors FloorStore, audit AuditRecorder) *FloorHandler {
	return &FloorHandler{Floors: floors, Audit: audit}
}

type floorReq struct {
	Name   string `json:"name" validate:"required,max=100"`
	Width  *int   `json:"width" validate:"omitempty,gt=0"`
	Height *int   `json:"height" validate:"omitempty,gt=0"`
}

// GET /api/floors
func (h *FloorHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	floors, err := h.Floors.List(ctx)
	if err != nil {
		return apperror.Internal("Failed to fetch floors", err)
	}
	return c.JSON(http.StatusOK, floors)
}

// POST /api/floors
func (h *FloorHandler) Create(c echo.Context) error {
	var req floorReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	f := &model.Floor{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Width:     req.Width,
		Height:    req.Height,
		CreatedAt: time.Now().UTC(),
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Floors.Create(ctx, f); err != nil {
		return apperror.Internal("Failed to create floor", err)
	}
	h.Audit.Record(actorOf(c).ID, model.ActionFloorCreate, map[string]any{"floor_id": f.ID, "name": f.Name})
	return c.JSON(http.StatusCreated, f)
}

// PUT /api/floors/:id
func (h *FloorHandler) Update(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req floorReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	f, err := h.Floors.Update(ctx, id, strings.TrimSpace(req.Name), req.Width, req.Height)
	if err != nil {
		if errors.Is(err, repository.ErrFloorNotFound) {
			return apperror.NotFound("Floor")
		}
		return apperror.Internal("Failed to update floor", err)
	}
	h.Audit.Record(actorOf(c).ID, model.ActionFloorUpdate, map[string]any{"floor_id": id, "name": f.Name})
	return c.JSON(http.StatusOK, f)
}

// DELETE /api/floors/:id removes the floor with its spaces and bookings.
func (h *FloorHandler) Delete(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Floors.DeleteCascade(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrFloorNotFound) {
			return apperror.NotFound("Floor")
		}
		return apperror.Internal("Failed to delete floor", err)
	}
	h.Audit.Record(actorOf(c).ID, model.ActionFloorDelete, map[string]any{
		"floor_id":         id,
		"spaces_deleted":   res.Spaces,
		"bookings_deleted": res.Bookings,
	})
	return c.JSON(http.StatusOK, echo.Map{
		"message":          "Floor deleted",
		"spaces_deleted":   res.Spaces,
		"bookings_deleted": res.Bookings,
	})
}

// GET /api/floors/:id/stats
func (h *FloorHandler) Stats(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	st, err := h.Floors.Stats(ctx, id, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrFloorNotFound) {
			return apperror.NotFound("Floor")
		}
		return apperror.Internal("Failed to fetch floor stats", err)
	}
	return c.JSON(http.StatusOK, st)
}
