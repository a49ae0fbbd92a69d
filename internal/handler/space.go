package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-booking/internal/apperror"
	"github.com/iliyamo/office-booking/internal/model"
	"github.com/iliyamo/office-booking/internal/repository"
)

// SpaceStore is implemented by *repository.SpaceRepo.
type SpaceStore interface {
	ListByFloor(ctx context.Context, floorID string) ([]model.Space, error)
	ListAll(ctx context.Context) ([]model.SpaceWithFloor, error)
	GetByID(ctx context.Context, id string) (*model.Space, error)
	Save(ctx context.Context, sp *model.Space) error
	Update(ctx context.Context, id string, p model.SpacePatch) (*model.Space, error)
	SetActive(ctx context.Context, id string, active bool) (*model.Space, error)
	DeleteCascade(ctx context.Context, id string) (repository.CascadeResult, error)
}

type SpaceHandler struct {
	Spaces SpaceStore
	Audit  AuditRecorder
}

func NewSpaceHandler(spaces SpaceStore, audit AuditRecorder) *SpaceHandler {
	return &SpaceHandler{Spaces: spaces, Audit: audit}
}

type saveSpaceReq struct {
	ID          string          `json:"id" validate:"omitempty,uuid"`
	FloorID     string          `json:"floor_id" validate:"required,uuid"`
	Name        string          `json:"name" validate:"required,max=100"`
	Type        string          `json:"type" validate:"required,max=100"`
	Capacity    *int            `json:"capacity" validate:"omitempty,gt=0"`
	Coordinates json.RawMessage `json:"coordinates"`
	Description string          `json:"description" validate:"max=500"`
	Amenities   []string        `json:"amenities" validate:"omitempty,dive,max=100"`
}

type updateSpaceReq struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Type        *string  `json:"type" validate:"omitempty,min=1,max=100"`
	Capacity    *int     `json:"capacity" validate:"omitempty,gt=0"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Amenities   []string `json:"amenities" validate:"omitempty,dive,max=100"`
}

type spaceStatusReq struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// GET /api/spaces?floor_id=
func (h *SpaceHandler) ListByFloor(c echo.Context) error {
	floorID := strings.TrimSpace(c.QueryParam("floor_id"))
	if floorID == "" {
		return apperror.Validation("Floor ID is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	spaces, err := h.Spaces.ListByFloor(ctx, floorID)
	if err != nil {
		return apperror.Internal("Failed to fetch spaces", err)
	}
	return c.JSON(http.StatusOK, spaces)
}

// GET /api/admin/spaces
func (h *SpaceHandler) ListAll(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	spaces, err := h.Spaces.ListAll(ctx)
	if err != nil {
		return apperror.Internal("Failed to fetch spaces", err)
	}
	return c.JSON(http.StatusOK, spaces)
}

// POST /api/spaces creates a space, or replaces it when the body carries
// the id of an existing one.
func (h *SpaceHandler) Save(c echo.Context) error {
	var req saveSpaceReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	created := req.ID == ""
	sp := &model.Space{
		ID:          req.ID,
		FloorID:     req.FloorID,
		Name:        strings.TrimSpace(req.Name),
		Type:        strings.TrimSpace(req.Type),
		Capacity:    1,
		Coordinates: req.Coordinates,
		Description: req.Description,
		Amenities:   req.Amenities,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	if created {
		sp.ID = uuid.NewString()
	}
	if req.Capacity != nil {
		sp.Capacity = *req.Capacity
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Spaces.Save(ctx, sp); err != nil {
		if errors.Is(err, repository.ErrFloorNotFound) {
			return apperror.NotFound("Floor")
		}
		return apperror.Internal("Failed to save space", err)
	}
	stored, err := h.Spaces.GetByID(ctx, sp.ID)
	if err != nil {
		return apperror.Internal("Failed to load saved space", err)
	}
	h.Audit.Record(actorOf(c).ID, model.ActionSpaceSave, map[string]any{
		"space_id": stored.ID,
		"floor_id": stored.FloorID,
		"name":     stored.Name,
	})
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, stored)
}

// PUT /api/spaces/:id
func (h *SpaceHandler) Update(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req updateSpaceReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	patch := model.SpacePatch{
		Name:        req.Name,
		Type:        req.Type,
		Capacity:    req.Capacity,
		Description: req.Description,
		Amenities:   req.Amenities,
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	sp, err := h.Spaces.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrSpaceNotFound) {
			return apperror.NotFound("Space")
		}
		return apperror.Internal("Failed to update space", err)
	}
	if !patch.Empty() {
		h.Audit.Record(actorOf(c).ID, model.ActionSpaceUpdate, map[string]any{"space_id": id, "name": sp.Name})
	}
	return c.JSON(http.StatusOK, sp)
}

// PUT /api/config/spaces/:id/status switches maintenance mode.
func (h *SpaceHandler) SetStatus(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req spaceStatusReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	sp, err := h.Spaces.SetActive(ctx, id, *req.IsActive)
	if err != nil {
		if errors.Is(err, repository.ErrSpaceNotFound) {
			return apperror.NotFound("Space")
		}
		return apperror.Internal("Failed to update space status", err)
	}
	state := "Maintenance"
	if sp.IsActive {
		state = "Active"
	}
	h.Audit.Record(actorOf(c).ID, model.ActionMaintenanceToggle, map[string]any{
		"space_id": id,
		"name":     sp.Name,
		"status":   state,
	})
	return c.JSON(http.StatusOK, sp)
}

// DELETE /api/spaces/:id removes the space and its bookings.
func (h *SpaceHandler) Delete(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Spaces.DeleteCascade(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSpaceNotFound) {
			return apperror.NotFound("Space")
		}
		return apperror.Internal("Failed to delete space", err)
	}
	h.Audit.Record(actorOf(c).ID, model.ActionSpaceDelete, map[string]any{
		"space_id":         id,
		"bookings_deleted": res.Bookings,
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "Space deleted", "bookings_deleted": res.Bookings})
}
