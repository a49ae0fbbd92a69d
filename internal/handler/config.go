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
	"github.com/iliyamo/office-booking/internal/utils"
)

// CatalogStore is implemented by *repository.CatalogRepo.
type CatalogStore interface {
	ListRoomTypes(ctx context.Context) ([]model.RoomType, error)
	CreateRoomType(ctx context.Context, rt *model.RoomType) error
	DeleteRoomType(ctx context.Context, id string) error
	ListAmenities(ctx context.Context) ([]model.Amenity, error)
	CreateAmenity(ctx context.Context, a *model.Amenity) error
	DeleteAmenity(ctx context.Context, id string) error
}

// UserDirectory is the admin view of profiles.
type UserDirectory interface {
	List(ctx context.Context) ([]model.Profile, error)
	UpdateRole(ctx context.Context, id, role string) (*model.Profile, error)
}

// ConfigHandler serves the admin settings screens: room categories,
// amenities and user roles.
type ConfigHandler struct {
	Catalog CatalogStore
	Users   UserDirectory
	Audit   AuditRecorder
}

func NewConfigHandler(catalog CatalogStore, users UserDirectory, audit AuditRecorder) *ConfigHandler {
	return &ConfigHandler{Catalog: catalog, Users: users, Audit: audit}
}

type roomTypeReq struct {
	Label string `json:"label" validate:"required,max=100"`
}

type amenityReq struct {
	Label string `json:"label" validate:"required,max=100"`
	Icon  string `json:"icon" validate:"max=50"`
}

type roleReq struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// slugFor derives the stored value of a label.
func slugFor(label string) (string, error) {
	v := utils.Slugify(label)
	if v == "" {
		return "", apperror.Validation("Validation failed",
			apperror.FieldError{Field: "label", Message: "must contain letters or digits"})
	}
	return v, nil
}

// --- room types ---

func (h *ConfigHandler) ListRoomTypes(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Catalog.ListRoomTypes(ctx)
	if err != nil {
		return apperror.Internal("Failed to fetch room types", err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ConfigHandler) CreateRoomType(c echo.Context) error {
	var req roomTypeReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	label := strings.TrimSpace(req.Label)
	value, err := slugFor(label)
	if err != nil {
		return err
	}
	rt := &model.RoomType{ID: uuid.NewString(), Value: value, Label: label, CreatedAt: time.Now().UTC()}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Catalog.CreateRoomType(ctx, rt); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperror.Conflict("Room type already exists")
		}
		return apperror.Internal("Failed to create room type", err)
	}
	h.Audit.Record(actorOf(c).ID, model.ActionConfigCreate, map[string]any{"room_type": label, "value": value})
	return c.JSON(http.StatusCreated, rt)
}

func (h *ConfigHandler) DeleteRoomType(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Catalog.DeleteRoomType(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRoomTypeNotFound) {
			return apperror.NotFound("Room type")
		}
		return apperror.Internal("Failed to delete room type", err)
	}
	h.Audit.Record(actorOf(c).ID, model.ActionConfigDelete, map[string]any{"room_type_id": id})
	return c.JSON(http.StatusOK, echo.Map{"message": "Deleted"})
}

// --- amenities ---

func (h *ConfigHandler) ListAmenities(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Catalog.ListAmenities(ctx)
	if err != nil {
		return apperror.Internal("Failed to fetch amenities", err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ConfigHandler) CreateAmenity(c echo.Context) error {
	var req amenityReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	label := strings.TrimSpace(req.Label)
	value, err := slugFor(label)
	if err != nil {
		return err
	}
	a := &model.Amenity{
		ID:        uuid.NewString(),
		Value:     value,
		Label:     label,
		Icon:      strings.TrimSpace(req.Icon),
		CreatedAt: time.Now().UTC(),
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Catalog.CreateAmenity(ctx, a); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperror.Conflict("Amenity already exists")
		}
		return apperror.Internal("Failed to create amenity", err)
	}
	h.Audit.Record(actorOf(c).ID, model.ActionConfigCreate, map[string]any{"amenity": label, "value": value})
	return c.JSON(http.StatusCreated, a)
}

func (h *ConfigHandler) DeleteAmenity(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Catalog.DeleteAmenity(ctx, id); err != nil {
		if errors.Is(err, repository.ErrAmenityNotFound) {
			return apperror.NotFound("Amenity")
		}
		return apperror.Internal("Failed to delete amenity", err)
	}
	h.Audit.Record(actorOf(c).ID, model.ActionConfigDelete, map[string]any{"amenity_id": id})
	return c.JSON(http.StatusOK, echo.Map{"message": "Deleted"})
}

// --- users ---

// GET /api/config/users
func (h *ConfigHandler) ListUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Users.List(ctx)
	if err != nil {
		return apperror.Internal("Failed to fetch users", err)
	}
	return c.JSON(http.StatusOK, out)
}

// PUT /api/config/users/:id/role
func (h *ConfigHandler) UpdateUserRole(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req roleReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Users.UpdateRole(ctx, id, req.Role)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return apperror.NotFound("User")
		}
		return apperror.Internal("Failed to update role", err)
	}
	h.Audit.Record(actorOf(c).ID, model.ActionUserRoleChange, map[string]any{
		"user_id": id,
		"email":   p.Email,
		"role":    p.Role,
	})
	return c.JSON(http.StatusOK, p)
}
