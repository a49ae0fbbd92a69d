package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/office-booking/internal/apperror"
	"github.com/iliyamo/office-booking/internal/model"
	"github.com/iliyamo/office-booking/internal/repository"
)

// ProfileStore is implemented by *repository.ProfileRepo.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	Upsert(ctx context.Context, p *model.Profile) (*model.Profile, error)
}

type ProfileHandler struct {
	Profiles ProfileStore
	Audit    AuditRecorder
	Log      *logrus.Logger
	// AllowSelfRoleAssign lets users pick their own role (demo deployments).
	AllowSelfRoleAssign bool
}

func NewProfileHandler(profiles ProfileStore, audit AuditRecorder, log *logrus.Logger, allowSelfRole bool) *ProfileHandler {
	return &ProfileHandler{Profiles: profiles, Audit: audit, Log: log, AllowSelfRoleAssign: allowSelfRole}
}

type updateProfileReq struct {
	FullName   *string `json:"full_name" validate:"omitempty,max=100"`
	Phone      *string `json:"phone" validate:"omitempty,max=20"`
	Department *string `json:"department" validate:"omitempty,max=100"`
	Role       string  `json:"role" validate:"omitempty,oneof=user admin"`
}

// GET /api/profiles/:id
func (h *ProfileHandler) Get(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	actor := actorOf(c)
	if id != actor.ID && !actor.IsAdmin() {
		return apperror.Forbidden("You can only view your own profile")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Profiles.GetByID(ctx, id)
	if errors.Is(err, repository.ErrProfileNotFound) {
		// The UI expects a profile for every signed-in user.
		h.Log.WithField("user_id", id).Warn("profile missing, returning default")
		d := model.DefaultProfile(id)
		return c.JSON(http.StatusOK, echo.Map{
			"id":         d.ID,
			"email":      d.Email,
			"role":       d.Role,
			"full_name":  d.FullName,
			"phone":      d.Phone,
			"department": d.Department,
		})
	}
	if err != nil {
		return apperror.Internal("Failed to fetch profile", err)
	}
	return c.JSON(http.StatusOK, p)
}

// PUT /api/profiles/:id creates or updates the contact details.  Omitted
// fields keep their stored value.
func (h *ProfileHandler) Update(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	actor := actorOf(c)
	if id != actor.ID && !actor.IsAdmin() {
		return apperror.Forbidden("You can only update your own profile")
	}
	var req updateProfileReq
	if err := bindValid(c, &req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	current, err := h.Profiles.GetByID(ctx, id)
	switch {
	case errors.Is(err, repository.ErrProfileNotFound):
		d := model.DefaultProfile(id)
		current = &d
		current.Role = ""
	case err != nil:
		return apperror.Internal("Failed to fetch profile", err)
	default:
		current.Role = ""
	}

	if req.FullName != nil {
		current.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		current.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Department != nil {
		current.Department = strings.TrimSpace(*req.Department)
	}
	if req.Role != "" {
		if actor.IsAdmin() || (id == actor.ID && h.AllowSelfRoleAssign) {
			current.Role = req.Role
		} else {
			h.Log.WithField("user_id", actor.ID).Info("role change ignored on profile update")
		}
	}

	saved, err := h.Profiles.Upsert(ctx, current)
	if err != nil {
		return apperror.Internal("Failed to update profile", err)
	}
	details := map[string]any{"user_id": id}
	if current.Role != "" {
		details["role"] = current.Role
	}
	h.Audit.Record(actor.ID, model.ActionUpdateProfile, details)
	return c.JSON(http.StatusOK, saved)
}
