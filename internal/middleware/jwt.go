package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/office-booking/internal/model"
	"github.com/iliyamo/office-booking/internal/utils"
)

// RoleLookup resolves the current role of a profile.  *repository.ProfileRepo
// implements it.
type RoleLookup interface {
	RoleOf(ctx context.Context, id string) (string, error)
}

// JWTAuth validates a Bearer access token and injects the user id, email
// and role into the context.  The role is read from the profile on every
// request; a lookup failure falls back to the least privileged role.
func JWTAuth(secret string, roles RoleLookup, log *logrus.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Missing or invalid authorization header"})
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired token"})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
			defer cancel()
			role, err := roles.RoleOf(ctx, claims.Subject)
			if err != nil || !model.ValidRole(role) {
				if err != nil {
					log.WithError(err).WithField("user_id", claims.Subject).Warn("role lookup failed, using default role")
				}
				role = model.RoleUser
			}

			c.Set(CtxUserID, claims.Subject)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxRole, role)
			return next(c)
		}
	}
}
