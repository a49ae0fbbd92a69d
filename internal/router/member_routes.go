package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-booking/internal/middleware"
)

// RegisterMember registers endpoints for any signed-in user.  Ownership of
// bookings and profiles is checked in the handlers, which let admins act on
// anyone's records.
func RegisterMember(api *echo.Group, d Deps) {
	g := api.Group("", middleware.JWTAuth(d.Cfg.JWTSecret, d.Roles, d.Log))

	g.POST("/bookings", d.Bookings.Create,
		middleware.NewFixedWindow(d.RateLimit, d.RateLimit.Strict, d.Redis, d.Log))
	g.GET("/bookings/user/:user_id", d.Bookings.ListByUser)
	g.DELETE("/bookings/:id", d.Bookings.Cancel)

	g.GET("/profiles/:id", d.Profiles.Get)
	g.PUT("/profiles/:id", d.Profiles.Update)
}
