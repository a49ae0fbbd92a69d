package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-booking/internal/middleware"
	"github.com/iliyamo/office-booking/internal/model"
)

// RegisterAdmin registers admin-only endpoints.  Every route requires a
// valid JWT and the admin role; writes also pass the strict rate-limit tier
// and drop the cached listings they affect.
func RegisterAdmin(api *echo.Group, d Deps) {
	g := api.Group("",
		middleware.JWTAuth(d.Cfg.JWTSecret, d.Roles, d.Log),
		middleware.RequireRole(model.RoleAdmin),
	)
	strict := middleware.NewFixedWindow(d.RateLimit, d.RateLimit.Strict, d.Redis, d.Log)
	purge := func(groups ...string) echo.MiddlewareFunc {
		return middleware.InvalidateOnSuccess(d.Cache, d.Redis, d.Log, groups...)
	}
	floorsChanged := purge(middleware.CacheGroupFloors, middleware.CacheGroupSpaces)
	spacesChanged := purge(middleware.CacheGroupSpaces)
	catalogChanged := purge(middleware.CacheGroupCatalog)

	// ---- Floors ----
	g.POST("/floors", d.Floors.Create, strict, floorsChanged)
	g.PUT("/floors/:id", d.Floors.Update, strict, floorsChanged)
	g.DELETE("/floors/:id", d.Floors.Delete, strict, floorsChanged)

	// ---- Spaces ----
	g.GET("/admin/spaces", d.Spaces.ListAll)
	g.POST("/spaces", d.Spaces.Save, strict, spacesChanged)
	g.PUT("/spaces/:id", d.Spaces.Update, strict, spacesChanged)
	g.DELETE("/spaces/:id", d.Spaces.Delete, strict, spacesChanged)
	g.PUT("/config/spaces/:id/status", d.Spaces.SetStatus, strict, spacesChanged)

	// ---- Bookings ----
	g.GET("/admin/bookings", d.Bookings.ListAll)

	// ---- Config ----
	g.POST("/config/room-types", d.Config.CreateRoomType, strict, catalogChanged)
	g.DELETE("/config/room-types/:id", d.Config.DeleteRoomType, strict, catalogChanged)
	g.POST("/config/amenities", d.Config.CreateAmenity, strict, catalogChanged)
	g.DELETE("/config/amenities/:id", d.Config.DeleteAmenity, strict, catalogChanged)
	g.GET("/config/users", d.Config.ListUsers)
	g.PUT("/config/users/:id/role", d.Config.UpdateUserRole, strict)

	// ---- Logs ----
	g.GET("/admin/logs", d.Logs.List)
}
