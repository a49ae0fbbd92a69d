package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/office-booking/internal/config"
	"github.com/iliyamo/office-booking/internal/handler"
	"github.com/iliyamo/office-booking/internal/middleware"
)

// Deps is everything the route tables need.  Redis may be nil, in which
// case rate limiting and caching are disabled.
type Deps struct {
	Cfg       config.Config
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client
	Log       *logrus.Logger
	Roles     middleware.RoleLookup
	DB        handler.Pinger

	Auth     *handler.AuthHandler
	Floors   *handler.FloorHandler
	Spaces   *handler.SpaceHandler
	Bookings *handler.BookingHandler
	Config   *handler.ConfigHandler
	Profiles *handler.ProfileHandler
	Logs     *handler.LogHandler
}

// New builds the echo instance with the shared middleware chain and every
// route mounted.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = handler.JSONSerializer{}
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log, d.Cfg.IsProduction())

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomw.Recover())
	e.Use(echo.WrapMiddleware(newCORS(d.Cfg).Handler))

	RegisterRoutes(e, d.DB)

	api := e.Group("/api", middleware.NewFixedWindow(d.RateLimit, d.RateLimit.General, d.Redis, d.Log))
	RegisterAuth(api, d)
	RegisterPublic(api, d)
	RegisterMember(api, d)
	RegisterAdmin(api, d)
	return e
}

// RegisterRoutes registers the unauthenticated probes.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/", handler.Root)
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth mounts the identity endpoints under /api/auth behind the
// auth rate-limit tier.
func RegisterAuth(api *echo.Group, d Deps) {
	g := api.Group("/auth", middleware.NewFixedWindow(d.RateLimit, d.RateLimit.Auth, d.Redis, d.Log))
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/logout", d.Auth.Logout)
}

// RegisterPublic registers read endpoints that need no session.  Listings
// that only change through the admin API are cached.
func RegisterPublic(api *echo.Group, d Deps) {
	cache := func(group string) echo.MiddlewareFunc {
		return middleware.NewRedisCache(d.Cache, d.Redis, group)
	}

	api.GET("/floors", d.Floors.List, cache(middleware.CacheGroupFloors))
	api.GET("/floors/:id/stats", d.Floors.Stats)

	api.GET("/spaces", d.Spaces.ListByFloor, cache(middleware.CacheGroupSpaces))

	api.GET("/bookings", d.Bookings.ListBySpace)
	api.GET("/bookings/occupied", d.Bookings.Occupied)

	api.GET("/config/room-types", d.Config.ListRoomTypes, cache(middleware.CacheGroupCatalog))
	api.GET("/config/amenities", d.Config.ListAmenities, cache(middleware.CacheGroupCatalog))
}
