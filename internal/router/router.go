package router

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/parking-slot-reservation/internal/config"
	"github.com/iliyamo/parking-slot-reservation/internal/handler"
	"github.com/iliyamo/parking-slot-reservation/internal/middleware"
	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	Sessions *handler.SessionHandler
	Slots    *handler.SlotHandler
	Vehicles *handler.VehicleHandler
	Rates    *handler.RateHandler
}

// RegisterRoutes mounts all endpoints on the Echo instance.  rdb may be
// nil; rate limiting and response caching then become pass-throughs.
func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	// Auth endpoints are rate limited harder than the rest of the API:
	// they are the brute-force surface.
	auth := e.Group("/v1/auth", middleware.RateLimit(rdb, 20, time.Minute))
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	api := e.Group("/v1",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.RateLimit(rdb, 300, time.Minute),
	)
	api.GET("/me", h.Auth.Me)

	elevated := middleware.RequireRole(model.RoleOperator, model.RoleAdmin)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	// Sessions: customers book and cancel their own; entry/exit and
	// force-cancel are gate operations.
	api.POST("/sessions", h.Sessions.Book)
	api.GET("/sessions", h.Sessions.Mine)
	api.DELETE("/sessions/:id", h.Sessions.Cancel)
	api.GET("/sessions/:id/fee", h.Sessions.Fee)
	api.POST("/sessions/walk-in", h.Sessions.WalkIn, elevated)
	api.POST("/sessions/:id/activate", h.Sessions.Activate, elevated)
	api.POST("/sessions/:id/end", h.Sessions.End, elevated)
	api.POST("/sessions/:id/payment", h.Sessions.Payment, elevated)
	api.DELETE("/sessions/:id/force", h.Sessions.ForceCancel, elevated)
	api.GET("/sessions/active", h.Sessions.Active, elevated)
	api.GET("/sessions/reservations", h.Sessions.Reservations, elevated)
	api.GET("/stats/revenue", h.Sessions.Revenue, elevated)

	// Slot inventory: browsing is open to all users (and briefly cached,
	// it is the hottest read); mutation is admin.
	api.GET("/slots", h.Slots.List, middleware.CacheGET(rdb, 5*time.Second))
	api.GET("/slots/:id", h.Slots.Get)
	api.POST("/slots", h.Slots.Create, adminOnly)
	api.PATCH("/slots/:id", h.Slots.SetActive, adminOnly)
	api.DELETE("/slots/:id", h.Slots.Delete, adminOnly)

	// Vehicles are owner-scoped inside the handler.
	api.POST("/vehicles", h.Vehicles.Create)
	api.GET("/vehicles", h.Vehicles.List)
	api.PUT("/vehicles/:id", h.Vehicles.Update)
	api.DELETE("/vehicles/:id", h.Vehicles.Delete)

	// Hourly rates: reading is open, writing is admin.
	api.GET("/rates", h.Rates.List)
	api.PUT("/rates", h.Rates.Upsert, adminOnly)
	api.DELETE("/rates/:category", h.Rates.Delete, adminOnly)
}
