// Package router wires HTTP routes to handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/parking-spot-reservation/internal/config"
	"github.com/iliyamo/parking-spot-reservation/internal/handler"
	"github.com/iliyamo/parking-spot-reservation/internal/middleware"
)

// Handlers collects every handler the router mounts.
type Handlers struct {
	Auth      *handler.AuthHandler
	Booking   *handler.BookingHandler
	Admin     *handler.AdminHandler
	Dashboard *handler.DashboardHandler
	Export    *handler.ExportHandler
	Public    *handler.PublicHandler
}

// Register mounts all routes. Three surfaces: public (health, lot browse,
// auth), user (booking lifecycle, dashboard, export) and admin (lot
// management, monitoring). The booking mutations carry the rate limiter;
// the public lot listing sits behind the Redis response cache. A nil Redis
// client turns both middlewares into pass-throughs.
func Register(e *echo.Echo, cfg config.Config, rdb *redis.Client, h Handlers) {
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	auth := middleware.JWTAuth(cfg.JWTSecret)

	e.GET("/healthz", handler.Health)

	// public surface
	e.GET("/v1/lots", h.Public.ListLots, cache)

	ag := e.Group("/v1/auth")
	ag.POST("/register", h.Auth.Register)
	ag.POST("/login", h.Auth.Login)
	ag.POST("/refresh", h.Auth.Refresh)
	ag.POST("/logout", h.Auth.Logout, auth)
	ag.GET("/me", h.Auth.Me, auth)

	// authenticated user surface
	ug := e.Group("/v1", auth, middleware.RequireRole("USER", "ADMIN"))
	ug.POST("/lots/:id/book", h.Booking.Book, limiter)
	ug.POST("/bookings/release", h.Booking.Release, limiter)
	ug.GET("/bookings/active", h.Booking.Active)
	ug.GET("/bookings/history", h.Booking.History)
	ug.GET("/dashboard", h.Dashboard.UserDashboard)
	ug.POST("/export/csv", h.Export.RequestCSV, limiter)

	// admin surface
	adm := e.Group("/v1/admin", auth, middleware.RequireRole("ADMIN"))
	adm.POST("/lots", h.Admin.CreateLot)
	adm.GET("/lots", h.Admin.ListLots)
	adm.PUT("/lots/:id", h.Admin.UpdateLot)
	adm.DELETE("/lots/:id", h.Admin.DeleteLot)
	adm.GET("/lots/:id/summary", h.Dashboard.LotDashboard)
	adm.GET("/spots", h.Admin.SpotStatuses)
	adm.GET("/users", h.Admin.ListUsers)
	adm.GET("/summary", h.Dashboard.AdminDashboard)
}
