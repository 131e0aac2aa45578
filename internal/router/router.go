package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/saga-lims/saga-store/internal/config"
	"github.com/saga-lims/saga-store/internal/handler"
	"github.com/saga-lims/saga-store/internal/middleware"
)

// Handlers bundles every handler the API mounts.
type Handlers struct {
	Auth       *handler.AuthHandler
	Containers *handler.ContainerHandler
	Samples    *handler.SampleHandler
	Imports    *handler.ImportHandler
	Users      *handler.UserHandler
	Types      *handler.TypeHandler
	Storage    *handler.StorageHandler
	Audit      *handler.AuditHandler
	Backups    *handler.BackupHandler
}

// Register mounts all routes.  Reads are public; every mutating route
// sits behind the admin-secret/bearer-token check.  The Redis-backed
// rate limiter and response cache degrade to no-ops when rdb is nil.
func Register(e *echo.Echo, h Handlers, adminSecret string, users middleware.TokenStore, rdb *redis.Client) {
	e.Use(middleware.Identity())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	e.GET("/", handler.Health)
	e.GET("/healthz", handler.Health)
	e.POST("/api/auth/signin", h.Auth.Signin)

	registerPublic(e, h, rdb)
	registerAdmin(e, h, adminSecret, users)
}

// registerPublic mounts the unauthenticated read endpoints.  List
// routes are cached since the dashboard polls them.
func registerPublic(e *echo.Echo, h Handlers, rdb *redis.Client) {
	g := e.Group("/api", middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	g.GET("/containers", h.Containers.List)
	g.GET("/containers/:id", h.Containers.Get)
	g.GET("/containers/:id/next_free", h.Containers.NextFree)
	g.GET("/samples", h.Samples.List)
	g.GET("/samples/:id", h.Samples.Get)
	g.GET("/sample_types", h.Types.ListSampleTypes)
	g.GET("/container_types", h.Types.ListContainerTypes)
	g.GET("/cold_storage_units", h.Storage.ListColdStorage)
	g.GET("/racks", h.Storage.ListRacks)
	g.GET("/audit", h.Audit.List)

	// The signin page lists initials before any credential exists, so
	// this stays outside the admin gate.  Tokens never leave List.
	g.GET("/authorized_users", h.Users.List)
}

// registerAdmin mounts every mutating endpoint plus the user and
// backup reads, all behind RequireAdmin.
func registerAdmin(e *echo.Echo, h Handlers, adminSecret string, users middleware.TokenStore) {
	g := e.Group("/api", middleware.RequireAdmin(adminSecret, users))

	g.POST("/containers", h.Containers.Create)
	g.PUT("/containers/:id", h.Containers.Update)
	g.PATCH("/containers/:id", h.Containers.Update)
	g.DELETE("/containers/:id", h.Containers.Delete)

	g.PUT("/samples/:id", h.Samples.Update)
	g.PATCH("/samples/:id", h.Samples.Update)
	g.DELETE("/samples/:id", h.Samples.Delete)
	g.POST("/samples/upsert", h.Samples.Upsert)
	g.POST("/samples/checkout", h.Samples.Checkout)
	g.POST("/samples/checkin", h.Samples.Checkin)

	g.POST("/import", h.Imports.Import)
	g.POST("/import/worklist", h.Imports.Worklist)

	g.GET("/admin_users", h.Users.List)
	g.POST("/admin_users", h.Users.Create)
	g.DELETE("/admin_users", h.Users.Delete)

	g.POST("/sample_types", h.Types.CreateSampleType)
	g.POST("/container_types", h.Types.CreateContainerType)
	g.POST("/cold_storage_units", h.Storage.CreateColdStorage)
	g.POST("/racks", h.Storage.CreateRack)

	g.GET("/backups", h.Backups.List)
	g.POST("/backups", h.Backups.Create)
}
