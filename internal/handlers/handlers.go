// Package handlers is the JSON HTTP surface. Handlers translate requests into
// service calls; every rule lives in the services.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"wheeldeals/internal/config"
	"wheeldeals/internal/middleware"
	"wheeldeals/internal/models"
	"wheeldeals/internal/repository"
	"wheeldeals/internal/service"
)

// Pinger is a dependency the health check reports on.
type Pinger interface {
	Ping(ctx context.Context) error
}

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

// RedisPinger adapts a Redis client for the health check. A nil client
// yields a nil Pinger.
func RedisPinger(client *redis.Client) Pinger {
	if client == nil {
		return nil
	}
	return redisPinger{client: client}
}

type Services struct {
	Auth        *service.AuthService
	Listings    *service.ListingService
	Inspections *service.InspectionService
	Reports     *service.ReportService
	Admin       *service.AdminService
}

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	store       repository.Store
	cache       Pinger
	auth        *service.AuthService
	listings    *service.ListingService
	inspections *service.InspectionService
	reports     *service.ReportService
	admin       *service.AdminService
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, store repository.Store, cache Pinger, svc Services) HandlerSet {
	return HandlerSet{
		log:         log,
		cfg:         cfg,
		store:       store,
		cache:       cache,
		auth:        svc.Auth,
		listings:    svc.Listings,
		inspections: svc.Inspections,
		reports:     svc.Reports,
		admin:       svc.Admin,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	secret := h.cfg.Security.JWTAccessSecret
	requireAuth := middleware.Auth(secret, h.store.Users(), h.store.Sessions())
	optionalAuth := middleware.OptionalAuth(secret, h.store.Users(), h.store.Sessions())

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", h.SignUp)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/guest", h.Guest)

	account := v1.Group("/auth", requireAuth)
	account.POST("/logout", h.Logout)
	account.GET("/me", h.Me)
	account.GET("/sessions", h.ListSessions)
	account.DELETE("/sessions/:deviceId", h.RevokeSession)

	public := v1.Group("/cars", optionalAuth)
	public.GET("", h.BrowseCars)
	public.GET("/:id", h.GetCar)
	public.GET("/:id/inspections", h.CompletedInspections)

	cars := v1.Group("/cars", requireAuth)
	cars.POST("", h.SubmitCar)
	cars.PUT("/:id", h.UpdateCar)
	cars.DELETE("/:id", h.DeleteCar)
	cars.GET("/:id/inspections/eligibility", h.Eligibility)
	cars.POST("/:id/inspections", h.RequestInspection)

	v1.GET("/me/cars", requireAuth, h.MyCars)

	insp := v1.Group("/inspections", requireAuth)
	insp.GET("/mine", h.MyInspections)
	insp.GET("/pool", h.InspectionPool)
	insp.GET("/:id", h.GetInspection)
	insp.POST("/:id/accept", h.AcceptInspection)
	insp.POST("/:id/reject", h.RejectInspection)
	insp.POST("/:id/assign", h.AssignInspection)
	insp.POST("/:id/start", h.StartInspection)
	insp.POST("/:id/report", h.SubmitReport)
	insp.GET("/:id/report", h.GetReport)
	insp.GET("/:id/report/photos/:photoId", h.ReportPhoto)

	admin := v1.Group("/admin", requireAuth, middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/users", h.AdminListUsers)
	admin.PATCH("/users/:id/role", h.AdminChangeRole)
	admin.DELETE("/users/:id", h.AdminDeleteUser)
	admin.GET("/cars", h.AdminListCars)
	admin.POST("/cars/:id/moderate", h.AdminModerateCar)
	admin.DELETE("/cars/:id", h.AdminDeleteCar)
	admin.GET("/inspections", h.AdminListInspections)
	admin.POST("/inspections/:id/reassign", h.AdminReassign)
}
