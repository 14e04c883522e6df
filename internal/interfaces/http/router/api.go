package router

import (
	"github.com/gin-gonic/gin"

	"github.com/distrib/backend/internal/interfaces/http/handler"
	"github.com/distrib/backend/internal/interfaces/http/middleware"
)

// Handlers are the REST handlers mounted by RegisterAPI
type Handlers struct {
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Product *handler.ProductHandler
	Order   *handler.OrderHandler
	Report  *handler.ReportHandler
	System  *handler.SystemHandler
}

// APIConfig holds the middleware shared by the API groups. LoginLimiter may
// be nil to disable throttling of the login endpoint.
type APIConfig struct {
	JWT          middleware.JWTConfig
	LoginLimiter *middleware.RateLimiter
}

// RegisterAPI builds every domain group and queues it on r
func RegisterAPI(r *Router, h Handlers, cfg APIConfig) {
	authenticated := []gin.HandlerFunc{middleware.JWTAuth(cfg.JWT), middleware.TraceIdentity()}

	auth := NewDomainGroup("auth", "/auth")
	login := []gin.HandlerFunc{h.Auth.Login}
	if cfg.LoginLimiter != nil {
		login = append([]gin.HandlerFunc{middleware.RateLimit(cfg.LoginLimiter)}, login...)
	}
	auth.POST("/login", login...)
	auth.POST("/refresh", h.Auth.RefreshToken)
	session := auth.Group("session", "").Use(authenticated...)
	session.POST("/logout", h.Auth.Logout)
	session.GET("/me", h.Auth.GetCurrentUser)
	session.PUT("/password", h.Auth.ChangePassword)

	users := NewDomainGroup("identity", "/users").Use(authenticated...).Use(middleware.RequireAdmin())
	users.POST("", h.User.Create)
	users.GET("", h.User.List)
	users.POST("/:id/deactivate", h.User.Deactivate)

	catalog := NewDomainGroup("catalog", "/products").Use(authenticated...)
	catalog.GET("", h.Product.List)
	catalog.GET("/:id", h.Product.GetByID)
	manage := catalog.Group("catalog-admin", "").Use(middleware.RequireAdmin())
	manage.POST("", h.Product.Create)
	manage.PUT("/:id", h.Product.Update)
	manage.POST("/:id/restock", h.Product.Restock)
	manage.DELETE("/:id", h.Product.Delete)

	orders := NewDomainGroup("trade", "/orders").Use(authenticated...)
	orders.POST("", h.Order.Create)
	orders.GET("", h.Order.List)
	orders.GET("/:id", h.Order.GetByID)
	orders.POST("/:id/approve", h.Order.Approve)
	orders.POST("/:id/reject", h.Order.Reject)
	orders.POST("/:id/receive", h.Order.MarkReceived)
	orders.DELETE("/:id", h.Order.Delete)

	reports := NewDomainGroup("reporting", "/reports").Use(authenticated...)
	reports.GET("/cycle", h.Report.CurrentCycle)
	reports.GET("/availability", h.Report.Availability)
	reports.POST("", h.Report.Submit)
	reports.GET("", h.Report.List)
	reports.GET("/:id", h.Report.GetByID)
	reports.PUT("/:id", h.Report.Revise)
	reports.POST("/:id/approve", h.Report.Approve)
	reports.POST("/:id/reject", h.Report.Reject)
	reports.DELETE("/:id", h.Report.Delete)
	reports.GET("/:id/export", h.Report.Export)

	system := NewDomainGroup("system", "")
	system.GET("/health", h.System.Health)
	system.GET("/system/info", h.System.GetSystemInfo)

	r.Register(auth, users, catalog, orders, reports, system)
}
