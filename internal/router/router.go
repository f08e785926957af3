package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/greenli8/idea-validator/internal/config"
	"github.com/greenli8/idea-validator/internal/handler"
	"github.com/greenli8/idea-validator/internal/middleware"
)

// Handlers collects everything the route table needs.
type Handlers struct {
	Auth     *handler.AuthHandler
	Analyze  *handler.AnalyzeHandler
	Reports  *handler.ReportHandler
	Users    *handler.UserHandler
	Payments *handler.PaymentHandler
	Waitlist *handler.WaitlistHandler
}

// Register wires every route. Public endpoints (health, auth, waitlist, the
// Stripe webhook) sit outside the JWT group; everything else requires a valid
// access token and passes the rate limiter.
func Register(e *echo.Echo, db *sql.DB, rdb *redis.Client, cfg config.Config, h Handlers) {
	e.GET("/healthz", handler.Health(db))

	auth := e.Group("/v1/auth")
	auth.POST("/signup", h.Auth.Signup)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/google", h.Auth.GoogleLogin)

	e.POST("/v1/waitlist", h.Waitlist.Join)
	// Stripe calls this; it authenticates via the Stripe-Signature header.
	e.POST("/v1/payments/webhook", h.Payments.Webhook)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	v1.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	v1.POST("/analyze", h.Analyze.Analyze)
	v1.POST("/chat", h.Analyze.Chat)

	v1.GET("/reports", h.Reports.List)
	v1.GET("/reports/:id", h.Reports.Get)
	v1.DELETE("/reports", h.Reports.Clear)

	v1.GET("/users/me", h.Users.Me)
	v1.GET("/users/credits", h.Users.Credits)
	v1.PUT("/users/profile", h.Users.UpdateProfile)
	v1.DELETE("/users/me", h.Users.Delete)

	v1.POST("/payments/checkout", h.Payments.CreateCheckout)
}
