// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"fmt"
	"time"

	"coursepay/internal/handlers"
	"coursepay/internal/middleware"
	"coursepay/internal/services/course"
	"coursepay/internal/services/purchase"
	"coursepay/internal/services/rechargecode"
	"coursepay/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the services the HTTP layer is wired to.
type Dependencies struct {
	JWTSecret       string
	WalletService   wallet.Service
	PurchaseService *purchase.Service
	CodeService     *rechargecode.Service
	CourseService   *course.Service
	HealthChecks    map[string]handlers.HealthCheckFunc

	// RedeemLimit caps code redemptions per user per minute. Zero uses 10.
	RedeemLimit int
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	walletHandler := handlers.NewWalletHandler(deps.WalletService, deps.PurchaseService, deps.CodeService)
	adminHandler := handlers.NewAdminHandler(deps.WalletService, deps.PurchaseService, deps.CodeService)
	courseHandler := handlers.NewCourseHandler(deps.CourseService)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)

	app.Use(middleware.MetricsMiddleware())
	app.Use(middleware.RequestInfo())

	// Public routes
	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api", middleware.JWTAuth(deps.JWTSecret))

	redeemLimit := deps.RedeemLimit
	if redeemLimit <= 0 {
		redeemLimit = 10
	}

	// Student wallet routes
	walletGroup := api.Group("/wallet")
	walletGroup.Get("/", walletHandler.GetWallet)
	walletGroup.Get("/purchases", walletHandler.ListPurchases)
	walletGroup.Post("/purchases", walletHandler.PurchaseCourse)
	walletGroup.Post("/redeem", limiter.New(limiter.Config{
		Max:        redeemLimit,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return fmt.Sprintf("redeem:%v", c.Locals("userID"))
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}), walletHandler.RedeemCode)

	api.Get("/courses", courseHandler.ListCourses)

	// Admin routes
	admin := api.Group("/admin", middleware.AdminAuthMiddleware)
	admin.Post("/wallets/:student/deposit", adminHandler.Deposit)
	admin.Post("/wallets/:student/withdraw", adminHandler.Withdraw)
	admin.Post("/wallets/:student/manual-deposit", adminHandler.ManualDeposit)
	admin.Post("/purchases/refund", adminHandler.RefundPurchase)
	admin.Post("/recharge-codes", adminHandler.GenerateCodes)
	admin.Post("/courses", courseHandler.CreateCourse)
	admin.Post("/courses/stats/refresh", courseHandler.RefreshStats)
	admin.Patch("/courses/:id/price", courseHandler.UpdatePrice)
	admin.Get("/courses/:id/stats", courseHandler.GetStats)
}
