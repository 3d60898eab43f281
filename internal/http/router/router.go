package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/truck-storefront/internal/config"
	"github.com/ignatzorin/truck-storefront/internal/http/handlers"
	"github.com/ignatzorin/truck-storefront/internal/http/middleware"
	"github.com/ignatzorin/truck-storefront/internal/models"
)

func SetupRouter(
	cfg *config.Config,
	limiterStore limiter.Store,
	gate middleware.GrantChecker,
	otpHandler *handlers.OTPHandler,
	inquiryHandler *handlers.InquiryHandler,
	truckHandler *handlers.TruckHandler,
	healthHandler *handlers.HealthHandler,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	if healthHandler != nil {
		r.GET("/health", healthHandler.Health)
	}

	api := r.Group("/api")

	otpGroup := api.Group("/otp")
	otpGroup.Use(middleware.RateLimitMiddleware(limiterStore, cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		otpGroup.POST("/send", otpHandler.Send)
		otpGroup.POST("/verify", otpHandler.Verify)
	}

	api.POST("/inquiries", inquiryHandler.Create)

	trucks := api.Group("/trucks/:id", middleware.IDValidator("id"))
	{
		trucks.GET("", truckHandler.GetTruck)
		trucks.GET("/report", middleware.RequireLiveGrant(gate, models.OTPPurposeReportView), truckHandler.GetReport)
	}

	return r
}
