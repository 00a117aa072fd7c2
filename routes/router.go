package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zmagaj/questlog/config"
	"github.com/zmagaj/questlog/controllers"
	"github.com/zmagaj/questlog/middleware"
	"github.com/zmagaj/questlog/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	r.Use(middleware.RequestID())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	activityController := controllers.NewActivityController(db)
	rewardController := controllers.NewRewardController(db)
	settlementController := controllers.NewSettlementController(db)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/signup", authController.Signup)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", authController.Logout)
	authGroup.GET("/me", middleware.AuthOptional(), authController.Me)

	// Public catalogues
	api.GET("/activity-types", activityController.ListTypes)
	api.GET("/rewards", rewardController.List)
	api.GET("/stats/overview", statsController.Overview)

	// Settlement triggers. The daily close accepts anonymous calls so the
	// scheduler can hit it; a present identity must be the GM (checked in
	// the handler). The weekly close is GM only.
	api.POST("/settlements/daily", middleware.AuthOptional(), settlementController.DailyClose)

	// Redemption resolves the caller from the session when present, or from
	// the legacy auth_id body field for sessionless clients, so the route
	// must not require a session up front.
	api.POST("/rewards/redeem", middleware.AuthOptional(), rewardController.Redeem)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired())
	protected.POST("/activities", activityController.Create)
	protected.GET("/activities/mine", activityController.ListMine)
	protected.GET("/redemptions/mine", rewardController.ListMyRedemptions)
	protected.GET("/stats/me", statsController.MyStats)
	protected.GET("/stats/daily", statsController.DailySummaries)
	protected.GET("/stats/weekly", statsController.WeeklySummaries)

	gm := api.Group("")
	gm.Use(middleware.AuthRequired(), middleware.RequireGM())
	gm.GET("/activities/pending", activityController.ListPending)
	gm.POST("/activities/approve", activityController.Approve)
	gm.POST("/activity-types", activityController.CreateType)
	gm.POST("/rewards", rewardController.CreateReward)
	gm.POST("/settlements/weekly", settlementController.WeeklyClose)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
