package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fernwiki/fern/analytics"
	"github.com/fernwiki/fern/config"
	"github.com/fernwiki/fern/controllers"
	"github.com/fernwiki/fern/middleware"
	"github.com/fernwiki/fern/users"
	"github.com/fernwiki/fern/utils"
	"github.com/fernwiki/fern/wiki"
)

// SetupRouter wires routes, middlewares, and controllers. The stores are
// constructed here and handed to controllers explicitly; nothing reads them
// ambiently.
func SetupRouter(db *gorm.DB, store *wiki.Store) *gin.Engine {
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
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	tracker := analytics.New(db)
	userStore := users.NewStore(db)

	// Record PV after each successful page display
	r.Use(middleware.PageViewRecorder(tracker))

	r.Static("/uploads", cfg.UploadDir)

	pageController := controllers.NewPageController(store, tracker)
	authController := controllers.NewAuthController(userStore)
	analyticsController := controllers.NewAnalyticsController(tracker)
	uploadController := controllers.NewUploadController(db)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	// Home falls back to a welcome payload until a 'home' page is created.
	r.GET("/", func(ctx *gin.Context) {
		page, err := store.Get("home")
		if err == nil && page != nil {
			utils.Success(ctx, gin.H{
				"url":   page.URL,
				"title": page.DisplayTitle(),
				"tags":  page.Tags,
				"body":  page.Body,
			})
			return
		}
		utils.Success(ctx, gin.H{"message": "welcome, create a 'home' page to replace this"})
	})

	// Analytics endpoints keep the wire shapes the tracker script expects.
	r.POST("/track_page_view", analyticsController.TrackPageView)
	r.POST("/get_view_count", analyticsController.GetViewCount)
	r.POST("/get_timestamps", analyticsController.GetTimestamps)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	api.GET("/user/by-username/:username", authController.GetUserPublicByUsername)

	api.GET("/pages", pageController.Index)
	api.GET("/pages/*url", pageController.Display)
	api.GET("/tags", pageController.Tags)
	api.GET("/tags/:name", pageController.Tag)
	api.POST("/search", pageController.Search)
	api.POST("/preview", pageController.Preview)
	api.GET("/download/*url", pageController.Download)
	api.GET("/gallery", uploadController.Gallery)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.PUT("/pages/*url", pageController.Save)
	protected.DELETE("/pages/*url", pageController.Delete)
	protected.POST("/move/*url", pageController.Move)
	protected.POST("/upload", uploadController.Upload)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
