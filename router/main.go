package router

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/post-views-api/config"
	"github.com/sahilchouksey/post-views-api/database"
	"github.com/sahilchouksey/post-views-api/handlers"
	admin_handlers "github.com/sahilchouksey/post-views-api/handlers/admin"
	auth_handlers "github.com/sahilchouksey/post-views-api/handlers/auth"
	post_handlers "github.com/sahilchouksey/post-views-api/handlers/post"
	signal_handlers "github.com/sahilchouksey/post-views-api/handlers/signal"
	views_handlers "github.com/sahilchouksey/post-views-api/handlers/views"
	"github.com/sahilchouksey/post-views-api/services"
	"github.com/sahilchouksey/post-views-api/services/settings"
	"github.com/sahilchouksey/post-views-api/utils/auth"
	"github.com/sahilchouksey/post-views-api/utils/cache"
	"github.com/sahilchouksey/post-views-api/utils/middleware"
	"gorm.io/gorm"
)

// Wiring holds the shared services the app layer also needs (cron jobs run
// against the same registry and signal service the routes use)
type Wiring struct {
	Registry *settings.Registry
	Signals  *services.SignalService
}

func SetupRoutes(app *fiber.App, store database.Storage) *Wiring {
	getEnv, err := config.Get()
	if err != nil {
		log.Fatal("Failed to load environment configuration")
	}

	if getEnv.JWT_SECRET == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := getEnv.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "post-views-api"
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret: getEnv.JWT_SECRET,
		Expiry: 24 * time.Hour,
		Issuer: jwtIssuer,
	})

	// Get DB instance (type assert from interface)
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// Redis backs view dedup and the signal verdict cache; without it both
	// degrade rather than fail
	redisURL := getEnv.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. View dedup and signal caching will be disabled.", err)
		redisCache = nil
	}

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	// Settings registry over the option store; Redis fronts the option
	// documents the counting path reads on every hit
	var optionStore *settings.Store
	if redisCache != nil {
		optionStore = settings.NewCachedStore(db, redisCache)
	} else {
		optionStore = settings.NewStore(db)
	}
	registry := settings.NewRegistry(optionStore)

	// View counting and derived services
	viewsService := services.NewViewsService(db, redisCache)

	var signalService *services.SignalService
	if redisCache != nil {
		signalService = services.NewSignalService(viewsService, redisCache)
	} else {
		signalService = services.NewSignalService(viewsService, nil)
	}
	viewsService.SetInvalidator(signalService.Invalidate)

	chartService := services.NewChartService(viewsService)

	// Object storage export target is optional
	var exportService *services.ExportService
	if getEnv.EXPORT_BUCKET != "" {
		exportService, err = services.NewExportService(db, services.ExportConfig{
			AccessKey: getEnv.EXPORT_ACCESS_KEY,
			SecretKey: getEnv.EXPORT_SECRET_KEY,
			Bucket:    getEnv.EXPORT_BUCKET,
			Region:    getEnv.EXPORT_REGION,
			Endpoint:  getEnv.EXPORT_ENDPOINT,
		})
		if err != nil {
			log.Printf("Warning: export storage unavailable: %v", err)
			exportService = nil
		}
	}

	// Handlers
	authHandler := auth_handlers.NewAuthHandler(db, jwtManager)
	postHandler := post_handlers.NewPostHandler(db, viewsService, signalService)
	viewsHandler := views_handlers.NewViewsHandler(db, viewsService, chartService, registry)
	signalHandler := signal_handlers.NewSignalHandler(db, signalService)
	settingsHandler := admin_handlers.NewSettingsHandler(registry, viewsService, signalService, exportService)

	// Apply security middleware
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	// Health check endpoint (public)
	app.Get("/ping", func(c *fiber.Ctx) error {
		return handlers.HandleCheckHealth(c, store)
	})

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Get("/profile", authMiddleware.Required(), authHandler.Profile)

	// Posts
	posts := api.Group("/posts")
	posts.Get("/", authMiddleware.Required(), postHandler.ListPosts)
	posts.Post("/", authMiddleware.Required(), postHandler.CreatePost)
	posts.Get("/:id", authMiddleware.Required(), postHandler.GetPost)
	posts.Put("/:id", authMiddleware.Required(), postHandler.UpdatePost)
	posts.Delete("/:id", authMiddleware.Required(), postHandler.DeletePost)

	// Public counting endpoint; optional auth feeds the users/guests
	// visitor exclusions
	posts.Post("/:id/count", authMiddleware.Optional(), viewsHandler.CountView)

	// Per-post stats
	posts.Get("/:id/views", authMiddleware.Required(), viewsHandler.GetViews)
	posts.Get("/:id/chart", authMiddleware.Required(), viewsHandler.GetChart)
	posts.Get("/:id/signal", authMiddleware.Required(), signalHandler.GetSignal)

	// Quick-edit overrides and resets (admin)
	posts.Put("/:id/views", authMiddleware.RequireAdmin(), postHandler.SetPostViews)
	posts.Delete("/:id/views", authMiddleware.RequireAdmin(), postHandler.ResetPostViews)

	// Batch signal lookup for the list table
	signals := api.Group("/signals", authMiddleware.Required())
	signals.Post("/batch", signalHandler.BatchSignals)
	signals.Delete("/", authMiddleware.RequireAdmin(), signalHandler.FlushSignals)

	// Settings (admin)
	adminGroup := api.Group("/admin", authMiddleware.RequireAdmin())
	adminGroup.Get("/settings", settingsHandler.ListGroups)
	adminGroup.Get("/settings/:group", settingsHandler.GetValues)
	adminGroup.Post("/settings/:group", settingsHandler.Submit)

	return &Wiring{
		Registry: registry,
		Signals:  signalService,
	}
}
