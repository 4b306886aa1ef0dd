// @title           Songcraft Backend API
// @version         1.0.0
// @description     Backend API for personalised song orders: generation orchestration, credit ledger, and status polling.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"songcraft-backend/internal/config"
	"songcraft-backend/internal/credits"
	"songcraft-backend/internal/database"
	"songcraft-backend/internal/generation"
	"songcraft-backend/internal/handlers"
	"songcraft-backend/internal/middleware"
	"songcraft-backend/internal/services"
	"songcraft-backend/internal/songgen"
	"songcraft-backend/internal/supabase"
	"songcraft-backend/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	// Song provider client
	songgenClient := songgen.NewClient(cfg.SongGenAPIBaseURL, cfg.SongGenAPIKey)

	// Supabase clients
	supabaseClient, err := supabase.NewClient(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Supabase client: %v", err)
	}

	storageClient, err := supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, cfg.SupabaseStorageBucket)
	if err != nil {
		log.Fatalf("Failed to initialize storage client: %v", err)
	}

	realtimeClient := supabase.NewRealtimeClient(supabaseClient.Supabase)

	dbClient, err := supabase.NewDatabaseClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database client: %v", err)
	}
	defer dbClient.Close()

	// Run migrations
	migrator, err := database.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize migrator: %v", err)
	}
	defer migrator.Close()
	if err := migrator.Run(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migrations completed successfully")

	// Core wiring: one renderer, two drivers over the same state machine.
	renderer := services.NewGenerationService(songgenClient, dbClient, storageClient, realtimeClient)
	stepper := generation.NewStepper(dbClient, renderer).WithEvents(realtimeClient)
	orderWorkflow := generation.NewWorkflow(dbClient, renderer,
		workflow.NewEngine(cfg.GenerationMaxAttempts), cfg.RateLimitDelay).
		WithEvents(realtimeClient)
	ledger := credits.NewLedger(dbClient)
	reconciler := generation.NewReconciler(dbClient, cfg.ReconcileStaleAfter)

	// Requeue variants orphaned by killed workers.
	go func() {
		ticker := time.NewTicker(cfg.ReconcileInterval)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := reconciler.Sweep(); err != nil {
				log.Printf("Reconcile sweep failed: %v", err)
			}
		}
	}()

	// Handlers
	ordersHandler := handlers.NewOrdersHandler(dbClient, ledger, orderWorkflow)
	generateHandler := handlers.NewGenerateHandler(dbClient, stepper)
	statusHandler := handlers.NewStatusHandler(dbClient, storageClient)
	variantsHandler := handlers.NewVariantsHandler(dbClient, storageClient)
	creditsHandler := handlers.NewCreditsHandler(ledger)
	webhookHandler := handlers.NewWebhookHandler(cfg, dbClient, orderWorkflow)
	jobsHandler := handlers.NewFailedJobsHandler(dbClient)

	// Setup router
	router := gin.Default()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Health check and share playback (no auth)
	router.GET("/health", handlers.HealthHandler)
	router.GET("/share/:token", variantsHandler.SharePlayback)

	// API routes
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))

	api.POST("/orders", ordersHandler.CreateOrder)
	api.POST("/orders/:order_id/generate", generateHandler.Generate)
	api.GET("/orders/:order_id/status", statusHandler.GetStatus)
	api.GET("/orders/:order_id/variants", variantsHandler.ListVariants)
	api.POST("/orders/:order_id/variants/:variant_id/select", variantsHandler.SelectVariant)
	api.GET("/orders/:order_id/variants/:variant_id/audio", variantsHandler.DownloadVariant)
	api.POST("/orders/:order_id/tweaks", ordersHandler.CreateTweak)
	api.GET("/credits/balance", creditsHandler.GetBalance)
	api.GET("/failed-jobs", jobsHandler.ListFailedJobs)
	api.POST("/failed-jobs/:job_id/resolve", jobsHandler.ResolveFailedJob)

	// Webhook (no auth, uses shared secret)
	router.POST("/api/v1/webhooks/checkout", webhookHandler.HandleCheckout)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
