package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"vehicle-rental-api/config"
	"vehicle-rental-api/events"
	"vehicle-rental-api/localqueue"
	"vehicle-rental-api/metrics"
	"vehicle-rental-api/notify"
	"vehicle-rental-api/routes"
	"vehicle-rental-api/service"
	"vehicle-rental-api/store"
	"vehicle-rental-api/upstream"

	"github.com/gin-gonic/gin"
)

func main() {
	// Set Gin mode
	mode := os.Getenv("GIN_MODE")
	if mode == "" {
		gin.SetMode(gin.DebugMode)
	}

	// Load configuration and initialize database
	config.Load()
	config.InitDB()

	// Offline order buffer
	queue, err := localqueue.Open(config.AppEnv.QueueDir)
	if err != nil {
		log.Fatal("Failed to open local order queue:", err)
	}
	defer queue.Close()

	vehicles := store.NewVehicleStore(config.DB)
	bus := events.NewBus()
	mailer := notify.NewMailer(config.AppEnv.MailURL, config.AppEnv.UpstreamToken)
	reg := metrics.NewRegistry()
	api := upstream.NewClient(config.AppEnv.UpstreamURL, config.AppEnv.UpstreamToken)

	svc := service.New(api, queue, vehicles, bus, mailer, reg, config.AppEnv.PollInterval)

	// Background reconciliation: periodic + event-triggered passes
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	// Create Gin router with default middleware (logger + recovery)
	r := gin.Default()

	// CORS middleware for frontend integration
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Vehicle Rental Order Management API",
			"version": "1.0.0",
		})
	})

	// Welcome
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "🚗 Welcome to the Vehicle Rental Order Management API",
			"docs":    "/api/state-machine",
			"health":  "/health",
			"roles":   []string{"customer", "admin"},
		})
	})

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(reg.Handler()))

	// Register all routes
	routes.SetupRoutes(r, svc, vehicles, mailer)

	// Start server
	log.Printf("🚀 Server running on http://localhost:%s", config.AppEnv.Port)
	if err := r.Run(":" + config.AppEnv.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
