package routes

import (
	"vehicle-rental-api/handlers"
	"vehicle-rental-api/middleware"
	"vehicle-rental-api/models"
	"vehicle-rental-api/notify"
	"vehicle-rental-api/service"
	"vehicle-rental-api/store"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, svc *service.Service, vehicles store.VehicleStore, mailer notify.Notifier) {
	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		// Auth
		public.POST("/auth/register", handlers.Register)
		public.POST("/auth/login", handlers.Login)

		// Vehicle catalog (no auth needed)
		public.GET("/vehicles", handlers.ListVehicles(vehicles))
		public.GET("/vehicles/:id", handlers.GetVehicle(vehicles))

		// State machine info (great for docs/Postman)
		public.GET("/state-machine", handlers.GetStateMachineInfo)
	}

	// ── Authenticated routes ───────────────────────────────────────
	auth := r.Group("/api")
	auth.Use(middleware.AuthRequired())
	{
		auth.GET("/profile", handlers.GetProfile)
	}

	// ── Customer routes ────────────────────────────────────────────
	customer := r.Group("/api/customer")
	customer.Use(middleware.AuthRequired(), middleware.RoleRequired(models.RoleCustomer, models.RoleAdmin))
	{
		customer.POST("/orders", handlers.CreateOrder(svc))
		customer.GET("/orders", handlers.GetMyOrders(svc))
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired(), middleware.RoleRequired(models.RoleAdmin))
	{
		// Order management
		admin.GET("/orders", handlers.AdminGetOrders(svc))
		admin.GET("/orders/stats", handlers.AdminGetOrderStats(svc))
		admin.PUT("/orders/:id/status", handlers.AdminUpdateOrderStatus(svc))
		admin.DELETE("/orders/:id", handlers.AdminDeleteOrder(svc))
		admin.POST("/orders/clean-invalid", handlers.AdminCleanInvalidOrders(svc))
		admin.POST("/orders/:id/payment-reminder", handlers.AdminSendPaymentReminder(mailer))
		admin.POST("/orders/:id/rental-summary", handlers.AdminSendRentalSummary(mailer))

		// Vehicle management
		admin.POST("/vehicles", handlers.CreateVehicle(vehicles))
		admin.PUT("/vehicles/:id", handlers.UpdateVehicle(vehicles))
		admin.DELETE("/vehicles/:id", handlers.DeleteVehicle(vehicles))
		admin.POST("/vehicles/refresh-availability", handlers.RefreshAvailability(svc))

		// Users
		admin.GET("/users", handlers.AdminGetAllUsers)
	}
}
