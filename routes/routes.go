package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"reserva/handlers"
	"reserva/middleware"
)

// RegisterReservationRoutes sets up the endpoints for the booking engine.
func RegisterReservationRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/reservations")
	{
		api.POST("", hb.Booking.CreateReservation)
		api.PUT("/:id", hb.Booking.UpdateReservation)
		api.GET("/:id", hb.Booking.GetReservation)
		api.GET("", hb.Booking.ListReservations)
	}
	r.PUT("/api/payments/:id/status", hb.Booking.UpdatePayment)
}

// RegisterConflictRoutes sets up detection and resolution endpoints.
func RegisterConflictRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/conflicts")
	{
		api.POST("/detect", hb.Conflict.Detect)
		api.POST("/resolve", hb.Conflict.Resolve)
		api.GET("", hb.Conflict.ListOpen)
	}
}

// RegisterAdminRoutes sets up operator endpoints behind admin auth.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle, jwtSecret string) {
	adminGroup := r.Group("/api/admin")
	{
		adminGroup.Use(middleware.AdminAuthMiddleware(jwtSecret))
		adminGroup.POST("/reservations/:id/override", hb.Admin.Override)
		adminGroup.POST("/conflicts/resolve", hb.Admin.ApproveResolution)
		adminGroup.GET("/stats", hb.Admin.Stats)
		adminGroup.GET("/reports/compliance", hb.Admin.Compliance)
		adminGroup.GET("/reports/trends", hb.Admin.Trends)
		adminGroup.POST("/cleanup", hb.Admin.Cleanup)
	}
}

// RegisterHealthRoute registers the health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.Health.Check)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, jwtSecret string, requestsPerMin int) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware(requestsPerMin))

	RegisterHealthRoute(r, hb)
	RegisterReservationRoutes(r, hb)
	RegisterConflictRoutes(r, hb)
	RegisterAdminRoutes(r, hb, jwtSecret)
}
