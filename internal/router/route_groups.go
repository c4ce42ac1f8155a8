package router

import (
	"studio_booking_backend/internal/handlers"
	"studio_booking_backend/internal/middleware"
	"studio_booking_backend/internal/models"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes sets up the authentication routes.
func SetupAuthRoutes(apiGroup *gin.RouterGroup, authHandler *handlers.AuthHandler, authenticated gin.HandlerFunc) {
	authRoutes := apiGroup.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.GET("/me", authenticated, authHandler.GetCurrentClient)
	}
}

// SetupReservationRoutes sets up the reservation routes. Availability is public,
// booking needs a token and managing reservations needs the admin role.
func SetupReservationRoutes(apiGroup *gin.RouterGroup, reservationHandler *handlers.ReservationHandler, authenticated gin.HandlerFunc) {
	reservationRoutes := apiGroup.Group("/reservations")
	{
		reservationRoutes.GET("/availability", reservationHandler.GetAvailability)
		reservationRoutes.POST("", authenticated, reservationHandler.CreateReservation)

		adminRoutes := reservationRoutes.Group("")
		adminRoutes.Use(authenticated, middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			adminRoutes.GET("", reservationHandler.GetReservations)
			adminRoutes.PUT("/:id", reservationHandler.UpdateReservation)
			adminRoutes.DELETE("/:id", reservationHandler.DeleteReservation)
		}
	}
}

// SetupClientRoutes sets up the admin client management routes.
func SetupClientRoutes(apiGroup *gin.RouterGroup, clientHandler *handlers.ClientHandler, authenticated gin.HandlerFunc) {
	clientRoutes := apiGroup.Group("/clients")
	clientRoutes.Use(authenticated, middleware.RoleAuthMiddleware(models.RoleAdmin))
	{
		clientRoutes.GET("", clientHandler.GetClients)
		clientRoutes.GET("/:id", clientHandler.GetClientByID)
		clientRoutes.PUT("/:id", clientHandler.UpdateClient)
		clientRoutes.DELETE("/:id", clientHandler.DeleteClient)
	}
}
