package router

import (
	"net/http"

	"studio_booking_backend/internal/handlers"
	"studio_booking_backend/internal/middleware"
	"studio_booking_backend/internal/services"
	"studio_booking_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Dependencies are the services the HTTP layer is wired to.
type Dependencies struct {
	Reservations       services.ReservationService
	Clients            services.ClientService
	Tokens             *utils.TokenManager
	CORSAllowedOrigins []string
}

// New builds the gin engine with logging, recovery, CORS and all application routes.
func New(deps Dependencies) *gin.Engine {
	engine := gin.New()
	engine.Use(utils.GinLogger())
	engine.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowOrigins = deps.CORSAllowedOrigins
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", utils.RequestIDHeader}
	config.ExposeHeaders = []string{utils.RequestIDHeader}
	config.AllowCredentials = true
	engine.Use(cors.New(config))

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	Setup(engine, deps)
	return engine
}

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.Clients)
	reservationHandler := handlers.NewReservationHandler(deps.Reservations)
	clientHandler := handlers.NewClientHandler(deps.Clients)

	apiV1 := engine.Group("/api/v1")
	authenticated := middleware.AuthMiddleware(deps.Tokens)

	SetupAuthRoutes(apiV1, authHandler, authenticated)
	SetupReservationRoutes(apiV1, reservationHandler, authenticated)
	SetupClientRoutes(apiV1, clientHandler, authenticated)
}
