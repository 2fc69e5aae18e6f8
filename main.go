package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/hema_backend/config"
	"github.com/HSouheill/hema_backend/controllers"
	"github.com/HSouheill/hema_backend/middleware"
	"github.com/HSouheill/hema_backend/repositories"
	"github.com/HSouheill/hema_backend/routes"
	"github.com/HSouheill/hema_backend/services"
	"github.com/HSouheill/hema_backend/utils"
	"github.com/HSouheill/hema_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Initialize Firebase
	config.InitFirebase()

	// Connect to Redis (optional duplicate-notification guard)
	redisClient := config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()

	// FCM messaging client for push fan-out
	messagingClient, err := config.FirebaseApp.Messaging(context.Background())
	if err != nil {
		log.Fatalf("Error initializing FCM messaging client: %v", err)
	}

	// Create WebSocket hub for provider status updates
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Initialize repositories
	donorRepo := repositories.NewDonorRepository(client)
	userRepo := repositories.NewUserRepository(client)
	providerRepo := repositories.NewProviderRepository(client)
	requestRepo := repositories.NewRequestRepository(client)
	recordRepo := repositories.NewRecordRepository(client)

	// Initialize the matching pipeline
	searchService := services.NewDonorSearchService(donorRepo, userRepo)
	filterService := services.NewDonorFilterService()
	dispatchService := services.NewDispatchService(messagingClient, recordRepo, redisClient)
	var alerter services.AlertSender
	if emailAlerter := utils.NewEmailAlerter(); emailAlerter != nil {
		alerter = emailAlerter
	}
	coordinator := services.NewRequestCoordinator(searchService, filterService, dispatchService,
		providerRepo, userRepo, requestRepo, recordRepo, wsHub, alerter)

	// Start the trigger watcher
	watcher := services.NewRequestWatcher(client, coordinator)
	go watcher.Run(context.Background())

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "Hema Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Initialize controllers
	requestController := controllers.NewRequestController(requestRepo)
	donorController := controllers.NewDonorController(donorRepo, userRepo, recordRepo)
	notificationController := controllers.NewNotificationController(client, userRepo)

	// Register routes
	routes.RegisterRequestRoutes(e, requestController)
	routes.RegisterDonorRoutes(e, donorController)
	routes.RegisterNotificationRoutes(e, notificationController)

	// Provider dashboard WebSocket for live request status updates
	wsGroup := e.Group("/api")
	wsGroup.Use(middleware.JWTMiddleware())
	wsGroup.GET("/ws", func(c echo.Context) error {
		userID, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
		if err != nil {
			return echo.NewHTTPError(echo.ErrUnauthorized.Code, "Invalid user token")
		}
		return websocket.HandleWebSocket(c, wsHub, userID)
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}
