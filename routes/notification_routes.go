package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/hema_backend/controllers"
	"github.com/HSouheill/hema_backend/middleware"
)

// RegisterNotificationRoutes registers all notification-related routes
func RegisterNotificationRoutes(e *echo.Echo, notificationController *controllers.NotificationController) {
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	r.POST("/users/fcm-token", notificationController.UpdateFCMToken)
	r.GET("/users/notifications", notificationController.GetNotifications)
}
