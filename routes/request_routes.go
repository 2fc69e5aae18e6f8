package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/hema_backend/controllers"
	"github.com/HSouheill/hema_backend/middleware"
)

// RegisterRequestRoutes sets up the blood request routes
func RegisterRequestRoutes(e *echo.Echo, requestController *controllers.RequestController) {
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	r.POST("/requests", requestController.CreateRequest)
	r.GET("/requests/:id", requestController.GetRequest)
	r.POST("/requests/:id/confirm", requestController.ConfirmDonor)
	r.DELETE("/requests/:id", requestController.CancelRequest)
}
