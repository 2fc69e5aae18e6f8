package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/hema_backend/controllers"
	"github.com/HSouheill/hema_backend/middleware"
)

// RegisterDonorRoutes sets up the donor-side routes
func RegisterDonorRoutes(e *echo.Echo, donorController *controllers.DonorController) {
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	r.PUT("/donors/availability", donorController.UpdateAvailability)
	r.PUT("/donors/location", donorController.UpdateLocation)
	r.GET("/donors/eligibility", donorController.CheckEligibility)
	r.PUT("/donors/requests/:id/response", donorController.UpdateResponseStatus)
}
