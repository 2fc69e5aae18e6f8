package controllers

import (
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/hema_backend/middleware"
	"github.com/HSouheill/hema_backend/models"
	"github.com/HSouheill/hema_backend/repositories"
	"github.com/HSouheill/hema_backend/utils"
)

// DonorController owns the donor-side API: availability, location and
// response status. The matching pipeline only reads what is written
// here.
type DonorController struct {
	donors  *repositories.DonorRepository
	users   *repositories.UserRepository
	records *repositories.RecordRepository
}

func NewDonorController(donors *repositories.DonorRepository, users *repositories.UserRepository, records *repositories.RecordRepository) *DonorController {
	return &DonorController{donors: donors, users: users, records: records}
}

// UpdateAvailability toggles whether the donor can be matched
func (dc *DonorController) UpdateAvailability(c echo.Context) error {
	userID, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user token",
		})
	}

	var req models.UpdateAvailabilityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	if err := dc.donors.UpdateAvailability(c.Request().Context(), userID, req.IsAvailable); err != nil {
		log.Printf("Error updating availability for user %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update availability",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Availability updated",
	})
}

// UpdateLocationRequest is the body for donor location updates
type UpdateLocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"required"`
	Longitude float64 `json:"longitude" validate:"required"`
}

// UpdateLocation stores the donor's coordinate and derives the geohash
// cell key the search index ranges over.
func (dc *DonorController) UpdateLocation(c echo.Context) error {
	userID, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user token",
		})
	}

	var req UpdateLocationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	point := models.GeoPoint{Latitude: req.Latitude, Longitude: req.Longitude}
	geo := models.GeoLocation{
		Geohash:  utils.EncodeGeohash(point),
		Geopoint: point,
	}

	if err := dc.donors.UpdateLocation(c.Request().Context(), userID, geo); err != nil {
		log.Printf("Error updating location for user %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update location",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Location updated",
		Data:    geo,
	})
}

// CheckEligibility reports whether the donor is past the donation
// cooldown window.
func (dc *DonorController) CheckEligibility(c echo.Context) error {
	userID, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user token",
		})
	}

	user, err := dc.users.FindByID(c.Request().Context(), userID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "User not found",
			})
		}
		log.Printf("Error finding user %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}

	result := utils.CheckEligibility(user.LastDonationDate, time.Now())
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Eligibility checked",
		Data:    result,
	})
}

// UpdateResponseStatus records the donor's reaction to a request they
// were notified about.
func (dc *DonorController) UpdateResponseStatus(c echo.Context) error {
	userID, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user token",
		})
	}

	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request ID",
		})
	}

	var req models.UpdateDonorStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Status must be one of: contacted, responded, willing, declined",
		})
	}

	if err := dc.records.UpsertDonorResponse(c.Request().Context(), requestID, userID, req.Status, ""); err != nil {
		log.Printf("Error updating response status for donor %s on request %s: %v", userID.Hex(), requestID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update response status",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Response status updated",
	})
}
