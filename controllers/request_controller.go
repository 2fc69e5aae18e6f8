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
)

// RequestController owns the blood request API. Writes here feed the
// change-stream triggers; the matching pipeline itself never runs in
// an HTTP handler.
type RequestController struct {
	requests *repositories.RequestRepository
}

func NewRequestController(requests *repositories.RequestRepository) *RequestController {
	return &RequestController{requests: requests}
}

// CreateRequest opens a new blood request. The insert fires the
// creation trigger, which runs the donor search asynchronously.
func (rc *RequestController) CreateRequest(c echo.Context) error {
	var req models.CreateBloodRequestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Missing required fields: " + err.Error(),
		})
	}

	providerID, err := primitive.ObjectIDFromHex(req.ProviderID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid provider ID",
		})
	}

	requesterID, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user token",
		})
	}

	now := time.Now()
	request := models.BloodRequest{
		ID:          primitive.NewObjectID(),
		ProviderID:  providerID,
		RequesterID: requesterID,
		Title:       req.Title,
		BloodGroups: req.BloodGroups,
		Quantity:    req.Quantity,
		Urgency:     req.Urgency,
		RequireBy:   req.RequireBy,
		Status:      models.RequestStatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := rc.requests.Insert(c.Request().Context(), &request); err != nil {
		log.Printf("Error inserting blood request: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create blood request",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Blood request created, donor search started",
		Data:    request,
	})
}

// GetRequest returns one blood request with its search outcome
func (rc *RequestController) GetRequest(c echo.Context) error {
	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request ID",
		})
	}

	request, err := rc.requests.FindByID(c.Request().Context(), requestID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Blood request not found",
			})
		}
		log.Printf("Error finding blood request %s: %v", requestID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Blood request retrieved",
		Data:    request,
	})
}

// ConfirmDonor appends a donor to the confirmed list. The update fires
// the confirmation trigger, which notifies the requester.
func (rc *RequestController) ConfirmDonor(c echo.Context) error {
	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request ID",
		})
	}

	var req models.ConfirmDonorRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Missing required fields: " + err.Error(),
		})
	}

	donorID, err := primitive.ObjectIDFromHex(req.DonorID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid donor ID",
		})
	}

	if err := rc.requests.AddConfirmedDonor(c.Request().Context(), requestID, donorID); err != nil {
		log.Printf("Error confirming donor %s on request %s: %v", donorID.Hex(), requestID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to confirm donor",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Donor confirmed",
	})
}

// CancelRequest deletes a blood request. The delete fires the
// cancellation trigger, which informs every previously notified donor.
func (rc *RequestController) CancelRequest(c echo.Context) error {
	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request ID",
		})
	}

	if err := rc.requests.Delete(c.Request().Context(), requestID); err != nil {
		log.Printf("Error deleting blood request %s: %v", requestID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to cancel blood request",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Blood request cancelled",
	})
}
