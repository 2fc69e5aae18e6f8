package controllers

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HSouheill/hema_backend/config"
	"github.com/HSouheill/hema_backend/middleware"
	"github.com/HSouheill/hema_backend/models"
	"github.com/HSouheill/hema_backend/repositories"
)

type NotificationController struct {
	db    *mongo.Client
	users *repositories.UserRepository
}

func NewNotificationController(db *mongo.Client, users *repositories.UserRepository) *NotificationController {
	return &NotificationController{db: db, users: users}
}

// UpdateFCMToken stores the device token push notifications are sent to
func (nc *NotificationController) UpdateFCMToken(c echo.Context) error {
	userID, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user token",
		})
	}

	var req models.FCMTokenUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "FCM token is required",
		})
	}

	if err := nc.users.UpdateFCMToken(c.Request().Context(), userID, req.FCMToken); err != nil {
		log.Printf("Error updating FCM token for user %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update FCM token",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "FCM token updated",
	})
}

// GetNotifications returns the user's in-app notification feed, newest first
func (nc *NotificationController) GetNotifications(c echo.Context) error {
	userID, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user token",
		})
	}

	collection := config.GetCollection(nc.db, "notifications")
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(50)
	cursor, err := collection.Find(c.Request().Context(), bson.M{"userId": userID}, opts)
	if err != nil {
		log.Printf("Error finding notifications for user %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}
	defer cursor.Close(c.Request().Context())

	var notifications []models.Notification
	if err := cursor.All(c.Request().Context(), &notifications); err != nil {
		log.Printf("Error decoding notifications for user %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notifications retrieved",
		Data:    notifications,
	})
}
