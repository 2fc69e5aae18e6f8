// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User model
type User struct {
	ID               primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Email            string             `json:"email" bson:"email"`
	FirstName        string             `json:"firstName" bson:"firstName"`
	Surname          string             `json:"surname,omitempty" bson:"surname,omitempty"`
	Phone            string             `json:"phone,omitempty" bson:"phone,omitempty"`
	BloodType        string             `json:"bloodType,omitempty" bson:"bloodType,omitempty"`
	City             string             `json:"city,omitempty" bson:"city,omitempty"`
	DaytimeAddress   string             `json:"daytimeAddress,omitempty" bson:"daytimeAddress,omitempty"`
	NighttimeAddress string             `json:"nighttimeAddress,omitempty" bson:"nighttimeAddress,omitempty"`
	TotalDonations   int                `json:"totalDonations" bson:"totalDonations"`
	LastDonationDate string             `json:"lastDonationDate,omitempty" bson:"lastDonationDate,omitempty"` // ISO 8601
	FCMToken         string             `json:"fcmToken,omitempty" bson:"fcmToken,omitempty"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// DisplayName returns the name used in notifications
func (u *User) DisplayName() string {
	if u.Surname == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.Surname
}

// ContactAddress picks the daytime or nighttime address by local hour.
// Daytime is [6, 18). Uses the invocation's wall clock, matching the
// mobile client's expectations.
func (u *User) ContactAddress(now time.Time) string {
	hour := now.Hour()
	if hour >= 6 && hour < 18 {
		return u.DaytimeAddress
	}
	return u.NighttimeAddress
}

// Response model
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// FCMTokenUpdateRequest represents the request body for updating FCM tokens
type FCMTokenUpdateRequest struct {
	FCMToken string `json:"fcmToken" validate:"required"`
}
