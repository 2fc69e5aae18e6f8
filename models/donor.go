// models/donor.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Donor response statuses
const (
	DonorStatusContacted = "contacted"
	DonorStatusResponded = "responded"
	DonorStatusWilling   = "willing"
	DonorStatusDeclined  = "declined"
)

// Donor is a geotagged donor candidate record. Read-only for the
// matching pipeline; the owning user updates it through the donor API.
type Donor struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID      primitive.ObjectID `json:"userId" bson:"userId"`
	BloodGroup  string             `json:"bloodGroup" bson:"bloodGroup"`
	IsAvailable bool               `json:"isAvailable" bson:"isAvailable"`
	Geo         *GeoLocation       `json:"geo,omitempty" bson:"geo,omitempty"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// DonorResponse tracks one donor's reaction to one request
type DonorResponse struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	RequestID   primitive.ObjectID `json:"requestId" bson:"requestId"`
	DonorUserID primitive.ObjectID `json:"donorUserId" bson:"donorUserId"`
	Status      string             `json:"status" bson:"status"` // "contacted", "responded", "willing", "declined"
	LastMessage string             `json:"lastMessage,omitempty" bson:"lastMessage,omitempty"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// UpdateAvailabilityRequest is the API body for toggling donor availability
type UpdateAvailabilityRequest struct {
	IsAvailable bool `json:"isAvailable"`
}

// UpdateDonorStatusRequest is the API body for updating a donor's response status
type UpdateDonorStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=contacted responded willing declined"`
}
