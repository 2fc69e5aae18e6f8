// models/blood_request.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Blood request lifecycle statuses
const (
	RequestStatusCreated   = "created"
	RequestStatusSearching = "searching"
	RequestStatusFound     = "found"
	RequestStatusNotFound  = "not_found"
)

// BloodRequest model
type BloodRequest struct {
	ID              primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	ProviderID      primitive.ObjectID   `json:"providerId" bson:"providerId"`
	RequesterID     primitive.ObjectID   `json:"requesterId" bson:"requesterId"`
	Title           string               `json:"title,omitempty" bson:"title,omitempty"`
	BloodGroups     []string             `json:"bloodGroups" bson:"bloodGroups"` // acceptable groups, e.g. ["O+", "O-"]
	Quantity        int                  `json:"quantity" bson:"quantity"`       // units needed
	Urgency         string               `json:"urgency,omitempty" bson:"urgency,omitempty"`
	RequireBy       string               `json:"requireBy,omitempty" bson:"requireBy,omitempty"`
	Status          string               `json:"status" bson:"status"`
	ConfirmedDonors []primitive.ObjectID `json:"confirmedDonors,omitempty" bson:"confirmedDonors,omitempty"` // grows monotonically
	NotifiedDonors  []primitive.ObjectID `json:"notifiedDonors,omitempty" bson:"notifiedDonors,omitempty"`   // written once by the search pass
	SearchRadiusKm  float64              `json:"searchRadiusKm,omitempty" bson:"searchRadiusKm,omitempty"`
	SearchExhausted bool                 `json:"searchExhausted,omitempty" bson:"searchExhausted,omitempty"`
	CreatedAt       time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// CreateBloodRequestRequest is the API body for opening a new request
type CreateBloodRequestRequest struct {
	ProviderID  string   `json:"providerId" validate:"required"`
	Title       string   `json:"title,omitempty"`
	BloodGroups []string `json:"bloodGroups" validate:"required,min=1"`
	Quantity    int      `json:"quantity" validate:"required,min=1"`
	Urgency     string   `json:"urgency,omitempty"`
	RequireBy   string   `json:"requireBy,omitempty"`
}

// ConfirmDonorRequest is the API body for recording a confirmed donor
type ConfirmDonorRequest struct {
	DonorID string `json:"donorId" validate:"required"`
}
