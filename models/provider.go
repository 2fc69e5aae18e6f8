// models/provider.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Provider is a healthcare provider (hospital, blood bank). Its geo
// location is the center of every donor search it triggers.
type Provider struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Address   string             `json:"address,omitempty" bson:"address,omitempty"`
	Phone     string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Geo       *GeoLocation       `json:"geo,omitempty" bson:"geo,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}
