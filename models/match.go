// models/match.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MatchRecord is created once per confirmed donor per request. Append-only.
type MatchRecord struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	RequestID    primitive.ObjectID `json:"requestId" bson:"requestId"`
	DonorUserID  primitive.ObjectID `json:"donorUserId" bson:"donorUserId"`
	ProviderName string             `json:"providerName" bson:"providerName"`
	Status       string             `json:"status" bson:"status"` // "confirmed"
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
}

// DonorMessage is an append-only notification-content record written to a
// user's message feed, parallel to the push notification itself.
type DonorMessage struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	MessageID string             `json:"messageId" bson:"messageId"` // uuid, set by the writer
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	RequestID primitive.ObjectID `json:"requestId" bson:"requestId"`
	Role      string             `json:"role" bson:"role"` // "session"
	Content   string             `json:"content" bson:"content"`
	Data      interface{}        `json:"data,omitempty" bson:"data,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}
