package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HSouheill/hema_backend/config"
	"github.com/HSouheill/hema_backend/models"
)

// RecordRepository owns the append-only side channels: match records,
// donor message records and in-app notifications.
type RecordRepository struct {
	matches       *mongo.Collection
	messages      *mongo.Collection
	notifications *mongo.Collection
	responses     *mongo.Collection
}

func NewRecordRepository(db *mongo.Client) *RecordRepository {
	database := db.Database(config.DBName())
	return &RecordRepository{
		matches:       database.Collection("matchRecords"),
		messages:      database.Collection("donorMessages"),
		notifications: database.Collection("notifications"),
		responses:     database.Collection("donorResponses"),
	}
}

// InsertMatch writes at most one match record per (request, donor)
// pair. Redelivered confirmation events hit the upsert filter and
// leave the existing record untouched.
func (r *RecordRepository) InsertMatch(ctx context.Context, record models.MatchRecord) error {
	filter := bson.M{
		"requestId":   record.RequestID,
		"donorUserId": record.DonorUserID,
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"requestId":    record.RequestID,
			"donorUserId":  record.DonorUserID,
			"providerName": record.ProviderName,
			"status":       record.Status,
			"createdAt":    record.CreatedAt,
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.matches.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *RecordRepository) InsertMessage(ctx context.Context, message models.DonorMessage) error {
	_, err := r.messages.InsertOne(ctx, message)
	return err
}

func (r *RecordRepository) SaveNotification(ctx context.Context, userID primitive.ObjectID, title, message, notifType string, data interface{}) error {
	notification := models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      notifType,
		Data:      data,
		IsRead:    false,
		CreatedAt: time.Now(),
	}
	_, err := r.notifications.InsertOne(ctx, notification)
	return err
}

// UpsertDonorResponse records or advances one donor's status for one
// request.
func (r *RecordRepository) UpsertDonorResponse(ctx context.Context, requestID, donorUserID primitive.ObjectID, status, lastMessage string) error {
	filter := bson.M{
		"requestId":   requestID,
		"donorUserId": donorUserID,
	}
	set := bson.M{
		"status":    status,
		"updatedAt": time.Now(),
	}
	if lastMessage != "" {
		set["lastMessage"] = lastMessage
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.responses.UpdateOne(ctx, filter, bson.M{"$set": set}, opts)
	return err
}
