package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/hema_backend/config"
	"github.com/HSouheill/hema_backend/models"
)

type RequestRepository struct {
	collection *mongo.Collection
}

func NewRequestRepository(db *mongo.Client) *RequestRepository {
	return &RequestRepository{
		collection: db.Database(config.DBName()).Collection("bloodRequests"),
	}
}

func (r *RequestRepository) Insert(ctx context.Context, request *models.BloodRequest) error {
	_, err := r.collection.InsertOne(ctx, request)
	return err
}

func (r *RequestRepository) FindByID(ctx context.Context, requestID primitive.ObjectID) (*models.BloodRequest, error) {
	var request models.BloodRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": requestID}).Decode(&request)
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *RequestRepository) SetStatus(ctx context.Context, requestID primitive.ObjectID, status string) error {
	update := bson.M{
		"$set": bson.M{
			"status":    status,
			"updatedAt": time.Now(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": requestID}, update)
	return err
}

// SetSearchOutcome records the result of the initial donor search. A
// single set assignment, so redelivered creation events simply rewrite
// the same values.
func (r *RequestRepository) SetSearchOutcome(ctx context.Context, requestID primitive.ObjectID, notified []primitive.ObjectID, status string, radiusKm float64, exhausted bool) error {
	update := bson.M{
		"$set": bson.M{
			"notifiedDonors":  notified,
			"status":          status,
			"searchRadiusKm":  radiusKm,
			"searchExhausted": exhausted,
			"updatedAt":       time.Now(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": requestID}, update)
	return err
}

// AddConfirmedDonor appends a donor to the confirmed list. $addToSet
// keeps the list a set even if the confirmation is delivered twice.
func (r *RequestRepository) AddConfirmedDonor(ctx context.Context, requestID, donorUserID primitive.ObjectID) error {
	update := bson.M{
		"$addToSet": bson.M{"confirmedDonors": donorUserID},
		"$set":      bson.M{"updatedAt": time.Now()},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": requestID}, update)
	return err
}

func (r *RequestRepository) Delete(ctx context.Context, requestID primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": requestID})
	return err
}
