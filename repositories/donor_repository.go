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

type DonorRepository struct {
	collection *mongo.Collection
}

func NewDonorRepository(db *mongo.Client) *DonorRepository {
	return &DonorRepository{
		collection: db.Database(config.DBName()).Collection("donors"),
	}
}

// RangeQuery returns every donor whose geohash falls in [start, end],
// ordered by key. Over-inclusive at cell edges; callers re-check the
// true distance.
func (r *DonorRepository) RangeQuery(ctx context.Context, start, end string) ([]models.Donor, error) {
	filter := bson.M{
		"geo.geohash": bson.M{
			"$gte": start,
			"$lte": end,
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "geo.geohash", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var donors []models.Donor
	if err := cursor.All(ctx, &donors); err != nil {
		return nil, err
	}
	return donors, nil
}

func (r *DonorRepository) FindByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Donor, error) {
	var donor models.Donor
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&donor)
	if err != nil {
		return nil, err
	}
	return &donor, nil
}

func (r *DonorRepository) UpdateAvailability(ctx context.Context, userID primitive.ObjectID, available bool) error {
	update := bson.M{
		"$set": bson.M{
			"isAvailable": available,
			"updatedAt":   time.Now(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"userId": userID}, update)
	return err
}

// UpdateLocation stores the precise coordinate and refreshes the
// geohash key the range queries depend on.
func (r *DonorRepository) UpdateLocation(ctx context.Context, userID primitive.ObjectID, geo models.GeoLocation) error {
	update := bson.M{
		"$set": bson.M{
			"geo":       geo,
			"updatedAt": time.Now(),
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"userId": userID}, update, opts)
	return err
}
