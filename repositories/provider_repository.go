package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/hema_backend/config"
	"github.com/HSouheill/hema_backend/models"
)

type ProviderRepository struct {
	collection *mongo.Collection
}

func NewProviderRepository(db *mongo.Client) *ProviderRepository {
	return &ProviderRepository{
		collection: db.Database(config.DBName()).Collection("healthcareProviders"),
	}
}

func (r *ProviderRepository) FindByID(ctx context.Context, providerID primitive.ObjectID) (*models.Provider, error) {
	var provider models.Provider
	err := r.collection.FindOne(ctx, bson.M{"_id": providerID}).Decode(&provider)
	if err != nil {
		return nil, err
	}
	return &provider, nil
}
