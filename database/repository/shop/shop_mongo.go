package shopRepo

import (
	"context"
	"errors"
	"fmt"

	"reserva/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoShopRepo implements Repository using MongoDB.
type MongoShopRepo struct {
	coll *mongo.Collection
}

// NewMongoShopRepo constructs a new instance of MongoShopRepo.
func NewMongoShopRepo(db *mongo.Database) *MongoShopRepo {
	return &MongoShopRepo{coll: db.Collection("shops")}
}

func (repo *MongoShopRepo) GetByID(ctx context.Context, id string) (*models.Shop, error) {
	var s models.Shop
	if err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get shop %s: %w", id, err)
	}
	return &s, nil
}

func (repo *MongoShopRepo) Insert(ctx context.Context, s *models.Shop) error {
	if _, err := repo.coll.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("insert shop: %w", err)
	}
	return nil
}
