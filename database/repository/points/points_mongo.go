package pointsRepo

import (
	"context"
	"fmt"

	"reserva/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const penaltyReason = "no_show_penalty"

// MongoPointsRepo implements Repository using MongoDB.
type MongoPointsRepo struct {
	coll *mongo.Collection
}

// NewMongoPointsRepo constructs a new instance of MongoPointsRepo.
func NewMongoPointsRepo(db *mongo.Database) *MongoPointsRepo {
	return &MongoPointsRepo{coll: db.Collection("point_ledger")}
}

func (repo *MongoPointsRepo) Balance(ctx context.Context, userID string) (int, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"user_id": userID}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"balance": bson.M{"$sum": "$delta"},
		}}},
	}
	cursor, err := repo.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("point balance aggregation: %w", err)
	}
	defer cursor.Close(ctx)

	if cursor.Next(ctx) {
		var row struct {
			Balance int `bson:"balance"`
		}
		if err := cursor.Decode(&row); err != nil {
			return 0, fmt.Errorf("decode balance: %w", err)
		}
		return row.Balance, nil
	}
	return 0, cursor.Err()
}

func (repo *MongoPointsRepo) Append(ctx context.Context, e *models.PointEntry) error {
	if _, err := repo.coll.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("append point entry: %w", err)
	}
	return nil
}

func (repo *MongoPointsRepo) HasPenaltyFor(ctx context.Context, userID, reservationID string) (bool, error) {
	n, err := repo.coll.CountDocuments(ctx, bson.M{
		"user_id":        userID,
		"reservation_id": reservationID,
		"reason":         penaltyReason,
	})
	if err != nil {
		return false, fmt.Errorf("check penalty entry: %w", err)
	}
	return n > 0, nil
}
