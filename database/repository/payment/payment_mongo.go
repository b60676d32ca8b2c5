package paymentRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reserva/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoPaymentRepo implements Repository using MongoDB.
type MongoPaymentRepo struct {
	coll *mongo.Collection
}

// NewMongoPaymentRepo constructs a new instance of MongoPaymentRepo.
func NewMongoPaymentRepo(db *mongo.Database) *MongoPaymentRepo {
	return &MongoPaymentRepo{coll: db.Collection("payments")}
}

func (repo *MongoPaymentRepo) Insert(ctx context.Context, p *models.Payment) error {
	if _, err := repo.coll.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (repo *MongoPaymentRepo) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	var p models.Payment
	if err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get payment %s: %w", id, err)
	}
	return &p, nil
}

func (repo *MongoPaymentRepo) ListByReservation(ctx context.Context, reservationID string) ([]models.Payment, error) {
	cursor, err := repo.coll.Find(ctx, bson.M{"reservation_id": reservationID})
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Payment
	for cursor.Next(ctx) {
		var p models.Payment
		if err := cursor.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode payment: %w", err)
		}
		out = append(out, p)
	}
	return out, cursor.Err()
}

func (repo *MongoPaymentRepo) FindActiveDuplicates(ctx context.Context, reservationID string, amount int64, excludeID string) ([]models.Payment, error) {
	filter := bson.M{
		"reservation_id": reservationID,
		"amount":         amount,
		"status":         bson.M{"$in": models.ActivePaymentStatuses},
	}
	if excludeID != "" {
		filter["id"] = bson.M{"$ne": excludeID}
	}
	cursor, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find duplicate payments: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Payment
	for cursor.Next(ctx) {
		var p models.Payment
		if err := cursor.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode payment: %w", err)
		}
		out = append(out, p)
	}
	return out, cursor.Err()
}

func (repo *MongoPaymentRepo) UpdateStatusWithVersion(ctx context.Context, id string, expectedVersion int64, status models.PaymentStatus, gatewayRef string) (int64, error) {
	set := bson.M{"status": status, "updated_at": time.Now().UTC()}
	if gatewayRef != "" {
		set["gateway_ref"] = gatewayRef
	}
	res, err := repo.coll.UpdateOne(ctx,
		bson.M{"id": id, "version": expectedVersion},
		bson.M{"$set": set, "$inc": bson.M{"version": int64(1)}},
	)
	if err != nil {
		return 0, fmt.Errorf("versioned payment update: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := repo.coll.CountDocuments(ctx, bson.M{"id": id})
		if err != nil {
			return 0, fmt.Errorf("payment update recheck: %w", err)
		}
		if n == 0 {
			return 0, ErrNotFound
		}
		return 0, ErrVersionMismatch
	}
	return expectedVersion + 1, nil
}
