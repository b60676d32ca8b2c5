package reservationRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reserva/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoReservationRepo implements Repository using MongoDB.
type MongoReservationRepo struct {
	coll *mongo.Collection
}

// NewMongoReservationRepo constructs a new instance of MongoReservationRepo.
func NewMongoReservationRepo(db *mongo.Database) *MongoReservationRepo {
	return &MongoReservationRepo{coll: db.Collection("reservations")}
}

func (repo *MongoReservationRepo) Insert(ctx context.Context, r *models.Reservation) error {
	if _, err := repo.coll.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (repo *MongoReservationRepo) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	var r models.Reservation
	if err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reservation %s: %w", id, err)
	}
	return &r, nil
}

func (repo *MongoReservationRepo) ListActiveByShopDate(ctx context.Context, shopID, date string) ([]models.Reservation, error) {
	filter := bson.M{
		"shop_id": shopID,
		"date":    date,
		"status":  bson.M{"$in": models.ActiveStatuses},
	}
	return repo.list(ctx, filter)
}

func (repo *MongoReservationRepo) ListByShopDate(ctx context.Context, shopID, date string) ([]models.Reservation, error) {
	return repo.list(ctx, bson.M{"shop_id": shopID, "date": date})
}

func (repo *MongoReservationRepo) CountActiveAt(ctx context.Context, shopID, date string, atMinutes int) (int, error) {
	filter := bson.M{
		"shop_id": shopID,
		"date":    date,
		"status":  bson.M{"$in": models.ActiveStatuses},
		"start":   bson.M{"$lte": atMinutes},
		"end":     bson.M{"$gt": atMinutes},
	}
	n, err := repo.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count active reservations: %w", err)
	}
	return int(n), nil
}

func (repo *MongoReservationRepo) UpdateWithVersion(ctx context.Context, id string, expectedVersion int64, fields map[string]any) (int64, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}
	res, err := repo.coll.UpdateOne(ctx,
		bson.M{"id": id, "version": expectedVersion},
		bson.M{"$set": set, "$inc": bson.M{"version": int64(1)}},
	)
	if err != nil {
		return 0, fmt.Errorf("versioned update: %w", err)
	}
	if res.MatchedCount == 0 {
		// Distinguish a missing document from a stale version.
		n, err := repo.coll.CountDocuments(ctx, bson.M{"id": id})
		if err != nil {
			return 0, fmt.Errorf("versioned update recheck: %w", err)
		}
		if n == 0 {
			return 0, ErrNotFound
		}
		return 0, ErrVersionMismatch
	}
	return expectedVersion + 1, nil
}

func (repo *MongoReservationRepo) TransitionStatus(ctx context.Context, id string, from, to models.ReservationStatus, extra map[string]any) error {
	set := bson.M{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range extra {
		set[k] = v
	}
	res, err := repo.coll.UpdateOne(ctx,
		bson.M{"id": id, "status": from},
		bson.M{"$set": set, "$inc": bson.M{"version": int64(1)}},
	)
	if err != nil {
		return fmt.Errorf("transition %s -> %s: %w", from, to, err)
	}
	if res.MatchedCount == 0 {
		n, err := repo.coll.CountDocuments(ctx, bson.M{"id": id})
		if err != nil {
			return fmt.Errorf("transition recheck: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrEdgeTaken
	}
	return nil
}

func (repo *MongoReservationRepo) ListConfirmedInWindow(ctx context.Context, from, to time.Time) ([]models.Reservation, error) {
	filter := bson.M{
		"status":         models.StatusConfirmed,
		"scheduled_time": bson.M{"$gte": from, "$lt": to},
	}
	return repo.list(ctx, filter)
}

func (repo *MongoReservationRepo) MarkWarned(ctx context.Context, id string) (bool, error) {
	res, err := repo.coll.UpdateOne(ctx,
		bson.M{"id": id, "no_show_warned": false},
		bson.M{"$set": bson.M{"no_show_warned": true}},
	)
	if err != nil {
		return false, fmt.Errorf("mark warned: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (repo *MongoReservationRepo) list(ctx context.Context, filter bson.M) ([]models.Reservation, error) {
	cursor, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Reservation
	for cursor.Next(ctx) {
		var r models.Reservation
		if err := cursor.Decode(&r); err != nil {
			return nil, fmt.Errorf("decode reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, cursor.Err()
}
