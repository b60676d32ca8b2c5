package conflictRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reserva/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConflictRepo implements Repository using MongoDB.
type MongoConflictRepo struct {
	coll *mongo.Collection
}

// NewMongoConflictRepo constructs a new instance of MongoConflictRepo.
func NewMongoConflictRepo(db *mongo.Database) *MongoConflictRepo {
	return &MongoConflictRepo{coll: db.Collection("conflicts")}
}

func (repo *MongoConflictRepo) Insert(ctx context.Context, c *models.Conflict) error {
	if _, err := repo.coll.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert conflict: %w", err)
	}
	return nil
}

func (repo *MongoConflictRepo) GetByID(ctx context.Context, id string) (*models.Conflict, error) {
	var c models.Conflict
	if err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get conflict %s: %w", id, err)
	}
	return &c, nil
}

func (repo *MongoConflictRepo) ListByIDs(ctx context.Context, ids []string) ([]models.Conflict, error) {
	return repo.list(ctx, bson.M{"id": bson.M{"$in": ids}}, 0)
}

func (repo *MongoConflictRepo) ListOpen(ctx context.Context, shopID string, limit int64) ([]models.Conflict, error) {
	filter := bson.M{"status": models.ConflictDetected}
	if shopID != "" {
		filter["shop_id"] = shopID
	}
	return repo.list(ctx, filter, limit)
}

func (repo *MongoConflictRepo) Close(ctx context.Context, id string, status models.ConflictStatus, strategyID, notes string) error {
	now := time.Now().UTC()
	res, err := repo.coll.UpdateOne(ctx,
		bson.M{"id": id, "status": models.ConflictDetected},
		bson.M{"$set": bson.M{
			"status":           status,
			"resolved_at":      now,
			"strategy_id":      strategyID,
			"resolution_notes": notes,
		}},
	)
	if err != nil {
		return fmt.Errorf("close conflict %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		n, err := repo.coll.CountDocuments(ctx, bson.M{"id": id})
		if err != nil {
			return fmt.Errorf("close conflict recheck: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrAlreadyClosed
	}
	return nil
}

func (repo *MongoConflictRepo) DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := repo.coll.DeleteMany(ctx, bson.M{
		"status":      bson.M{"$in": []models.ConflictStatus{models.ConflictResolved, models.ConflictFailed}},
		"detected_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("delete closed conflicts: %w", err)
	}
	return res.DeletedCount, nil
}

func (repo *MongoConflictRepo) list(ctx context.Context, filter bson.M, limit int64) ([]models.Conflict, error) {
	opts := options.Find().SetSort(bson.D{{Key: "detected_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := repo.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Conflict
	for cursor.Next(ctx) {
		var c models.Conflict
		if err := cursor.Decode(&c); err != nil {
			return nil, fmt.Errorf("decode conflict: %w", err)
		}
		out = append(out, c)
	}
	return out, cursor.Err()
}
