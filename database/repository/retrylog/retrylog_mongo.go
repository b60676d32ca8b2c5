package retrylogRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reserva/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when a retry operation record does not exist.
var ErrNotFound = errors.New("retry operation not found")

// MongoRetryLogRepo implements Repository using MongoDB.
type MongoRetryLogRepo struct {
	coll *mongo.Collection
}

// NewMongoRetryLogRepo constructs a new instance of MongoRetryLogRepo.
func NewMongoRetryLogRepo(db *mongo.Database) *MongoRetryLogRepo {
	return &MongoRetryLogRepo{coll: db.Collection("retry_operations")}
}

func (repo *MongoRetryLogRepo) Insert(ctx context.Context, op *models.RetryOperation) error {
	if _, err := repo.coll.InsertOne(ctx, op); err != nil {
		return fmt.Errorf("insert retry operation: %w", err)
	}
	return nil
}

func (repo *MongoRetryLogRepo) AppendAttempt(ctx context.Context, opID string, attempt models.RetryAttempt) error {
	update := bson.M{
		"$push": bson.M{"attempts": attempt},
	}
	switch attempt.ErrorKind {
	case models.ErrKindConflict, models.ErrKindVersionConflict:
		update["$set"] = bson.M{"conflict_seen": true}
	case models.ErrKindLockTimeout:
		update["$inc"] = bson.M{"lock_timeouts": 1}
	case models.ErrKindDeadlock:
		update["$inc"] = bson.M{"deadlocks": 1}
	}
	res, err := repo.coll.UpdateOne(ctx, bson.M{"id": opID, "completed_at": nil}, update)
	if err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (repo *MongoRetryLogRepo) Complete(ctx context.Context, opID string, success bool, finalError models.ErrorKind) error {
	now := time.Now().UTC()
	res, err := repo.coll.UpdateOne(ctx,
		bson.M{"id": opID, "completed_at": nil},
		bson.M{"$set": bson.M{
			"success":      success,
			"final_error":  finalError,
			"completed_at": now,
		}},
	)
	if err != nil {
		return fmt.Errorf("complete retry operation: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (repo *MongoRetryLogRepo) GetByID(ctx context.Context, opID string) (*models.RetryOperation, error) {
	var op models.RetryOperation
	if err := repo.coll.FindOne(ctx, bson.M{"id": opID}).Decode(&op); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get retry operation %s: %w", opID, err)
	}
	return &op, nil
}

func (repo *MongoRetryLogRepo) Stats(ctx context.Context, from, to time.Time, shopID, operationType string) ([]models.OperationStats, error) {
	match := bson.M{"started_at": bson.M{"$gte": from, "$lt": to}}
	if shopID != "" {
		match["shop_id"] = shopID
	}
	if operationType != "" {
		match["operation_type"] = operationType
	}
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$addFields", Value: bson.M{
			"duration_ns": bson.M{"$sum": "$attempts.duration"},
		}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":           bson.M{"shop": "$shop_id", "op": "$operation_type"},
			"count":         bson.M{"$sum": 1},
			"success_count": bson.M{"$sum": bson.M{"$cond": bson.A{"$success", 1, 0}}},
			"avg_duration":  bson.M{"$avg": "$duration_ns"},
			"max_duration":  bson.M{"$max": "$duration_ns"},
			"conflicts":     bson.M{"$sum": bson.M{"$cond": bson.A{"$conflict_seen", 1, 0}}},
			"lock_timeouts": bson.M{"$sum": "$lock_timeouts"},
			"deadlocks":     bson.M{"$sum": "$deadlocks"},
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"count": -1}}},
	}
	cursor, err := repo.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("stats aggregation: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.OperationStats
	for cursor.Next(ctx) {
		var row struct {
			ID struct {
				Shop string `bson:"shop"`
				Op   string `bson:"op"`
			} `bson:"_id"`
			Count        int64    `bson:"count"`
			SuccessCount int64    `bson:"success_count"`
			AvgDuration  *float64 `bson:"avg_duration"`
			MaxDuration  *int64   `bson:"max_duration"`
			Conflicts    int64    `bson:"conflicts"`
			LockTimeouts int64    `bson:"lock_timeouts"`
			Deadlocks    int64    `bson:"deadlocks"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode stats row: %w", err)
		}
		s := models.OperationStats{
			ShopID:        row.ID.Shop,
			OperationType: row.ID.Op,
			Count:         row.Count,
			SuccessCount:  row.SuccessCount,
			ConflictCount: row.Conflicts,
			LockTimeouts:  row.LockTimeouts,
			Deadlocks:     row.Deadlocks,
		}
		if s.Count > 0 {
			s.SuccessRate = float64(s.SuccessCount) / float64(s.Count) * 100
		}
		if row.AvgDuration != nil {
			s.AvgDuration = time.Duration(int64(*row.AvgDuration))
		}
		if row.MaxDuration != nil {
			s.MaxDuration = time.Duration(*row.MaxDuration)
		}
		out = append(out, s)
	}
	return out, cursor.Err()
}

func (repo *MongoRetryLogRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := repo.coll.DeleteMany(ctx, bson.M{"started_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("delete retry operations: %w", err)
	}
	return res.DeletedCount, nil
}
