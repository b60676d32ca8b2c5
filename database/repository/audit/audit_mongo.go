package auditRepo

import (
	"context"
	"fmt"
	"time"

	"reserva/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAuditRepo implements Repository using MongoDB.
type MongoAuditRepo struct {
	coll            *mongo.Collection
	reservationColl *mongo.Collection
}

// NewMongoAuditRepo constructs a new instance of MongoAuditRepo. The
// reservations collection is needed for the orphan integrity check.
func NewMongoAuditRepo(db *mongo.Database) *MongoAuditRepo {
	return &MongoAuditRepo{
		coll:            db.Collection("audit_entries"),
		reservationColl: db.Collection("reservations"),
	}
}

func (repo *MongoAuditRepo) Append(ctx context.Context, e *models.AuditEntry) error {
	if _, err := repo.coll.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (repo *MongoAuditRepo) ListByReservation(ctx context.Context, reservationID string) ([]models.AuditEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := repo.coll.Find(ctx, bson.M{"reservation_id": reservationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.AuditEntry
	for cursor.Next(ctx) {
		var e models.AuditEntry
		if err := cursor.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, cursor.Err()
}

func (repo *MongoAuditRepo) CountBetween(ctx context.Context, from, to time.Time) (int64, int64, error) {
	window := bson.M{"created_at": bson.M{"$gte": from, "$lt": to}}
	total, err := repo.coll.CountDocuments(ctx, window)
	if err != nil {
		return 0, 0, fmt.Errorf("count transitions: %w", err)
	}
	failed, err := repo.coll.CountDocuments(ctx, bson.M{
		"created_at": bson.M{"$gte": from, "$lt": to},
		"success":    false,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("count failed transitions: %w", err)
	}
	return total, failed, nil
}

func (repo *MongoAuditRepo) StatusPairStats(ctx context.Context, from, to time.Time) ([]models.StatusPairStats, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": from, "$lt": to}}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":       bson.M{"from": "$from_status", "to": "$to_status"},
			"total":     bson.M{"$sum": 1},
			"succeeded": bson.M{"$sum": bson.M{"$cond": bson.A{"$success", 1, 0}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"total": -1}}},
	}
	cursor, err := repo.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("status pair aggregation: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.StatusPairStats
	for cursor.Next(ctx) {
		var row struct {
			ID struct {
				From models.ReservationStatus `bson:"from"`
				To   models.ReservationStatus `bson:"to"`
			} `bson:"_id"`
			Total     int64 `bson:"total"`
			Succeeded int64 `bson:"succeeded"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode status pair row: %w", err)
		}
		s := models.StatusPairStats{
			FromStatus: row.ID.From,
			ToStatus:   row.ID.To,
			Total:      row.Total,
			Succeeded:  row.Succeeded,
		}
		if s.Total > 0 {
			s.SuccessRate = float64(s.Succeeded) / float64(s.Total) * 100
		}
		out = append(out, s)
	}
	return out, cursor.Err()
}

func (repo *MongoAuditRepo) ActorStats(ctx context.Context, from, to time.Time) ([]models.ActorStats, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": from, "$lt": to}}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":       "$actor_kind",
			"total":     bson.M{"$sum": 1},
			"succeeded": bson.M{"$sum": bson.M{"$cond": bson.A{"$success", 1, 0}}},
		}}},
	}
	cursor, err := repo.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("actor aggregation: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.ActorStats
	for cursor.Next(ctx) {
		var row struct {
			ID        models.ActorKind `bson:"_id"`
			Total     int64            `bson:"total"`
			Succeeded int64            `bson:"succeeded"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode actor row: %w", err)
		}
		a := models.ActorStats{ActorKind: row.ID, Total: row.Total, Succeeded: row.Succeeded}
		if a.Total > 0 {
			a.SuccessRate = float64(a.Succeeded) / float64(a.Total) * 100
		}
		out = append(out, a)
	}
	return out, cursor.Err()
}

func (repo *MongoAuditRepo) FindOrphans(ctx context.Context, from, to time.Time, limit int64) ([]models.IntegrityIssue, error) {
	if limit <= 0 {
		limit = 100
	}
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": from, "$lt": to}}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         repo.reservationColl.Name(),
			"localField":   "reservation_id",
			"foreignField": "id",
			"as":           "reservation",
		}}},
		bson.D{{Key: "$match", Value: bson.M{"reservation": bson.M{"$size": 0}}}},
		bson.D{{Key: "$limit", Value: limit}},
	}
	cursor, err := repo.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("orphan lookup: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.IntegrityIssue
	for cursor.Next(ctx) {
		var e models.AuditEntry
		if err := cursor.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode orphan row: %w", err)
		}
		out = append(out, models.IntegrityIssue{
			Kind:        "orphaned",
			AuditID:     e.ID,
			Description: fmt.Sprintf("audit entry references missing reservation %s", e.ReservationID),
		})
	}
	return out, cursor.Err()
}

func (repo *MongoAuditRepo) FindDuplicateTerminals(ctx context.Context, from, to time.Time) ([]models.IntegrityIssue, error) {
	terminal := []models.ReservationStatus{
		models.StatusCompleted, models.StatusCancelledByUser,
		models.StatusCancelledByShop, models.StatusNoShow,
	}
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"created_at": bson.M{"$gte": from, "$lt": to},
			"to_status":  bson.M{"$in": terminal},
			"success":    true,
		}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"reservation": "$reservation_id", "to": "$to_status"},
			"count": bson.M{"$sum": 1},
			"ids":   bson.M{"$push": "$id"},
		}}},
		bson.D{{Key: "$match", Value: bson.M{"count": bson.M{"$gt": 1}}}},
	}
	cursor, err := repo.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("duplicate terminal lookup: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.IntegrityIssue
	for cursor.Next(ctx) {
		var row struct {
			ID struct {
				Reservation string                   `bson:"reservation"`
				To          models.ReservationStatus `bson:"to"`
			} `bson:"_id"`
			Count int64    `bson:"count"`
			IDs   []string `bson:"ids"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode duplicate row: %w", err)
		}
		for _, id := range row.IDs[1:] {
			out = append(out, models.IntegrityIssue{
				Kind:    "duplicate",
				AuditID: id,
				Description: fmt.Sprintf("terminal transition %s applied %d times to reservation %s",
					row.ID.To, row.Count, row.ID.Reservation),
			})
		}
	}
	return out, cursor.Err()
}

func (repo *MongoAuditRepo) DailyBuckets(ctx context.Context, from, to time.Time) ([]models.TrendBucket, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": from, "$lt": to}}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":    bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$created_at"}},
			"total":  bson.M{"$sum": 1},
			"failed": bson.M{"$sum": bson.M{"$cond": bson.A{"$success", 0, 1}}},
			"avg_ms": bson.M{"$avg": "$metadata.processing_ms"},
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cursor, err := repo.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("daily bucket aggregation: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.TrendBucket
	for cursor.Next(ctx) {
		var row struct {
			ID     string   `bson:"_id"`
			Total  int64    `bson:"total"`
			Failed int64    `bson:"failed"`
			AvgMs  *float64 `bson:"avg_ms"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode bucket row: %w", err)
		}
		b := models.TrendBucket{Day: row.ID, Total: row.Total, Failed: row.Failed}
		if b.Total > 0 {
			b.ErrorRate = float64(b.Failed) / float64(b.Total) * 100
		}
		if row.AvgMs != nil {
			b.AvgProcessing = time.Duration(*row.AvgMs * float64(time.Millisecond))
		}
		out = append(out, b)
	}
	return out, cursor.Err()
}

func (repo *MongoAuditRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := repo.coll.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("delete audit entries: %w", err)
	}
	return res.DeletedCount, nil
}
