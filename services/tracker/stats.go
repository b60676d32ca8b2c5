package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"reserva/models"
)

// StatsFilter bounds a statistics query. Zero From/To default to the last
// 24 hours.
type StatsFilter struct {
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	ShopID        string    `json:"shop_id,omitempty"`
	OperationType string    `json:"operation_type,omitempty"`
}

func (f *StatsFilter) normalize() {
	if f.To.IsZero() {
		f.To = time.Now().UTC()
	}
	if f.From.IsZero() {
		f.From = f.To.Add(-24 * time.Hour)
	}
}

// GetOperationStatistics aggregates per-shop/per-type operation outcomes over
// the window, with a short redis cache in front of the aggregation.
func (t *Tracker) GetOperationStatistics(ctx context.Context, filter StatsFilter) ([]models.OperationStats, error) {
	filter.normalize()

	cacheKey := fmt.Sprintf("opstats:%d:%d:%s:%s",
		filter.From.Unix(), filter.To.Unix(), filter.ShopID, filter.OperationType)

	if t.Cache != nil {
		if raw, err := t.Cache.Get(ctx, cacheKey).Result(); err == nil {
			var cached []models.OperationStats
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return cached, nil
			}
		}
	}

	stats, err := t.RetryLog.Stats(ctx, filter.From, filter.To, filter.ShopID, filter.OperationType)
	if err != nil {
		return nil, err
	}

	if t.Cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := t.Cache.Set(ctx, cacheKey, raw, t.CacheTTL).Err(); err != nil {
				t.Logger.Debug("stats cache write failed", zap.Error(err))
			}
		}
	}
	return stats, nil
}
