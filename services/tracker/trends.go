package tracker

import (
	"context"
	"time"

	"reserva/models"
)

// Minimum absolute thresholds before a bucket may be flagged, so near-zero
// volume days do not trip the relative checks.
const (
	// minAnomalyVolume is daily transitions, minAnomalyErrorRate a percent.
	minAnomalyVolume    = 10
	minAnomalyErrorRate = 5.0
	minAnomalyAvgTime   = 5 * time.Millisecond
)

// AnalyzeTrends buckets transitions by day and flags anomalies where a day's
// error rate or average processing time exceeds twice the window average, or
// its volume exceeds three times the average.
func (t *Tracker) AnalyzeTrends(ctx context.Context, from, to time.Time) (*models.TrendReport, error) {
	buckets, err := t.Audit.DailyBuckets(ctx, from, to)
	if err != nil {
		return nil, err
	}

	report := &models.TrendReport{From: from, To: to, Buckets: buckets}
	report.Anomalies = DetectAnomalies(buckets)
	return report, nil
}

// DetectAnomalies applies the relative thresholds against window means. Split
// out as a pure function so the thresholds are testable without a store.
func DetectAnomalies(buckets []models.TrendBucket) []models.Anomaly {
	if len(buckets) == 0 {
		return nil
	}

	var sumRate, sumProc, sumVol float64
	for _, b := range buckets {
		sumRate += b.ErrorRate
		sumProc += float64(b.AvgProcessing)
		sumVol += float64(b.Total)
	}
	n := float64(len(buckets))
	meanRate := sumRate / n
	meanProc := sumProc / n
	meanVol := sumVol / n

	var out []models.Anomaly
	for _, b := range buckets {
		if b.Total >= minAnomalyVolume && b.ErrorRate >= minAnomalyErrorRate &&
			meanRate > 0 && b.ErrorRate > 2*meanRate {
			out = append(out, models.Anomaly{
				Day: b.Day, Metric: "error_rate",
				Value: b.ErrorRate, Mean: meanRate, Factor: b.ErrorRate / meanRate,
			})
		}
		if b.AvgProcessing >= minAnomalyAvgTime && meanProc > 0 &&
			float64(b.AvgProcessing) > 2*meanProc {
			out = append(out, models.Anomaly{
				Day: b.Day, Metric: "processing_time",
				Value: float64(b.AvgProcessing), Mean: meanProc,
				Factor: float64(b.AvgProcessing) / meanProc,
			})
		}
		if b.Total >= minAnomalyVolume && meanVol > 0 && float64(b.Total) > 3*meanVol {
			out = append(out, models.Anomaly{
				Day: b.Day, Metric: "volume",
				Value: float64(b.Total), Mean: meanVol, Factor: float64(b.Total) / meanVol,
			})
		}
	}
	return out
}
