package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reserva/models"
)

func flatBuckets(n int) []models.TrendBucket {
	out := make([]models.TrendBucket, n)
	for i := range out {
		out[i] = models.TrendBucket{
			Day:           time.Date(2026, 8, 1+i, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			Total:         100,
			Failed:        2,
			ErrorRate:     2.0,
			AvgProcessing: 10 * time.Millisecond,
		}
	}
	return out
}

func TestDetectAnomalies_FlatWindowIsClean(t *testing.T) {
	assert.Empty(t, DetectAnomalies(flatBuckets(7)))
}

func TestDetectAnomalies_EmptyWindow(t *testing.T) {
	assert.Nil(t, DetectAnomalies(nil))
}

func TestDetectAnomalies_ErrorRateSpike(t *testing.T) {
	buckets := flatBuckets(7)
	buckets[3].Failed = 30
	buckets[3].ErrorRate = 30.0

	anomalies := DetectAnomalies(buckets)
	require.Len(t, anomalies, 1)
	assert.Equal(t, "error_rate", anomalies[0].Metric)
	assert.Equal(t, buckets[3].Day, anomalies[0].Day)
	assert.Greater(t, anomalies[0].Factor, 2.0)
}

func TestDetectAnomalies_ErrorRateBelowMinimumIgnored(t *testing.T) {
	// 4% is more than twice the window mean but under the 5% floor.
	buckets := flatBuckets(7)
	for i := range buckets {
		buckets[i].ErrorRate = 1.0
	}
	buckets[3].ErrorRate = 4.0

	assert.Empty(t, DetectAnomalies(buckets))
}

func TestDetectAnomalies_ProcessingTimeSpike(t *testing.T) {
	buckets := flatBuckets(7)
	buckets[2].AvgProcessing = 100 * time.Millisecond

	anomalies := DetectAnomalies(buckets)
	require.Len(t, anomalies, 1)
	assert.Equal(t, "processing_time", anomalies[0].Metric)
	assert.Equal(t, buckets[2].Day, anomalies[0].Day)
}

func TestDetectAnomalies_VolumeSpike(t *testing.T) {
	buckets := flatBuckets(7)
	buckets[5].Total = 1500
	// Keep the rate flat so only volume trips.
	buckets[5].Failed = 30
	buckets[5].ErrorRate = 2.0

	anomalies := DetectAnomalies(buckets)
	require.Len(t, anomalies, 1)
	assert.Equal(t, "volume", anomalies[0].Metric)
	assert.Greater(t, anomalies[0].Factor, 3.0)
}

func TestDetectAnomalies_LowVolumeDayNeverFlagsVolume(t *testing.T) {
	buckets := []models.TrendBucket{
		{Day: "2026-08-01", Total: 1, ErrorRate: 100.0, AvgProcessing: time.Millisecond},
		{Day: "2026-08-02", Total: 2, ErrorRate: 0, AvgProcessing: time.Millisecond},
		{Day: "2026-08-03", Total: 9, ErrorRate: 0, AvgProcessing: time.Millisecond},
	}
	// Day one has a 100% error rate but under 10 transitions.
	assert.Empty(t, DetectAnomalies(buckets))
}
