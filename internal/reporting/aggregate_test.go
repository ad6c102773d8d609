package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	database "github.com/Armour007/wellness-backend/internal"
)

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func TestAggregateRecords(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	recs := []RecordView{
		{ID: 1, MetricID: 2, MetricName: "Sleep Hours", MetricType: database.MetricWellness, Unit: str("hours"), ValueNumeric: f64(6), RecordedAt: t0},
		{ID: 2, MetricID: 2, MetricName: "Sleep Hours", MetricType: database.MetricWellness, Unit: str("hours"), ValueNumeric: f64(8), RecordedAt: t0.Add(24 * time.Hour)},
		{ID: 3, MetricID: 2, MetricName: "Sleep Hours", MetricType: database.MetricWellness, Unit: str("hours"), ValueNumeric: f64(7), RecordedAt: t0.Add(-24 * time.Hour)},
		{ID: 4, MetricID: 5, MetricName: "Mood", MetricType: database.MetricWellness, ValueText: str("ok"), RecordedAt: t0},
		{ID: 5, MetricID: 5, MetricName: "Mood", MetricType: database.MetricWellness, ValueText: str("great"), RecordedAt: t0},
	}
	got := AggregateRecords(recs)
	require.Len(t, got, 2)

	mood := got[0]
	assert.Equal(t, "Mood", mood.MetricName)
	assert.Equal(t, 2, mood.Count)
	assert.Nil(t, mood.AvgValue)
	assert.Nil(t, mood.MinValue)
	require.NotNil(t, mood.LatestTextValue)
	assert.Equal(t, "great", *mood.LatestTextValue)

	sleep := got[1]
	assert.Equal(t, 3, sleep.Count)
	assert.InDelta(t, 7.0, *sleep.AvgValue, 1e-9)
	assert.Equal(t, 6.0, *sleep.MinValue)
	assert.Equal(t, 8.0, *sleep.MaxValue)
	assert.Equal(t, 8.0, *sleep.LatestValue)
	assert.Equal(t, "hours", *sleep.Unit)
}

func TestAggregateRecords_Empty(t *testing.T) {
	assert.Empty(t, AggregateRecords(nil))
}

func TestSplitByType(t *testing.T) {
	p, w := SplitByType([]RecordView{
		{ID: 1, MetricType: database.MetricPerformance},
		{ID: 2, MetricType: database.MetricWellness},
		{ID: 3, MetricType: database.MetricWellness},
	})
	assert.Len(t, p, 1)
	assert.Len(t, w, 2)
}
