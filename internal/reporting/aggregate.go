package reporting

import (
	"sort"
	"time"

	database "github.com/Armour007/wellness-backend/internal"
)

// Aggregate summarizes one metric's records.
type Aggregate struct {
	MetricID         int64               `json:"metric_id"`
	MetricName       string              `json:"metric_name"`
	MetricType       database.MetricType `json:"metric_type"`
	Unit             *string             `json:"unit"`
	AvgValue         *float64            `json:"avg_value"`
	MinValue         *float64            `json:"min_value"`
	MaxValue         *float64            `json:"max_value"`
	Count            int                 `json:"count"`
	LatestValue      *float64            `json:"latest_value"`
	LatestTextValue  *string             `json:"latest_text_value"`
	LatestRecordedAt time.Time           `json:"latest_recorded_at"`
}

type acc struct {
	agg     Aggregate
	sum     float64
	n       int
	latestI int64
}

// AggregateRecords groups records by metric. Avg, min and max cover numeric
// values only; latest is the most recent record, ties broken by higher id.
func AggregateRecords(recs []RecordView) []Aggregate {
	by := map[int64]*acc{}
	for _, r := range recs {
		a, ok := by[r.MetricID]
		if !ok {
			a = &acc{agg: Aggregate{MetricID: r.MetricID, MetricName: r.MetricName, MetricType: r.MetricType, Unit: r.Unit}}
			by[r.MetricID] = a
		}
		a.agg.Count++
		if r.ValueNumeric != nil {
			v := *r.ValueNumeric
			a.sum += v
			a.n++
			if a.agg.MinValue == nil || v < *a.agg.MinValue {
				a.agg.MinValue = ptr(v)
			}
			if a.agg.MaxValue == nil || v > *a.agg.MaxValue {
				a.agg.MaxValue = ptr(v)
			}
		}
		if a.agg.Count == 1 || r.RecordedAt.After(a.agg.LatestRecordedAt) ||
			(r.RecordedAt.Equal(a.agg.LatestRecordedAt) && r.ID > a.latestI) {
			a.agg.LatestRecordedAt = r.RecordedAt
			a.agg.LatestValue = r.ValueNumeric
			a.agg.LatestTextValue = r.ValueText
			a.latestI = r.ID
		}
	}
	out := make([]Aggregate, 0, len(by))
	for _, a := range by {
		if a.n > 0 {
			a.agg.AvgValue = ptr(a.sum / float64(a.n))
		}
		out = append(out, a.agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MetricName != out[j].MetricName {
			return out[i].MetricName < out[j].MetricName
		}
		return out[i].MetricID < out[j].MetricID
	})
	return out
}

// SplitByType partitions records into performance and wellness.
func SplitByType(recs []RecordView) (performance, wellness []RecordView) {
	performance, wellness = []RecordView{}, []RecordView{}
	for _, r := range recs {
		switch r.MetricType {
		case database.MetricPerformance:
			performance = append(performance, r)
		case database.MetricWellness:
			wellness = append(wellness, r)
		}
	}
	return performance, wellness
}

func ptr[T any](v T) *T { return &v }
