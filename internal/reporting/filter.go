// Package reporting reads metric records back out: filter parsing, record
// queries and per-metric aggregation shared by the API and scheduled reports.
package reporting

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	database "github.com/Armour007/wellness-backend/internal"
)

const DateLayout = "2006-01-02"

var ErrBadFilter = errors.New("invalid filter")

// Filter narrows record queries. Zero fields are unconstrained. Until is exclusive.
type Filter struct {
	MetricType database.MetricType
	From       time.Time
	Until      time.Time
}

// ParseFilter reads metric_type, start_date, end_date, month and year.
// Date bounds are inclusive days; month without year uses now's year.
func ParseFilter(q url.Values, now time.Time) (Filter, error) {
	var f Filter
	if v := strings.TrimSpace(q.Get("metric_type")); v != "" {
		mt, err := ParseMetricType(v)
		if err != nil {
			return f, err
		}
		f.MetricType = mt
	}
	if v := q.Get("start_date"); v != "" {
		d, err := ParseDate(v)
		if err != nil {
			return f, fmt.Errorf("%w: start_date must be YYYY-MM-DD", ErrBadFilter)
		}
		f.From = d
	}
	if v := q.Get("end_date"); v != "" {
		d, err := ParseDate(v)
		if err != nil {
			return f, fmt.Errorf("%w: end_date must be YYYY-MM-DD", ErrBadFilter)
		}
		f.Until = d.AddDate(0, 0, 1)
	}
	if !f.From.IsZero() && !f.Until.IsZero() && !f.From.Before(f.Until) {
		return f, fmt.Errorf("%w: start_date must not be after end_date", ErrBadFilter)
	}

	month, year := 0, 0
	if v := q.Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return f, fmt.Errorf("%w: month must be between 1 and 12", ErrBadFilter)
		}
		month = m
	}
	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || len(v) != 4 || y < 1000 {
			return f, fmt.Errorf("%w: year must have 4 digits", ErrBadFilter)
		}
		year = y
	}
	if month == 0 && year == 0 {
		return f, nil
	}
	if year == 0 {
		year = now.Year()
	}
	var start, end time.Time
	if month == 0 {
		start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(1, 0, 0)
	} else {
		start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	}
	if f.From.IsZero() || start.After(f.From) {
		f.From = start
	}
	if f.Until.IsZero() || end.Before(f.Until) {
		f.Until = end
	}
	return f, nil
}

// ParseMetricType accepts either case.
func ParseMetricType(v string) (database.MetricType, error) {
	mt := database.MetricType(strings.ToLower(strings.TrimSpace(v)))
	if !mt.Valid() {
		return "", fmt.Errorf("%w: metric_type must be performance or wellness", ErrBadFilter)
	}
	return mt, nil
}

// ParseDate parses a YYYY-MM-DD day in UTC.
func ParseDate(v string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, v, time.UTC)
}

// Apply adds the filter to a query over metric_records aliased as r.
func (f Filter) Apply(b sq.SelectBuilder) sq.SelectBuilder {
	if f.MetricType != "" {
		b = b.Where(sq.Eq{"r.metric_type": string(f.MetricType)})
	}
	if !f.From.IsZero() {
		b = b.Where(sq.GtOrEq{"r.recorded_at": f.From})
	}
	if !f.Until.IsZero() {
		b = b.Where(sq.Lt{"r.recorded_at": f.Until})
	}
	return b
}
