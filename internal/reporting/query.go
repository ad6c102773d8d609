package reporting

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	database "github.com/Armour007/wellness-backend/internal"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// RecordView is a metric record joined with its definition.
type RecordView struct {
	ID           int64               `db:"id" json:"id"`
	UserID       int64               `db:"user_id" json:"user_id"`
	MetricID     int64               `db:"metric_id" json:"metric_id"`
	MetricName   string              `db:"metric_name" json:"metric_name"`
	MetricType   database.MetricType `db:"metric_type" json:"metric_type"`
	Unit         *string             `db:"unit" json:"unit"`
	ValueNumeric *float64            `db:"value_numeric" json:"value_numeric"`
	ValueText    *string             `db:"value_text" json:"value_text"`
	ValueJSON    database.JSON       `db:"value_json" json:"value_json"`
	RecordedAt   time.Time           `db:"recorded_at" json:"recorded_at"`
	Notes        *string             `db:"notes" json:"notes,omitempty"`
}

// EmployeeRecords groups one employee's records.
type EmployeeRecords struct {
	UserID     int64        `json:"-"`
	EmployeeID string       `json:"employee_id"`
	FirstName  *string      `json:"first_name"`
	LastName   *string      `json:"last_name"`
	Metrics    []RecordView `json:"metrics"`
}

type employeeRow struct {
	ID         int64   `db:"id"`
	EmployeeID string  `db:"employee_id"`
	FirstName  *string `db:"first_name"`
	LastName   *string `db:"last_name"`
}

func recordsQuery() sq.SelectBuilder {
	return psql.Select(
		"r.id", "r.user_id", "r.metric_id", "d.metric_name", "r.metric_type", "d.unit",
		"r.value_numeric", "r.value_text", "r.value_json", "r.recorded_at", "r.notes",
	).From("metric_records r").Join("metric_definitions d ON d.id = r.metric_id")
}

func selectRecords(ctx context.Context, b sq.SelectBuilder) ([]RecordView, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	out := []RecordView{}
	if err := database.DB.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// UserRecords returns a user's records newest first.
func UserRecords(ctx context.Context, userID int64, f Filter) ([]RecordView, error) {
	b := f.Apply(recordsQuery().Where(sq.Eq{"r.user_id": userID})).OrderBy("r.recorded_at DESC", "r.id DESC")
	return selectRecords(ctx, b)
}

// DepartmentRecords returns active employees with their records. A nil
// departmentID covers every department.
func DepartmentRecords(ctx context.Context, departmentID *int64, f Filter) ([]EmployeeRecords, error) {
	eb := psql.Select("id", "employee_id", "first_name", "last_name").From("users").
		Where(sq.Eq{"role": string(database.RoleEmployee), "is_active": true}).
		OrderBy("employee_id")
	if departmentID != nil {
		eb = eb.Where(sq.Eq{"department_id": *departmentID})
	}
	query, args, err := eb.ToSql()
	if err != nil {
		return nil, err
	}
	emps := []employeeRow{}
	if err := database.DB.SelectContext(ctx, &emps, query, args...); err != nil {
		return nil, err
	}
	out := make([]EmployeeRecords, 0, len(emps))
	if len(emps) == 0 {
		return out, nil
	}
	ids := make([]int64, len(emps))
	idx := make(map[int64]int, len(emps))
	for i, e := range emps {
		ids[i] = e.ID
		idx[e.ID] = i
		out = append(out, EmployeeRecords{UserID: e.ID, EmployeeID: e.EmployeeID, FirstName: e.FirstName, LastName: e.LastName, Metrics: []RecordView{}})
	}
	recs, err := selectRecords(ctx, f.Apply(recordsQuery().Where(sq.Eq{"r.user_id": ids})).OrderBy("r.recorded_at DESC", "r.id DESC"))
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if i, ok := idx[r.UserID]; ok {
			out[i].Metrics = append(out[i].Metrics, r)
		}
	}
	return out, nil
}
