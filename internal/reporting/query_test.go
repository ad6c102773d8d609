package reporting

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	database "github.com/Armour007/wellness-backend/internal"
)

var recordCols = []string{"id", "user_id", "metric_id", "metric_name", "metric_type", "unit", "value_numeric", "value_text", "value_json", "recorded_at", "notes"}

func setupMock(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	database.DB = sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return mock
}

func TestUserRecords(t *testing.T) {
	mock := setupMock(t)
	at := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM metric_records r JOIN metric_definitions d ON d.id = r.metric_id WHERE r.user_id = $1 AND r.metric_type = $2 ORDER BY r.recorded_at DESC, r.id DESC`)).
		WithArgs(int64(3), "wellness").
		WillReturnRows(sqlmock.NewRows(recordCols).
			AddRow(9, 3, 2, "Sleep Hours", "wellness", "hours", 7.5, nil, []byte(`{"q":1}`), at, nil))

	got, err := UserRecords(context.Background(), 3, Filter{MetricType: database.MetricWellness})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Sleep Hours", got[0].MetricName)
	assert.Equal(t, 7.5, *got[0].ValueNumeric)
	assert.JSONEq(t, `{"q":1}`, string(got[0].ValueJSON))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRecords_GroupsByEmployee(t *testing.T) {
	mock := setupMock(t)
	dept := int64(1)
	at := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, employee_id, first_name, last_name FROM users WHERE is_active = $1 AND role = $2 AND department_id = $3 ORDER BY employee_id`)).
		WithArgs(true, "EMPLOYEE", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "employee_id", "first_name", "last_name"}).
			AddRow(3, "EMP003", "Patrick", "Star").
			AddRow(4, "EMP004", "Sandy", nil))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE r.user_id IN ($1,$2) ORDER BY`)).
		WithArgs(int64(3), int64(4)).
		WillReturnRows(sqlmock.NewRows(recordCols).
			AddRow(10, 3, 2, "Deliveries", "performance", nil, 40.0, nil, nil, at, nil).
			AddRow(11, 3, 4, "Mood", "wellness", nil, nil, "ok", nil, at, nil))

	got, err := DepartmentRecords(context.Background(), &dept, Filter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "EMP003", got[0].EmployeeID)
	assert.Len(t, got[0].Metrics, 2)
	assert.Empty(t, got[1].Metrics)
	assert.NotNil(t, got[1].Metrics)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRecords_NoEmployees(t *testing.T) {
	mock := setupMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users`)).WillReturnRows(sqlmock.NewRows([]string{"id", "employee_id", "first_name", "last_name"}))
	got, err := DepartmentRecords(context.Background(), nil, Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildDepartmentReport(t *testing.T) {
	mock := setupMock(t)
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	until := from.AddDate(0, 0, 7)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name FROM departments WHERE id=$1`)).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("US Postal Service"))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "employee_id", "first_name", "last_name"}).
			AddRow(3, "EMP003", "Patrick", "Star").
			AddRow(4, "EMP004", "Sandy", "Cheeks"))
	mock.ExpectQuery(regexp.QuoteMeta(`r.recorded_at >= $3 AND r.recorded_at < $4`)).
		WithArgs(int64(3), int64(4), from, until).
		WillReturnRows(sqlmock.NewRows(recordCols).
			AddRow(10, 3, 2, "Deliveries", "performance", nil, 40.0, nil, nil, from.Add(time.Hour), nil).
			AddRow(11, 3, 2, "Deliveries", "performance", nil, 20.0, nil, nil, from, nil))

	rep, err := BuildDepartmentReport(context.Background(), 1, Filter{From: from, Until: until})
	require.NoError(t, err)
	assert.Equal(t, "US Postal Service", rep.DepartmentName)
	assert.Equal(t, 2, rep.EmployeeCount)
	assert.Equal(t, 1, rep.ActiveEmployees)
	assert.Equal(t, 2, rep.RecordCount)
	require.Len(t, rep.Metrics, 1)
	assert.Equal(t, 30.0, *rep.Metrics[0].AvgValue)
	assert.Equal(t, "Patrick Star", rep.Employees[0].FullName)
	assert.Nil(t, rep.Employees[1].LastSubmission)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildDepartmentReport_MetricType(t *testing.T) {
	mock := setupMock(t)
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	until := from.AddDate(0, 0, 7)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name FROM departments WHERE id=$1`)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Healthcare"))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "employee_id", "first_name", "last_name"}).AddRow(5, "EMP005", "Gary", nil))
	mock.ExpectQuery(regexp.QuoteMeta(`r.user_id IN ($1) AND r.metric_type = $2 AND r.recorded_at >= $3 AND r.recorded_at < $4`)).
		WithArgs(int64(5), "wellness", from, until).
		WillReturnRows(sqlmock.NewRows(recordCols))

	rep, err := BuildDepartmentReport(context.Background(), 2, Filter{MetricType: database.MetricWellness, From: from, Until: until})
	require.NoError(t, err)
	assert.Equal(t, "wellness", rep.MetricType)
	assert.Equal(t, 0, rep.RecordCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
