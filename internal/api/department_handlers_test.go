package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	database "github.com/Armour007/wellness-backend/internal"
)

func TestCreateDepartment(t *testing.T) {
	admin := testUser(1, database.RoleAdmin, nil)

	t.Run("created", func(t *testing.T) {
		mock := setupDB(t)
		audits := captureAudit(t)
		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM departments WHERE name=\$1\)`).WithArgs("Finance").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(`INSERT INTO departments`).WithArgs("Finance", "FINANCE", nil).
			WillReturnRows(sqlmock.NewRows(departmentCols).AddRow(9, "Finance", "FINANCE", nil, testNow, testNow))

		w := call(CreateDepartment, &admin, http.MethodPost, "/users/departments", map[string]any{"name": " Finance ", "type": "FINANCE"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var d database.Department
		decode(t, w, &d)
		assert.Equal(t, int64(9), d.ID)
		assert.Equal(t, []auditCall{{dept: 0, eventType: "department.created"}}, *audits)
	})

	t.Run("duplicate name", func(t *testing.T) {
		mock := setupDB(t)
		mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		w := call(CreateDepartment, &admin, http.MethodPost, "/users/departments", map[string]any{"name": "USPS", "type": "USPS"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Department with this name already exists.", errorOf(t, w))
	})

	t.Run("invalid type", func(t *testing.T) {
		setupDB(t)
		w := call(CreateDepartment, &admin, http.MethodPost, "/users/departments", map[string]any{"name": "Moon", "type": "SPACE"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDeleteDepartment_WithUsersRefused(t *testing.T) {
	mock := setupDB(t)
	admin := testUser(1, database.RoleAdmin, nil)
	mock.ExpectQuery(`FROM departments WHERE id=\$1`).WillReturnRows(departmentRows(2))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE department_id=\$1`).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	w := call(DeleteDepartment, &admin, http.MethodDelete, "/departments/2", nil, ginParam("id", "2"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Department still has 3 assigned users", errorOf(t, w))
}

func TestDeleteDepartment_Empty(t *testing.T) {
	mock := setupDB(t)
	audits := captureAudit(t)
	admin := testUser(1, database.RoleAdmin, nil)
	mock.ExpectQuery(`FROM departments WHERE id=\$1`).WillReturnRows(departmentRows(2))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`DELETE FROM departments WHERE id=\$1`).WithArgs(int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))

	w := call(DeleteDepartment, &admin, http.MethodDelete, "/departments/2", nil, ginParam("id", "2"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, *audits, 1)
	assert.Equal(t, "department.deleted", (*audits)[0].eventType)
}

func TestDeleteDepartment_RemovesReportJob(t *testing.T) {
	mock := setupDB(t)
	captureAudit(t)
	admin := testUser(1, database.RoleAdmin, nil)
	mock.ExpectQuery(`FROM report_schedules`).
		WillReturnRows(sqlmock.NewRows([]string{"department_id", "cron", "webhook_url", "secret", "lookback", "updated_at"}).
			AddRow(7, "0 6 * * 1", "https://hooks.example.com/a", "0123456789abcdef", "168h", testNow))
	require.NoError(t, StartReportScheduler(context.Background()))
	t.Cleanup(StopReportScheduler)

	mock.ExpectQuery(`FROM departments WHERE id=\$1`).WillReturnRows(departmentRows(7))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`DELETE FROM departments WHERE id=\$1`).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))

	w := call(DeleteDepartment, &admin, http.MethodDelete, "/departments/7", nil, ginParam("id", "7"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	schedMu.Lock()
	defer schedMu.Unlock()
	_, registered := deptJobs[7]
	assert.False(t, registered)
	assert.Empty(t, sched.Entries())
}

func TestGetDepartment_NotFound(t *testing.T) {
	mock := setupDB(t)
	u := testUser(5, database.RoleEmployee, nil)
	mock.ExpectQuery(`FROM departments WHERE id=\$1`).WillReturnRows(departmentRows())
	w := call(GetDepartment, &u, http.MethodGet, "/departments/77", nil, ginParam("id", "77"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
