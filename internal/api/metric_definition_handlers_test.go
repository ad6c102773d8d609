package api

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	database "github.com/Armour007/wellness-backend/internal"
)

func TestListMetricDefinitions_Filters(t *testing.T) {
	mock := setupDB(t)
	u := testUser(5, database.RoleEmployee, nil)
	mock.ExpectQuery(`FROM metric_definitions WHERE metric_type = \$1 AND department_id = \$2 ORDER BY id`).
		WithArgs("wellness", int64(2)).
		WillReturnRows(sqlmock.NewRows(definitionCols))

	w := call(ListMetricDefinitions, &u, http.MethodGet, "/metrics?metric_type=WELLNESS&department_id=2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestListMetricDefinitions_BadType(t *testing.T) {
	setupDB(t)
	u := testUser(5, database.RoleEmployee, nil)
	w := call(ListMetricDefinitions, &u, http.MethodGet, "/metrics?metric_type=mood", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteMetricDefinition_WithRecords(t *testing.T) {
	mock := setupDB(t)
	admin := testUser(1, database.RoleAdmin, nil)
	mock.ExpectQuery(`FROM metric_definitions WHERE id=\$1`).WithArgs(int64(1)).WillReturnRows(definitionRows())
	mock.ExpectExec(`DELETE FROM metric_definitions WHERE id=\$1`).WillReturnError(&pgconn.PgError{Code: "23503"})

	w := call(DeleteMetricDefinition, &admin, http.MethodDelete, "/metrics/1", nil, ginParam("id", "1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Metric definition has recorded values", errorOf(t, w))
}

func TestSetMetricRoles_ReplacesMapping(t *testing.T) {
	mock := setupDB(t)
	audits := captureAudit(t)
	admin := testUser(1, database.RoleAdmin, nil)
	mock.ExpectQuery(`FROM metric_definitions WHERE id=\$1`).WillReturnRows(definitionRows())
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM metric_definition_roles WHERE metric_id=\$1`).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO metric_definition_roles`).WithArgs(int64(1), int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO metric_definition_roles`).WithArgs(int64(1), int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM employee_roles r\s+JOIN metric_definition_roles`).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"role_id", "role_name", "role_description"}).
			AddRow(1, "Mail Carrier", nil).AddRow(4, "Nurse", nil))

	w := call(SetMetricRoles, &admin, http.MethodPut, "/metrics/1/roles", map[string]any{"role_ids": []int64{1, 4, 1}}, ginParam("id", "1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var roles []database.EmployeeRole
	decode(t, w, &roles)
	assert.Len(t, roles, 2)
	assert.Equal(t, []auditCall{{dept: 1, eventType: "metric_definition.roles_changed"}}, *audits)
}
