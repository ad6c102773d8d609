package api

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	database "github.com/Armour007/wellness-backend/internal"
	"github.com/Armour007/wellness-backend/internal/policy"
)

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type auditCall struct {
	dept      int64
	eventType string
}

// setupDB installs a sqlmock-backed database.DB and resets package globals.
func setupDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	prevDB, prevEngine, prevClock := database.DB, engine, clock
	database.DB = sqlx.NewDb(db, "sqlmock")
	engine = policy.NewTableEngine(policy.DefaultRules())
	clock = func() time.Time { return testNow }
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
		database.DB, engine, clock = prevDB, prevEngine, prevClock
	})
	return mock
}

// captureAudit replaces the ledger writer and returns the recorded calls.
func captureAudit(t *testing.T) *[]auditCall {
	t.Helper()
	calls := &[]auditCall{}
	prev := appendAudit
	appendAudit = func(_ context.Context, dept int64, eventType string, _ any, _ *int64) error {
		*calls = append(*calls, auditCall{dept: dept, eventType: eventType})
		return nil
	}
	t.Cleanup(func() { appendAudit = prev })
	return calls
}

func strp(s string) *string { return &s }

func testUser(id int64, role database.Role, dept *int64) database.User {
	return database.User{
		ID:             id,
		Username:       fmt.Sprintf("user%d", id),
		Email:          fmt.Sprintf("user%d@example.com", id),
		FirstName:      strp("Pat"),
		LastName:       strp("Lee"),
		EmployeeID:     "EMP001",
		Role:           role,
		DepartmentRole: database.DeptRoleUSPSMailCarrier,
		DepartmentID:   dept,
		IsActive:       true,
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	}
}

var userCols = []string{"id", "username", "email", "hashed_password", "first_name", "last_name", "employee_id", "role", "department_role", "department_id", "role_id", "is_active", "created_at", "updated_at"}

func userRow(rows *sqlmock.Rows, u database.User) *sqlmock.Rows {
	var dept, role driver.Value
	if u.DepartmentID != nil {
		dept = *u.DepartmentID
	}
	if u.RoleID != nil {
		role = *u.RoleID
	}
	return rows.AddRow(u.ID, u.Username, u.Email, u.HashedPassword, u.FirstName, u.LastName, u.EmployeeID,
		string(u.Role), string(u.DepartmentRole), dept, role, u.IsActive, u.CreatedAt, u.UpdatedAt)
}

func userRows(users ...database.User) *sqlmock.Rows {
	rows := sqlmock.NewRows(userCols)
	for _, u := range users {
		userRow(rows, u)
	}
	return rows
}

var departmentCols = []string{"id", "name", "type", "description", "created_at", "updated_at"}

func departmentRows(ids ...int64) *sqlmock.Rows {
	rows := sqlmock.NewRows(departmentCols)
	for _, id := range ids {
		rows.AddRow(id, "Dept", "USPS", nil, testNow, testNow)
	}
	return rows
}

// call runs h with u as the authenticated caller.
func call(h gin.HandlerFunc, u *database.User, method, target string, body any, params ...gin.Param) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var rdr *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, rdr)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	if u != nil {
		c.Set(ctxUserID, u.ID)
		c.Set(ctxUser, *u)
	}
	h(c)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	decode(t, w, &body)
	s, _ := body["error"].(string)
	return s
}

func ginParam(key, value string) gin.Param { return gin.Param{Key: key, Value: value} }
