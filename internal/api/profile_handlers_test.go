package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	database "github.com/Armour007/wellness-backend/internal"
)

func TestChangePassword(t *testing.T) {
	t.Run("wrong current password", func(t *testing.T) {
		setupDB(t)
		u := hashedUser(t, 9, "Old-Secret-42", true)
		w := call(ChangePassword, &u, http.MethodPut, "/profile/me/password",
			map[string]string{"current_password": "nope", "new_password": "Brand-New-Key-77"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("weak new password", func(t *testing.T) {
		setupDB(t)
		u := hashedUser(t, 9, "Old-Secret-42", true)
		w := call(ChangePassword, &u, http.MethodPut, "/profile/me/password",
			map[string]string{"current_password": "Old-Secret-42", "new_password": "short"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("contains username", func(t *testing.T) {
		setupDB(t)
		u := hashedUser(t, 9, "Old-Secret-42", true)
		w := call(ChangePassword, &u, http.MethodPut, "/profile/me/password",
			map[string]string{"current_password": "Old-Secret-42", "new_password": "Xx-user9-Zz-81"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("longer than bcrypt accepts", func(t *testing.T) {
		setupDB(t)
		u := hashedUser(t, 9, "Old-Secret-42", true)
		w := call(ChangePassword, &u, http.MethodPut, "/profile/me/password",
			map[string]string{"current_password": "Old-Secret-42", "new_password": "Aa1!" + strings.Repeat("z", 80)})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "password must be at most 72 bytes", errorOf(t, w))
	})

	t.Run("updated", func(t *testing.T) {
		mock := setupDB(t)
		audits := captureAudit(t)
		u := hashedUser(t, 9, "Old-Secret-42", true)
		mock.ExpectExec(`UPDATE users SET hashed_password=\$1`).WithArgs(sqlmock.AnyArg(), int64(9)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		w := call(ChangePassword, &u, http.MethodPut, "/profile/me/password",
			map[string]string{"current_password": "Old-Secret-42", "new_password": "Brand-New-Key-77"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, []auditCall{{dept: 0, eventType: "user.password_changed"}}, *audits)
	})
}

func TestUpdateMe(t *testing.T) {
	t.Run("renamed", func(t *testing.T) {
		mock := setupDB(t)
		u := testUser(9, database.RoleEmployee, int64Ptr(1))
		mock.ExpectExec(`UPDATE users SET first_name=\$1, last_name=\$2`).WithArgs("Robin", "Lee", int64(9)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`FROM departments WHERE id=\$1`).WithArgs(int64(1)).WillReturnRows(departmentRows(1))

		w := call(UpdateMe, &u, http.MethodPut, "/profile/me", map[string]string{"first_name": "  Robin "})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var p ProfileResponse
		decode(t, w, &p)
		require.NotNil(t, p.FirstName)
		assert.Equal(t, "Robin", *p.FirstName)
		assert.Equal(t, "Lee", *p.LastName)
		require.NotNil(t, p.Department)
	})

	t.Run("nothing to change", func(t *testing.T) {
		setupDB(t)
		u := testUser(9, database.RoleEmployee, nil)
		w := call(UpdateMe, &u, http.MethodPut, "/profile/me", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "first_name or last_name is required", errorOf(t, w))
	})
}
