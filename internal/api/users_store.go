package api

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	database "github.com/Armour007/wellness-backend/internal"
	"github.com/Armour007/wellness-backend/internal/utils"
)

const userColumns = `id, username, email, hashed_password, first_name, last_name, employee_id, role, department_role, department_id, role_id, is_active, created_at, updated_at`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// advisory lock held while allocating employee ids
const employeeIDLock = 7302

func loadUser(ctx context.Context, id int64) (database.User, error) {
	var u database.User
	err := database.DB.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	return u, err
}

// loadUserWithRole returns sql.ErrNoRows when the user exists with another role.
func loadUserWithRole(ctx context.Context, id int64, role database.Role) (database.User, error) {
	var u database.User
	err := database.DB.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id=$1 AND role=$2`, id, role)
	return u, err
}

func loadUserByLogin(ctx context.Context, login string) (database.User, error) {
	var u database.User
	err := database.DB.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE username=$1 OR lower(email)=lower($1) ORDER BY (username=$1) DESC LIMIT 1`, login)
	return u, err
}

func loadDepartment(ctx context.Context, id *int64) (*database.Department, error) {
	if id == nil {
		return nil, nil
	}
	var d database.Department
	if err := database.DB.GetContext(ctx, &d, `SELECT id, name, type, description, created_at, updated_at FROM departments WHERE id=$1`, *id); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func departmentsByID(ctx context.Context) (map[int64]*database.Department, error) {
	rows := []database.Department{}
	if err := database.DB.SelectContext(ctx, &rows, `SELECT id, name, type, description, created_at, updated_at FROM departments ORDER BY id`); err != nil {
		return nil, err
	}
	out := make(map[int64]*database.Department, len(rows))
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

func withDepartments(ctx context.Context, users []database.User) ([]UserResponse, error) {
	depts, err := departmentsByID(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		var d *database.Department
		if u.DepartmentID != nil {
			d = depts[*u.DepartmentID]
		}
		out = append(out, toUserResponse(u, d))
	}
	return out, nil
}

func userExists(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := database.DB.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE username=$1 OR lower(email)=lower($2))`, username, email)
	return exists, err
}

// nextEmployeeID reads the highest EMP id; longer ids sort first so EMP1000 follows EMP999.
func nextEmployeeID(ctx context.Context, q sqlx.QueryerContext) (string, error) {
	var last string
	err := sqlx.GetContext(ctx, q, &last, `SELECT employee_id FROM users WHERE employee_id LIKE 'EMP%' ORDER BY length(employee_id) DESC, employee_id DESC LIMIT 1`)
	if err != nil && !database.IsNoRows(err) {
		return "", err
	}
	return utils.NextEmployeeID(last), nil
}

// insertUser allocates an employee id and inserts u, filling ID, EmployeeID and timestamps.
func insertUser(ctx context.Context, u *database.User) error {
	tx, err := database.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, employeeIDLock); err != nil {
		return fmt.Errorf("lock employee ids: %w", err)
	}
	empID, err := nextEmployeeID(ctx, tx)
	if err != nil {
		return err
	}
	u.EmployeeID = empID
	row := tx.QueryRowxContext(ctx, `INSERT INTO users (username, email, hashed_password, first_name, last_name, employee_id, role, department_role, department_id, role_id, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id, created_at, updated_at`,
		u.Username, u.Email, u.HashedPassword, u.FirstName, u.LastName, u.EmployeeID, u.Role, u.DepartmentRole, u.DepartmentID, u.RoleID, u.IsActive)
	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func saveUser(ctx context.Context, u *database.User) error {
	return database.DB.QueryRowxContext(ctx, `UPDATE users SET username=$1, email=$2, hashed_password=$3, first_name=$4, last_name=$5, department_role=$6, department_id=$7, role_id=$8, is_active=$9, updated_at=NOW() WHERE id=$10 RETURNING updated_at`,
		u.Username, u.Email, u.HashedPassword, u.FirstName, u.LastName, u.DepartmentRole, u.DepartmentID, u.RoleID, u.IsActive, u.ID).Scan(&u.UpdatedAt)
}

// applyUserUpdate copies present fields onto u and re-hashes a new password.
func applyUserUpdate(u *database.User, req UpdateUserRequest) error {
	if req.Username != nil {
		u.Username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		u.Email = strings.TrimSpace(*req.Email)
	}
	if req.FirstName != nil {
		u.FirstName = req.FirstName
	}
	if req.LastName != nil {
		u.LastName = req.LastName
	}
	if req.DepartmentRole != nil {
		if !req.DepartmentRole.Valid() {
			return fmt.Errorf("invalid department_role %q", *req.DepartmentRole)
		}
		u.DepartmentRole = *req.DepartmentRole
	}
	if req.DepartmentID != nil {
		u.DepartmentID = req.DepartmentID
	}
	if req.RoleID != nil {
		u.RoleID = req.RoleID
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if req.Password != nil {
		h, err := utils.HashPassword(*req.Password)
		if err != nil {
			return err
		}
		u.HashedPassword = h
	}
	return nil
}

// prefixed qualifies a comma separated column list with an alias.
func prefixed(alias, columns string) []string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + strings.TrimSpace(p)
	}
	return parts
}
