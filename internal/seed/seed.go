// Package seed loads the reference data a fresh database needs: departments,
// employee roles, the metric catalogue with its role mapping and the initial
// admin, supervisor and employee accounts. Every step is idempotent.
package seed

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Armour007/wellness-backend/internal/utils"
)

// Stats counts the rows a run inserted.
type Stats struct {
	Departments   int64
	EmployeeRoles int64
	Metrics       int64
	RoleMappings  int64
	Users         int64
}

func (s Stats) Total() int64 {
	return s.Departments + s.EmployeeRoles + s.Metrics + s.RoleMappings + s.Users
}

// Run seeds db inside one transaction.
func Run(ctx context.Context, db *sqlx.DB, log *zap.Logger) (Stats, error) {
	var st Stats
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return st, err
	}
	defer tx.Rollback()

	deptIDs, err := seedDepartments(ctx, tx, &st)
	if err != nil {
		return st, fmt.Errorf("seed departments: %w", err)
	}
	if err := seedEmployeeRoles(ctx, tx, &st); err != nil {
		return st, fmt.Errorf("seed employee roles: %w", err)
	}
	if err := seedMetrics(ctx, tx, deptIDs, &st); err != nil {
		return st, fmt.Errorf("seed metrics: %w", err)
	}
	if err := seedRoleMappings(ctx, tx, &st); err != nil {
		return st, fmt.Errorf("seed role mappings: %w", err)
	}
	if err := seedUsers(ctx, tx, deptIDs, &st); err != nil {
		return st, fmt.Errorf("seed users: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return st, err
	}
	log.Info("seed complete",
		zap.Int64("departments", st.Departments),
		zap.Int64("employee_roles", st.EmployeeRoles),
		zap.Int64("metrics", st.Metrics),
		zap.Int64("role_mappings", st.RoleMappings),
		zap.Int64("users", st.Users))
	return st, nil
}

func affected(n *int64, res interface{ RowsAffected() (int64, error) }) {
	if c, err := res.RowsAffected(); err == nil {
		*n += c
	}
}

func seedDepartments(ctx context.Context, tx *sqlx.Tx, st *Stats) ([]int64, error) {
	ids := make([]int64, len(departments))
	for i, d := range departments {
		res, err := tx.ExecContext(ctx, `INSERT INTO departments (name, type, description) VALUES ($1,$2,$3) ON CONFLICT (name) DO NOTHING`, d.Name, d.Type, d.Description)
		if err != nil {
			return nil, err
		}
		affected(&st.Departments, res)
		if err := tx.GetContext(ctx, &ids[i], `SELECT id FROM departments WHERE name=$1`, d.Name); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// resetSequence moves a serial past explicitly inserted ids.
func resetSequence(ctx context.Context, tx *sqlx.Tx, table, column string) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%s', '%s'), COALESCE((SELECT MAX(%s) FROM %s), 1))`, table, column, column, table))
	return err
}

func seedEmployeeRoles(ctx context.Context, tx *sqlx.Tx, st *Stats) error {
	for _, r := range employeeRoles {
		res, err := tx.ExecContext(ctx, `INSERT INTO employee_roles (role_id, role_name, role_description) VALUES ($1,$2,$3) ON CONFLICT DO NOTHING`, r.ID, r.Name, r.Description)
		if err != nil {
			return err
		}
		affected(&st.EmployeeRoles, res)
	}
	return resetSequence(ctx, tx, "employee_roles", "role_id")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deptRef(ids []int64, i int) *int64 {
	if i == shared {
		return nil
	}
	return &ids[i]
}

func seedMetrics(ctx context.Context, tx *sqlx.Tx, deptIDs []int64, st *Stats) error {
	for _, m := range metrics {
		res, err := tx.ExecContext(ctx, `INSERT INTO metric_definitions (id, metric_name, metric_description, metric_type, department_id, unit, is_numeric)
			VALUES ($1,$2,$3,$4,$5,$6,$7) ON CONFLICT (id) DO NOTHING`,
			m.ID, m.Name, m.Description, m.Type, deptRef(deptIDs, m.Dept), optional(m.Unit), m.Numeric)
		if err != nil {
			return err
		}
		affected(&st.Metrics, res)
	}
	return resetSequence(ctx, tx, "metric_definitions", "id")
}

func seedRoleMappings(ctx context.Context, tx *sqlx.Tx, st *Stats) error {
	for _, rm := range roleMetrics {
		for _, mid := range rm.MetricIDs {
			res, err := tx.ExecContext(ctx, `INSERT INTO metric_definition_roles (metric_id, role_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`, mid, rm.RoleID)
			if err != nil {
				return err
			}
			affected(&st.RoleMappings, res)
		}
	}
	return nil
}

func seedUsers(ctx context.Context, tx *sqlx.Tx, deptIDs []int64, st *Stats) error {
	for _, u := range users {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE username=$1)`, u.Username); err != nil {
			return err
		}
		if exists {
			continue
		}
		hash, err := utils.HashPassword(u.Password)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO users (username, email, hashed_password, first_name, last_name, employee_id, role, department_role, department_id, role_id, is_active)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,TRUE) ON CONFLICT DO NOTHING`,
			u.Username, u.Email, hash, u.FirstName, u.LastName, u.EmployeeID, u.Role, u.DepartmentRole, deptRef(deptIDs, u.Dept), u.RoleID)
		if err != nil {
			return err
		}
		affected(&st.Users, res)
	}
	return nil
}
