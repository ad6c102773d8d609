package policy

import database "github.com/Armour007/wellness-backend/internal"

const (
	ActionDepartmentList      Action = "department.list"
	ActionDepartmentAdminList Action = "department.admin_list"
	ActionDepartmentView      Action = "department.view"
	ActionDepartmentCreate    Action = "department.create"
	ActionDepartmentUpdate    Action = "department.update"
	ActionDepartmentDelete    Action = "department.delete"

	ActionUserList         Action = "user.list"
	ActionUserRegister     Action = "user.register"
	ActionSupervisorList   Action = "supervisor.list"
	ActionSupervisorCreate Action = "supervisor.create"
	ActionSupervisorUpdate Action = "supervisor.update"
	ActionSupervisorDelete Action = "supervisor.delete"
	ActionEmployeeList     Action = "employee.list"
	ActionEmployeeView     Action = "employee.view"
	ActionEmployeeCreate   Action = "employee.create"
	ActionEmployeeUpdate   Action = "employee.update"
	ActionEmployeeDelete   Action = "employee.delete"

	ActionMetricDefinitionList   Action = "metric_definition.list"
	ActionMetricDefinitionManage Action = "metric_definition.manage"
	ActionEmployeeRoleList       Action = "employee_role.list"
	ActionEmployeeRoleManage     Action = "employee_role.manage"

	ActionMetricSubmit          Action = "metric.submit"
	ActionRecordViewOwn         Action = "record.view_own"
	ActionRecordViewEmployee    Action = "record.view"
	ActionDepartmentMetricsView Action = "department.metrics.view"

	ActionDashboardView        Action = "dashboard.view"
	ActionAuditView            Action = "audit.view"
	ActionAuditVerify          Action = "audit.verify"
	ActionReportView           Action = "report.view"
	ActionReportScheduleManage Action = "report_schedule.manage"
	ActionPolicyView           Action = "policy.view"
)

const (
	employee   = database.RoleEmployee
	supervisor = database.RoleSupervisor
	admin      = database.RoleAdmin
)

func grant(a Action, role database.Role, scope Scope, targets ...database.Role) Rule {
	return Rule{Action: a, Role: role, Scope: scope, TargetRoles: targets}
}

// DefaultRules is the authorization table. A (role, action) pair absent here is denied.
func DefaultRules() []Rule {
	return []Rule{
		grant(ActionDepartmentList, employee, ScopeAll),
		grant(ActionDepartmentList, supervisor, ScopeAll),
		grant(ActionDepartmentList, admin, ScopeAll),
		grant(ActionDepartmentView, employee, ScopeAll),
		grant(ActionDepartmentView, supervisor, ScopeAll),
		grant(ActionDepartmentView, admin, ScopeAll),
		grant(ActionDepartmentAdminList, admin, ScopeAll),
		grant(ActionDepartmentCreate, admin, ScopeAll),
		grant(ActionDepartmentUpdate, admin, ScopeAll),
		grant(ActionDepartmentDelete, admin, ScopeAll),

		grant(ActionUserList, supervisor, ScopeDepartment),
		grant(ActionUserList, admin, ScopeAll),
		grant(ActionUserRegister, supervisor, ScopeDepartment, employee),
		grant(ActionUserRegister, admin, ScopeAll),
		grant(ActionSupervisorList, admin, ScopeAll),
		grant(ActionSupervisorCreate, admin, ScopeAll, supervisor),
		grant(ActionSupervisorUpdate, admin, ScopeAll, supervisor),
		grant(ActionSupervisorDelete, admin, ScopeAll, supervisor),
		grant(ActionEmployeeList, supervisor, ScopeDepartment),
		grant(ActionEmployeeList, admin, ScopeAll),
		grant(ActionEmployeeView, employee, ScopeSelf),
		grant(ActionEmployeeView, supervisor, ScopeDepartment, employee),
		grant(ActionEmployeeView, admin, ScopeAll),
		grant(ActionEmployeeCreate, supervisor, ScopeDepartment, employee),
		grant(ActionEmployeeUpdate, supervisor, ScopeDepartment, employee),
		grant(ActionEmployeeDelete, supervisor, ScopeDepartment, employee),

		grant(ActionMetricDefinitionList, employee, ScopeAll),
		grant(ActionMetricDefinitionList, supervisor, ScopeAll),
		grant(ActionMetricDefinitionList, admin, ScopeAll),
		grant(ActionMetricDefinitionManage, admin, ScopeAll),
		grant(ActionEmployeeRoleList, employee, ScopeAll),
		grant(ActionEmployeeRoleList, supervisor, ScopeAll),
		grant(ActionEmployeeRoleList, admin, ScopeAll),
		grant(ActionEmployeeRoleManage, admin, ScopeAll),

		grant(ActionMetricSubmit, employee, ScopeSelf),
		grant(ActionMetricSubmit, supervisor, ScopeSelf),
		grant(ActionRecordViewOwn, employee, ScopeSelf),
		grant(ActionRecordViewOwn, supervisor, ScopeSelf),
		grant(ActionRecordViewOwn, admin, ScopeSelf),
		grant(ActionRecordViewEmployee, supervisor, ScopeDepartment, employee),
		grant(ActionRecordViewEmployee, admin, ScopeAll),
		grant(ActionDepartmentMetricsView, supervisor, ScopeDepartment),
		grant(ActionDepartmentMetricsView, admin, ScopeAll),

		grant(ActionDashboardView, employee, ScopeSelf),
		grant(ActionDashboardView, supervisor, ScopeSelf),
		grant(ActionDashboardView, admin, ScopeSelf),
		grant(ActionAuditView, supervisor, ScopeDepartment),
		grant(ActionAuditView, admin, ScopeAll),
		grant(ActionAuditVerify, admin, ScopeAll),
		grant(ActionReportView, supervisor, ScopeDepartment),
		grant(ActionReportView, admin, ScopeAll),
		grant(ActionReportScheduleManage, admin, ScopeAll),
		grant(ActionPolicyView, admin, ScopeAll),
	}
}
