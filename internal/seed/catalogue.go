package seed

import database "github.com/Armour007/wellness-backend/internal"

type department struct {
	Name        string
	Type        database.DepartmentType
	Description string
}

var departments = []department{
	{"US Postal Service", database.DepartmentUSPS, "Handles mail delivery"},
	{"Healthcare", database.DepartmentHealthcare, "Federal health services"},
	{"Transportation", database.DepartmentTransportation, "Transport and aviation"},
}

type employeeRole struct {
	ID          int64
	Name        string
	Description string
}

var employeeRoles = []employeeRole{
	{1, "Mail Carrier", "Delivers mail and parcels along an assigned route"},
	{2, "Postal Office Admin", "Counter service and office administration"},
	{3, "Postal Supervisor", "Supervises a postal unit"},
	{4, "Nurse", "Direct patient care"},
	{5, "Healthcare Admin", "Patient records, billing and scheduling"},
}

// department index into departments; -1 is shared by every department
type metric struct {
	ID          int64
	Name        string
	Type        database.MetricType
	Dept        int
	Unit        string
	Numeric     bool
	Description string
}

const shared = -1

const (
	perf = database.MetricPerformance
	well = database.MetricWellness
)

var metrics = []metric{
	{1, "Route Completion Time", perf, 0, "hours", true, "Time to complete the assigned route"},
	{2, "Parcels Delivered On Time", perf, 0, "count", true, "Parcels delivered within the promised window"},
	{3, "Parcels Undelivered", perf, 0, "count", true, "Parcels returned undelivered"},
	{4, "Delivery Accuracy", perf, 0, "%", true, "Deliveries to the correct address"},
	{5, "Route Distance Covered", perf, 0, "miles", true, "Distance driven or walked on route"},
	{6, "Mail Pieces Scanned", perf, 0, "count", true, "Items scanned at pickup and delivery"},
	{7, "Customer Complaints", perf, 0, "count", true, "Complaints logged against the route"},
	{8, "Vehicle Safety Check", perf, 0, "", false, "Pre-route vehicle inspection outcome"},
	{9, "Stress Level", well, shared, "1-10", true, "Self-reported stress"},
	{10, "Job Satisfaction", well, shared, "1-10", true, "Self-reported job satisfaction"},
	{11, "Sleep Hours", well, shared, "hours", true, "Sleep the night before"},
	{12, "Energy Level", well, shared, "1-10", true, "Self-reported energy"},
	{13, "Counter Transactions", perf, 0, "count", true, "Transactions processed at the counter"},
	{14, "Customer Wait Time", perf, 0, "minutes", true, "Average customer wait at the counter"},
	{15, "Customer Satisfaction Score", perf, 0, "1-5", true, "Average customer survey score"},
	{16, "Cash Drawer Discrepancy", perf, 0, "USD", true, "Difference at drawer reconciliation"},
	{17, "Forms Processed", perf, 0, "count", true, "Applications and forms processed"},
	{18, "Overtime Hours", perf, shared, "hours", true, "Hours worked beyond the scheduled shift"},
	{19, "Patient Records Processed", perf, 1, "count", true, "Records created or updated"},
	{20, "Billing Accuracy", perf, 1, "%", true, "Claims billed without correction"},
	{21, "Patients Attended", perf, 1, "count", true, "Patients cared for during the shift"},
	{22, "Medication Errors", perf, 1, "count", true, "Medication administration errors"},
	{23, "Call Response Time", perf, 1, "minutes", true, "Average time to answer a patient call"},
	{24, "Scheduling Accuracy", perf, 1, "%", true, "Appointments booked without conflict"},
	{25, "Insurance Claims Processed", perf, 1, "count", true, "Claims submitted to insurers"},
	{26, "Claim Turnaround", perf, 1, "days", true, "Average days from visit to claim"},
	{27, "Shift Handover", perf, 1, "", false, "Handover completed and notes"},
	{28, "Hand Hygiene Compliance", perf, 1, "%", true, "Observed hand hygiene compliance"},
	{29, "Patient Satisfaction Score", perf, 1, "1-5", true, "Average patient survey score"},
	{30, "Documentation Completeness", perf, 1, "%", true, "Charts completed by end of shift"},
	{31, "Burnout Risk", well, 1, "1-10", true, "Self-assessed burnout risk"},
	{32, "Breaks Taken", well, 1, "count", true, "Breaks taken during the shift"},
	{33, "Screen Time", well, 1, "hours", true, "Hours in front of a screen"},
	{34, "Work-Life Balance", well, 1, "1-10", true, "Self-reported work-life balance"},
	{35, "Mood Notes", well, 1, "", false, "Free text mood journal"},
}

// roleMetrics maps (department, employee role) to the metrics that role records.
var roleMetrics = []struct {
	DepartmentID int64
	RoleID       int64
	MetricIDs    []int64
}{
	{1, 1, []int64{2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}},
	{1, 2, []int64{9, 10, 11, 12, 13, 14, 15, 16, 17, 18}},
	{2, 4, []int64{21, 22, 23, 18, 27, 29, 30, 9, 10, 11, 12, 31, 32}},
	{2, 5, []int64{18, 19, 20, 24, 25, 26, 27, 33, 34, 35, 9, 10, 11, 12}},
}

type user struct {
	Username       string
	Email          string
	Password       string
	FirstName      string
	LastName       string
	EmployeeID     string
	Role           database.Role
	DepartmentRole database.DepartmentRole
	Dept           int
	RoleID         *int64
}

func roleID(v int64) *int64 { return &v }

var users = []user{
	{"admin", "admin@example.com", "adminpassword123", "System", "Admin", "EMP001", database.RoleAdmin, database.DeptRoleAdmin2, shared, nil},
	{"jason", "jason@example.com", "jason123", "Jason", "Smith", "EMP002", database.RoleSupervisor, database.DeptRoleUSPSSupervisor, 0, roleID(3)},
	{"patrick", "patrick@example.com", "patrick123", "Patrick", "Smith", "EMP003", database.RoleEmployee, database.DeptRoleUSPSMailCarrier, 0, roleID(1)},
}
