package presets

import "clinic-authz/internal/policy"

const (
	RoleAdmin       policy.Role = "admin"
	RoleGerente     policy.Role = "gerente"
	RoleFuncionario policy.Role = "funcionario"

	ResourceDashboard     policy.Resource = "dashboard"
	ResourceClients       policy.Resource = "clients"
	ResourceSchedule      policy.Resource = "schedule"
	ResourceProfessionals policy.Resource = "professionals"
	ResourceFinance       policy.Resource = "finance"
	ResourceReports       policy.Resource = "reports"
	ResourceUsers         policy.Resource = "users"
	ResourceSettings      policy.Resource = "settings"
	ResourceAudit         policy.Resource = "audit"

	ActionRead            policy.Action = "read"
	ActionCreate          policy.Action = "create"
	ActionUpdate          policy.Action = "update"
	ActionDelete          policy.Action = "delete"
	ActionSchedule        policy.Action = "schedule"
	ActionReschedule      policy.Action = "reschedule"
	ActionCancel          policy.Action = "cancel"
	ActionConfirm         policy.Action = "confirm"
	ActionProcessPayment  policy.Action = "process_payment"
	ActionViewRevenue     policy.Action = "view_revenue"
	ActionViewReports     policy.Action = "view_reports"
	ActionScheduleReports policy.Action = "schedule_reports"
	ActionManageUsers     policy.Action = "manage_users"
	ActionConfigure       policy.Action = "configure"
)

var (
	everyone  = []policy.Role{RoleAdmin, RoleGerente, RoleFuncionario}
	managers  = []policy.Role{RoleAdmin, RoleGerente}
	adminOnly = []policy.Role{RoleAdmin}
)

// Clinic returns the policy table for the clinic back office.
// admin appears in every entry; manager rights are spelled out per entry.
func Clinic() policy.Config {
	return policy.Config{
		Roles: []policy.Role{
			RoleAdmin,
			RoleGerente,
			RoleFuncionario,
		},
		Resources: []policy.Resource{
			ResourceDashboard,
			ResourceClients,
			ResourceSchedule,
			ResourceProfessionals,
			ResourceFinance,
			ResourceReports,
			ResourceUsers,
			ResourceSettings,
			ResourceAudit,
		},
		Actions: []policy.Action{
			ActionRead,
			ActionCreate,
			ActionUpdate,
			ActionDelete,
			ActionSchedule,
			ActionReschedule,
			ActionCancel,
			ActionConfirm,
			ActionProcessPayment,
			ActionViewRevenue,
			ActionViewReports,
			ActionScheduleReports,
			ActionManageUsers,
			ActionConfigure,
		},
		Entries: []policy.Entry{
			{Resource: ResourceDashboard, Action: ActionRead, Roles: everyone},

			{Resource: ResourceClients, Action: ActionRead, Roles: everyone},
			{Resource: ResourceClients, Action: ActionCreate, Roles: everyone},
			{Resource: ResourceClients, Action: ActionUpdate, Roles: everyone},
			{Resource: ResourceClients, Action: ActionDelete, Roles: managers},

			{Resource: ResourceSchedule, Action: ActionRead, Roles: everyone},
			{Resource: ResourceSchedule, Action: ActionSchedule, Roles: everyone},
			{Resource: ResourceSchedule, Action: ActionReschedule, Roles: everyone},
			{Resource: ResourceSchedule, Action: ActionConfirm, Roles: everyone},
			// staff may only cancel appointments of their own unit
			{Resource: ResourceSchedule, Action: ActionCancel, Roles: everyone, Condition: policy.SameUnit(RoleAdmin, RoleGerente)},

			{Resource: ResourceProfessionals, Action: ActionRead, Roles: everyone},
			{Resource: ResourceProfessionals, Action: ActionCreate, Roles: managers},
			{Resource: ResourceProfessionals, Action: ActionUpdate, Roles: managers},
			{Resource: ResourceProfessionals, Action: ActionDelete, Roles: adminOnly},

			{Resource: ResourceFinance, Action: ActionRead, Roles: managers},
			{Resource: ResourceFinance, Action: ActionProcessPayment, Roles: everyone},
			{Resource: ResourceFinance, Action: ActionViewRevenue, Roles: managers},
			{Resource: ResourceFinance, Action: ActionUpdate, Roles: adminOnly},
			{Resource: ResourceFinance, Action: ActionDelete, Roles: adminOnly},

			{Resource: ResourceReports, Action: ActionRead, Roles: managers},
			{Resource: ResourceReports, Action: ActionCreate, Roles: managers},
			{Resource: ResourceReports, Action: ActionViewReports, Roles: managers},
			{Resource: ResourceReports, Action: ActionScheduleReports, Roles: adminOnly},

			{Resource: ResourceUsers, Action: ActionRead, Roles: managers},
			{Resource: ResourceUsers, Action: ActionCreate, Roles: adminOnly},
			// everyone may edit their own profile
			{Resource: ResourceUsers, Action: ActionUpdate, Roles: everyone, Condition: policy.IsSelf(RoleAdmin)},
			{Resource: ResourceUsers, Action: ActionDelete, Roles: adminOnly},
			{Resource: ResourceUsers, Action: ActionManageUsers, Roles: adminOnly},

			{Resource: ResourceSettings, Action: ActionRead, Roles: managers},
			{Resource: ResourceSettings, Action: ActionUpdate, Roles: adminOnly},
			{Resource: ResourceSettings, Action: ActionConfigure, Roles: adminOnly},

			{Resource: ResourceAudit, Action: ActionRead, Roles: adminOnly},
		},
	}
}
