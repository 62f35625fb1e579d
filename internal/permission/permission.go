// Package permission maps account roles to the fixed capability set that
// gates every feature surface of the dashboard. The mapping is the single
// source of truth: handlers and middleware resolve it fresh from the current
// identity instead of re-implementing role checks inline.
package permission

// Role names recognised by the resolver. Any other value resolves to the
// all-false set (fail closed).
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleAnalyst = "analyst"
)

// Set is the fixed record of boolean capabilities derived from a role.
type Set struct {
	CanViewDashboard      bool `json:"can_view_dashboard"`
	CanManageUsers        bool `json:"can_manage_users"`
	CanConfigureAlerts    bool `json:"can_configure_alerts"`
	CanExportData         bool `json:"can_export_data"`
	CanViewAuditLog       bool `json:"can_view_audit_log"`
	CanDeleteAuditLog     bool `json:"can_delete_audit_log"`
	CanManageIntegrations bool `json:"can_manage_integrations"`
}

var roleSets = map[string]Set{
	RoleAdmin: {
		CanViewDashboard:      true,
		CanManageUsers:        true,
		CanConfigureAlerts:    true,
		CanExportData:         true,
		CanViewAuditLog:       true,
		CanDeleteAuditLog:     true,
		CanManageIntegrations: true,
	},
	RoleManager: {
		CanViewDashboard: true,
		CanExportData:    true,
		CanViewAuditLog:  true,
	},
	RoleAnalyst: {
		CanViewDashboard:      true,
		CanConfigureAlerts:    true,
		CanViewAuditLog:       true,
		CanManageIntegrations: true,
	},
}

// Resolve returns the capability set for a role. An empty or unrecognised
// role yields the zero Set, so absent identities are denied everything.
func Resolve(role string) Set {
	return roleSets[role]
}

// ValidRole reports whether role is one of the closed role enum values.
func ValidRole(role string) bool {
	_, ok := roleSets[role]
	return ok
}
