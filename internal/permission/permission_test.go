package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_Admin(t *testing.T) {
	t.Parallel()

	got := Resolve(RoleAdmin)
	assert.Equal(t, Set{
		CanViewDashboard:      true,
		CanManageUsers:        true,
		CanConfigureAlerts:    true,
		CanExportData:         true,
		CanViewAuditLog:       true,
		CanDeleteAuditLog:     true,
		CanManageIntegrations: true,
	}, got)
}

func TestResolve_Manager(t *testing.T) {
	t.Parallel()

	got := Resolve(RoleManager)
	assert.Equal(t, Set{
		CanViewDashboard: true,
		CanExportData:    true,
		CanViewAuditLog:  true,
	}, got)
}

func TestResolve_Analyst(t *testing.T) {
	t.Parallel()

	got := Resolve(RoleAnalyst)
	assert.Equal(t, Set{
		CanViewDashboard:      true,
		CanConfigureAlerts:    true,
		CanViewAuditLog:       true,
		CanManageIntegrations: true,
	}, got)
}

func TestResolve_FailsClosed(t *testing.T) {
	t.Parallel()

	for _, role := range []string{"", "root", "ADMIN", "superuser"} {
		assert.Equal(t, Set{}, Resolve(role), "role %q must resolve to all-false", role)
	}
}

func TestValidRole(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidRole(RoleAdmin))
	assert.True(t, ValidRole(RoleManager))
	assert.True(t, ValidRole(RoleAnalyst))
	assert.False(t, ValidRole("owner"))
	assert.False(t, ValidRole(""))
}
