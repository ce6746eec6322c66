package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"employee", RoleEmployee, false},
		{" Core ", RoleCore, false},
		{"admin", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownRole)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPermissionTableIsTotal(t *testing.T) {
	for _, r := range Roles() {
		perms, ok := rolePermissions[r]
		require.True(t, ok, "role %s missing from permission table", r)
		for _, c := range Capabilities() {
			_, ok := perms[c]
			assert.True(t, ok, "role %s has no entry for capability %d", r, c)
		}
	}
}

func TestRoleCapabilities(t *testing.T) {
	assert.False(t, RoleEmployee.Can(CapViewFinance))
	assert.False(t, RoleEmployee.Can(CapCreateTasks))
	assert.False(t, RoleEmployee.Can(CapCreateSalary))
	assert.True(t, RoleEmployee.Can(CapSubmitReports))
	assert.True(t, RoleEmployee.Can(CapUpdateTaskStatus))

	assert.True(t, RoleCore.Can(CapViewFinance))
	assert.True(t, RoleCore.Can(CapFilterTasks))
	assert.True(t, RoleCore.Can(CapSeeTaskAssignee))
	assert.False(t, RoleCore.Can(CapSubmitReports))

	assert.False(t, Role("intern").Can(CapUpdateTaskStatus))
}

func TestTabsByRole(t *testing.T) {
	assert.Equal(t, []Tab{TabTasks, TabReports, TabSalary}, RoleEmployee.Tabs())
	assert.Equal(t, []Tab{TabTasks, TabReports, TabSalary, TabFinance}, RoleCore.Tabs())

	assert.Equal(t, TabTasks, RoleEmployee.ResolveTab("finance"))
	assert.Equal(t, TabFinance, RoleCore.ResolveTab("Finance"))
	assert.Equal(t, TabReports, RoleEmployee.ResolveTab("reports"))
	assert.Equal(t, TabTasks, RoleCore.ResolveTab(""))
	assert.Equal(t, "Daily Reports", TabReports.Title())
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "Ann", User{Name: "Ann", Email: "ann@corp.io"}.DisplayName())
	assert.Equal(t, "ann@corp.io", User{Name: "  ", Email: "ann@corp.io"}.DisplayName())
}
