package core

import (
	"fmt"
	"strings"
)

// Role is the closed set of user types the API issues.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleCore     Role = "core"
)

// Roles lists every known role in display order.
func Roles() []Role {
	return []Role{RoleEmployee, RoleCore}
}

// ParseRole normalizes s and rejects anything outside the enumeration.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleEmployee, RoleCore:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleEmployee, RoleCore:
		return true
	default:
		return false
	}
}

// Label returns the human readable role name.
func (r Role) Label() string {
	switch r {
	case RoleEmployee:
		return "Employee"
	case RoleCore:
		return "Core"
	default:
		return "Unknown"
	}
}

// Capability is a UI affordance gated by role. The dashboard never calls
// finance endpoints for a role without CapViewFinance; the API still
// enforces authorization on its own.
type Capability int

const (
	CapFilterTasks Capability = iota
	CapCreateTasks
	CapSeeTaskAssignee
	CapUpdateTaskStatus
	CapSubmitReports
	CapCreateSalary
	CapViewFinance
)

// Capabilities lists every capability, used to check the permission table is total.
func Capabilities() []Capability {
	return []Capability{
		CapFilterTasks,
		CapCreateTasks,
		CapSeeTaskAssignee,
		CapUpdateTaskStatus,
		CapSubmitReports,
		CapCreateSalary,
		CapViewFinance,
	}
}

var rolePermissions = map[Role]map[Capability]bool{
	RoleEmployee: {
		CapFilterTasks:      false,
		CapCreateTasks:      false,
		CapSeeTaskAssignee:  false,
		CapUpdateTaskStatus: true,
		CapSubmitReports:    true,
		CapCreateSalary:     false,
		CapViewFinance:      false,
	},
	RoleCore: {
		CapFilterTasks:      true,
		CapCreateTasks:      true,
		CapSeeTaskAssignee:  true,
		CapUpdateTaskStatus: true,
		CapSubmitReports:    false,
		CapCreateSalary:     true,
		CapViewFinance:      true,
	},
}

// Can reports whether the role exposes capability c. Unknown roles get nothing.
func (r Role) Can(c Capability) bool {
	perms, ok := rolePermissions[r]
	if !ok {
		return false
	}
	return perms[c]
}

// Tab identifies a dashboard panel.
type Tab string

const (
	TabTasks   Tab = "tasks"
	TabReports Tab = "reports"
	TabSalary  Tab = "salary"
	TabFinance Tab = "finance"
)

// Title is the tab caption.
func (t Tab) Title() string {
	switch t {
	case TabTasks:
		return "Tasks"
	case TabReports:
		return "Daily Reports"
	case TabSalary:
		return "Salary"
	case TabFinance:
		return "Finance"
	default:
		return string(t)
	}
}

// Tabs returns the panels visible to r, in navigation order.
func (r Role) Tabs() []Tab {
	tabs := []Tab{TabTasks, TabReports, TabSalary}
	if r.Can(CapViewFinance) {
		tabs = append(tabs, TabFinance)
	}
	return tabs
}

// ResolveTab maps a requested tab to one the role may see, defaulting to tasks.
func (r Role) ResolveTab(requested string) Tab {
	want := Tab(strings.ToLower(strings.TrimSpace(requested)))
	for _, t := range r.Tabs() {
		if t == want {
			return t
		}
	}
	return TabTasks
}
