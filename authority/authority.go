package authority

import (
	"docflow/domain"
)

type RoleTable struct {
	AdminRole       string   `yaml:"adminRole"`
	ProductionRoles []string `yaml:"productionRoles"`
	ManagerRoles    []string `yaml:"managerRoles"`
}

var DefaultRoleTable = RoleTable{
	AdminRole: "Admin",
	ProductionRoles: []string{"Admin", "Production", "Quality", "Engineering", "Planning", "Maintenance",
		"Logistics", "Manager", "Project Manager", "Business Manager"},
	ManagerRoles: []string{"Admin", "Manager", "Project Manager", "Business Manager", "Production Manager",
		"Quality Manager"},
}

// Authority answers who may do what to a document. It holds configuration only.
type Authority struct {
	table RoleTable
}

func New(table RoleTable) *Authority {
	if table.AdminRole == "" {
		table.AdminRole = DefaultRoleTable.AdminRole
	}
	// admin always belongs to both allow-lists
	table.ProductionRoles = withRole(table.ProductionRoles, table.AdminRole)
	table.ManagerRoles = withRole(table.ManagerRoles, table.AdminRole)
	return &Authority{table: table}
}

func withRole(roles []string, role string) []string {
	if (Permissions(roles)).HasAnyRole(role) {
		return roles
	}
	r := make([]string, 0, len(roles)+1)
	r = append(r, roles...)
	return append(r, role)
}

func (a *Authority) Table() RoleTable {
	return a.table
}

func (a *Authority) IsAdmin(p Principal) bool {
	return p.Perms.HasAnyRole(a.table.AdminRole)
}

func (a *Authority) CanCreate(p Principal) bool {
	return p.Perms.HasAnyRole(a.table.ProductionRoles...)
}

// CanViewAll reports whether the actor sees every document, not only the ones it takes part in.
func (a *Authority) CanViewAll(p Principal) bool {
	return a.CanCreate(p)
}

func (a *Authority) CanView(p Principal, d *domain.Document) bool {
	return a.CanViewAll(p) || d.IsParticipant(p.ID)
}

func (a *Authority) CanApprove(p Principal, d *domain.Document) bool {
	if a.IsAdmin(p) {
		return true
	}
	return d.ManagerApproverID == p.ID && p.Perms.HasAnyRole(a.table.ManagerRoles...)
}

// CanSign depends on assignment only, the actor's roles are irrelevant.
func (a *Authority) CanSign(p Principal, d *domain.Document) bool {
	i, found := d.FindSigner(p.ID)
	return found && !d.UsersToSign[i].HasSigned
}

func (a *Authority) CanEdit(p Principal, d *domain.Document) bool {
	return d.CreatorID == p.ID || a.IsAdmin(p)
}

func (a *Authority) CanDelete(p Principal, d *domain.Document) bool {
	return a.CanEdit(p, d)
}

// Active is replaced at boot with the table loaded from configuration.
var Active = New(DefaultRoleTable)
