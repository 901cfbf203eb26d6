package authority

import (
	"strings"

	"github.com/fundwit/go-commons/types"
)

type Permissions []string

func (c Permissions) HasRole(role string) bool {
	for _, v := range c {
		if strings.EqualFold(v, role) {
			return true
		}
	}
	return false
}

// HasAnyRole is the single role-set intersection primitive, roles are compared upper-cased.
func (c Permissions) HasAnyRole(roles ...string) bool {
	if len(c) == 0 || len(roles) == 0 {
		return false
	}
	wanted := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		wanted[NormalizeRole(r)] = struct{}{}
	}
	for _, v := range c {
		if _, ok := wanted[NormalizeRole(v)]; ok {
			return true
		}
	}
	return false
}

func NormalizeRole(role string) string {
	return strings.ToUpper(strings.TrimSpace(role))
}

// Principal is the acting user as seen by permission checks.
type Principal struct {
	ID    types.ID
	Name  string
	Perms Permissions
}
