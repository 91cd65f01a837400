package domain

// Role is a staff permission level.
type Role string

const (
	RoleSuperAdmin      Role = "SUPER_ADMIN"
	RoleCampaignManager Role = "CAMPAIGN_MANAGER"
	RoleFinance         Role = "FINANCE"
	RoleViewer          Role = "VIEWER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleCampaignManager, RoleFinance, RoleViewer:
		return true
	}
	return false
}

// Identity is the authenticated caller of an admin operation.
type Identity struct {
	Subject string
	Role    Role
}

// HasRole reports whether the identity holds any of the given roles.
func (i Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}
