package entity

// Role is the business segment a user belongs to.
// It selects which dashboard variant the UI renders and is not a permission level.
type Role string

const (
	RoleStartup    Role = "startup"
	RoleSME        Role = "sme"
	RoleEnterprise Role = "enterprise"
)

// DefaultRole applies when a stored record carries no role.
const DefaultRole = RoleStartup

// Roles lists every known role in display order.
func Roles() []Role {
	return []Role{RoleStartup, RoleSME, RoleEnterprise}
}

// OrDefault returns r, or DefaultRole when r is empty.
// Unknown non-empty values are passed through untouched.
func (r Role) OrDefault() Role {
	if r == "" {
		return DefaultRole
	}
	return r
}

func (r Role) Valid() bool {
	switch r {
	case RoleStartup, RoleSME, RoleEnterprise:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
