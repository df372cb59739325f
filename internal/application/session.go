package application

import (
	"github.com/oksasatya/finboard/internal/domain/entity"
)

// ClaimsFor builds authentication claims from a verified user.
func ClaimsFor(u *entity.User) entity.Claims {
	if u == nil {
		return entity.Claims{Role: entity.DefaultRole}
	}
	return entity.Claims{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role.OrDefault()}
}

// IssueClaims seeds the token claims for a freshly authenticated user.
// It is pure: the same user always yields the same claims.
func IssueClaims(u *entity.User) entity.TokenClaims {
	c := ClaimsFor(u)
	return entity.TokenClaims{UserID: c.ID, Email: c.Email, Name: c.Name, Role: c.Role}
}

// ProjectSession rebuilds the per-request session view from token claims.
// It is pure and idempotent.
func ProjectSession(tc entity.TokenClaims) entity.SessionView {
	return entity.SessionView{User: entity.SessionUser{
		ID:    tc.UserID,
		Email: tc.Email,
		Name:  tc.Name,
		Role:  tc.Role.OrDefault(),
	}}
}

// DashboardPath is the UI route for a role's dashboard variant.
// It only selects a view; nothing checks that a session may open another role's path.
func DashboardPath(r entity.Role) string {
	return "/dashboard/" + string(r.OrDefault())
}
