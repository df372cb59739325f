package entity

// Claims are the identity attributes asserted about an authenticated principal.
type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// TokenClaims is the identity sealed into a signed session token.
type TokenClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}

// SessionUser is the user portion of a SessionView.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// SessionView is what the UI receives for an authenticated request.
type SessionView struct {
	User SessionUser `json:"user"`
}
