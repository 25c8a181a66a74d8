package auth

// Principal is the authenticated caller of a request. It is built once by the
// JWT middleware and passed explicitly into every service call.
type Principal struct {
	UserID   uint
	ClientID uint
	Role     string
	Email    string
}

const RoleAdmin = "admin"

// Valid reports whether the principal identifies both a user and a tenant.
func (p Principal) Valid() bool {
	return p.UserID != 0 && p.ClientID != 0
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
