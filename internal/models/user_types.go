package models

// Roles issued by the identity provider.
const (
	RoleSeller = "seller"
	RoleBuyer  = "buyer"
	RoleAdmin  = "admin"
)

// Actor is the authenticated caller of a state-changing operation, along
// with the request metadata recorded in the audit trail.
type Actor struct {
	UserID    string
	Role      string
	IPAddress string
	UserAgent string
	RequestID string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
