// Package types holds the small value objects shared across modules.
package types

type ID string

// Money is an integer amount of the smallest currency unit (halalas).
type Money struct {
	Amount   int64
	Currency string
}

// Role is the platform-wide user role carried in the auth token.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleOperations Role = "OPERATIONS"
	RoleDriver     Role = "DRIVER"
	RoleCustomer   Role = "CUSTOMER"
)

// Staff reports whether the role belongs to back-office users.
func (r Role) Staff() bool {
	return r == RoleAdmin || r == RoleOperations
}

// Actor identifies the authenticated user performing a request.
type Actor struct {
	ID   ID
	Role Role
}
