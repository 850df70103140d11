package models

// Role tags users in the external directory. The core trusts these as-is.
type Role string

const (
	RoleDriver   Role = "driver"
	RoleMerchant Role = "merchant"
	RoleAdmin    Role = "admin"
)

// User is a read-only record from the user directory, referenced by name to
// partition orders. The core owns no identity or credentials.
type User struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Role      Role   `db:"role" json:"role"`
	StoreName string `db:"store_name" json:"store_name,omitempty"`
}
