package models

const (
	// RoleUser is the default role of every new account.
	RoleUser = "user"
	// RoleAdmin inherits everything RoleUser may do.
	RoleAdmin = "admin"
	// RoleSuper inherits everything RoleAdmin may do.
	RoleSuper = "super"
)

// DefaultRoles are seeded into an empty roles table.
var DefaultRoles = []string{RoleUser, RoleAdmin, RoleSuper} //nolint:gochecknoglobals

// Role is a known role name. Users and context overrides reference it by ID.
type Role struct {
	// ID is the role name itself (e.g. "admin").
	ID string `gorm:"primaryKey;size:255"`
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}
