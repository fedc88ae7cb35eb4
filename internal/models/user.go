package models

type Role string

const (
	Admin   Role = "Admin"
	Manager Role = "Manager"
	Parent  Role = "Parent"
	Driver  Role = "Driver"
)

// IsOperator reports whether the role may see the whole fleet.
func (r Role) IsOperator() bool { return r == Admin || r == Manager }

type User struct {
	ID          int64
	Name        string
	Email       string
	PhoneNumber string
	Role        Role
	IsActive    bool
}
