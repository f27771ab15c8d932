// models/user.go
package models

// Role values carried by marketplace accounts.
const (
	RoleCustomer = "customer"
	RoleSeller   = "seller"
	RoleAdmin    = "admin"
)

// User is the subset of an account this service reads.
type User struct {
	ID       string `bson:"id" json:"id"`
	Email    string `bson:"email" json:"email"`
	Role     string `bson:"role" json:"role"`
	IsActive bool   `bson:"isActive" json:"isActive"`
}
