package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the access level stored on a user record.
type Role string

const (
	RoleUnset   Role = ""
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

// IsValid reports whether r is one of the assignable roles.
func (r Role) IsValid() bool {
	return r == RoleStudent || r == RoleTutor || r == RoleAdmin
}

// User represents an account created on first login.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Email        string             `bson:"email" json:"email"`
	Name         string             `bson:"name,omitempty" json:"name,omitempty"`
	Image        string             `bson:"image,omitempty" json:"image,omitempty"`
	Role         Role               `bson:"role,omitempty" json:"role,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	LastLoggedIn time.Time          `bson:"last_loggedIn" json:"last_loggedIn"`
}
