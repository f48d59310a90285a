package models

import "strings"

// Role is the access tier of a person.
type Role int

const (
	RoleAdmin Role = 0
	RoleUser  Role = 1
)

// Valid reports whether r is one of the recognized roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Person is an account that can log in.
type Person struct {
	ID       string `gorm:"primaryKey;size:36" bson:"_id" json:"_id"`
	Login    string `gorm:"size:64;uniqueIndex;not null" bson:"login" json:"login"`
	Password string `gorm:"size:255;not null" bson:"password" json:"-"` // bcrypt hash
	Name     string `gorm:"size:64" bson:"name" json:"name"`
	Surname  string `gorm:"size:64" bson:"surname" json:"surname"`
	Role     Role   `gorm:"not null" bson:"role" json:"role"`
}

func (Person) TableName() string { return "persons" }

func (p Person) EntityID() string { return p.ID }

// Validate checks the person and returns the first violation.
func (p *Person) Validate() error {
	if strings.TrimSpace(p.Login) == "" {
		return &FieldError{Field: "login", Message: "is required"}
	}
	if len(p.Login) > 64 {
		return &FieldError{Field: "login", Message: "must be at most 64 characters"}
	}
	if p.Password == "" {
		return &FieldError{Field: "password", Message: "is required"}
	}
	if !p.Role.Valid() {
		return &FieldError{Field: "role", Message: "must be 0 (admin) or 1 (user)"}
	}
	return nil
}
