package model

import (
	"time"
)

const (
	RoleAdmin    = "admin"
	RoleAgent    = "agent"
	RoleCustomer = "customer"

	StatusActive   = "active"
	StatusInactive = "inactive"

	MaxMembers = 30
)

// Member is a saved travel companion on a customer profile. Members can
// be attached to bookings as travelers by reference.
type Member struct {
	ID        string      `json:"id,omitempty" bson:"_id,omitempty"`
	Name      string      `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email     string      `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	Gender    string      `json:"gender" bson:"gender" validate:"required,oneof=male female other"`
	Age       int         `json:"age" bson:"age" validate:"required,min=0,max=120"`
	Documents DocumentSet `json:"documents,omitempty" bson:"documents,omitempty"`
}

type User struct {
	ID       string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Email    string `json:"email" bson:"email" validate:"required,email"`
	Password string `json:"-" bson:"password"`
	Name     string `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Role     string `json:"role" bson:"role" validate:"required,oneof=admin agent customer"`
	Status   string `json:"status" bson:"status" validate:"required,oneof=active inactive"`

	Phone    string `json:"phone,omitempty" bson:"phone,omitempty"`
	AltPhone string `json:"alt_phone,omitempty" bson:"alt_phone,omitempty"`

	MustChangePassword bool `json:"must_change_password" bson:"must_change_password"`
	IsVerified         bool `json:"is_verified" bson:"is_verified"`

	Documents DocumentSet `json:"documents,omitempty" bson:"documents,omitempty"`
	Members   []Member    `json:"members,omitempty" bson:"members,omitempty" validate:"omitempty,max=30,dive"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// IsAssignableAgent reports whether the user may receive lead
// assignments: an active, verified agent.
func (u *User) IsAssignableAgent() bool {
	return u.Role == RoleAgent && u.Status == StatusActive && u.IsVerified
}

// MemberByID finds a saved companion by id. Returns nil when absent.
func (u *User) MemberByID(id string) *Member {
	if id == "" {
		return nil
	}
	for i := range u.Members {
		if u.Members[i].ID == id {
			return &u.Members[i]
		}
	}
	return nil
}
