package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents an operator's role in the dispatch console
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleOperator   Role = "operator"
	RoleViewer     Role = "viewer"
)

// Actions checked by RequirePermission.
const (
	ActionViewSimulation    = "view_simulation"
	ActionControlSimulation = "control_simulation"
	ActionEditSettings      = "edit_settings"
	ActionManageUsers       = "manage_users"
)

// User is a console account allowed to watch or drive the simulation
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	DisplayName  string             `bson:"display_name" json:"display_name"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	LastLogin    *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest represents an account registration request
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

// LoginResponse is returned after a successful login or registration
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Claims are the fields carried in a console JWT
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Exp      int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleSupervisor, RoleOperator, RoleViewer:
		return true
	default:
		return false
	}
}

// RoleAllows reports whether a role may perform an action.
func RoleAllows(role Role, action string) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleSupervisor:
		return action != ActionManageUsers
	case RoleOperator:
		return action == ActionViewSimulation || action == ActionControlSimulation
	case RoleViewer:
		return action == ActionViewSimulation
	default:
		return false
	}
}

// HasPermission checks if a user has permission for a specific action
func (u *User) HasPermission(action string) bool {
	return RoleAllows(u.Role, action)
}
