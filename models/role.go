package models

import "fmt"

// Role is the closed set of user roles understood by the access control
// evaluator. Adding a role here forces every switch over Role to be revisited.
type Role string

// The four roles in the system.
const (
	RoleClient    Role = "client"
	RoleLawyer    Role = "lawyer"
	RoleAssociate Role = "associate"
	RoleAdmin     Role = "admin"
)

// ParseRole validates a raw role string against the closed enumeration
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleClient, RoleLawyer, RoleAssociate, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

// SignupRoles are the roles a user may self-select at registration time.
// Admin accounts are provisioned out of band.
func SignupRoles() []Role {
	return []Role{RoleClient, RoleAssociate, RoleLawyer}
}
