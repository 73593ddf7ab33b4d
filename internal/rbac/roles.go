// Package rbac holds the permission matrix, the row-visibility scopes and the
// write ownership rule. Everything here is pure; the gin middleware is a thin
// adapter over Authorize.
package rbac

import (
	"slices"

	"inspection-backoffice/internal/identity"
)

type Resource string

const (
	ResourceProperty   Resource = "property"
	ResourceInspection Resource = "inspection"
	ResourceCall       Resource = "call"
	ResourceContact    Resource = "contact"
	ResourceUser       Resource = "user"
)

var allResources = []Resource{ResourceProperty, ResourceInspection, ResourceCall, ResourceContact, ResourceUser}

// Action is the verb class of a route. Create and update are both "write".
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

var allActions = []Action{ActionRead, ActionWrite, ActionDelete}

var (
	admin     = identity.RoleAdmin
	manager   = identity.RoleManager
	inspector = identity.RoleInspector
	user      = identity.RoleUser
)

// matrix lists, per resource and action, exactly the roles that may act.
// There is no hierarchy: a role absent from a cell is denied.
var matrix = map[Resource]map[Action][]identity.Role{
	ResourceProperty: {
		ActionRead:   {admin, manager, inspector, user},
		ActionWrite:  {admin, manager, inspector},
		ActionDelete: {admin, manager},
	},
	ResourceInspection: {
		ActionRead:   {admin, manager, inspector, user},
		ActionWrite:  {admin, manager, inspector},
		ActionDelete: {admin, manager},
	},
	ResourceCall: {
		ActionRead:   {admin, manager, inspector, user},
		ActionWrite:  {admin, manager, inspector},
		ActionDelete: {admin, manager},
	},
	ResourceContact: {
		ActionRead:   {admin, manager, inspector, user},
		ActionWrite:  {admin, manager, inspector},
		ActionDelete: {admin, manager},
	},
	ResourceUser: {
		ActionRead:   {admin, manager},
		ActionWrite:  {admin},
		ActionDelete: {admin},
	},
}

// RequiredRoles returns a copy of the allowed set for (res, act).
// Unknown pairs return nil, which Authorize treats as deny-all.
func RequiredRoles(res Resource, act Action) []identity.Role {
	return slices.Clone(matrix[res][act])
}

// Authorize is true iff role is a member of required.
func Authorize(role identity.Role, required []identity.Role) bool {
	return role.Valid() && slices.Contains(required, role)
}

// Allowed is Authorize against the matrix cell for (res, act).
func Allowed(role identity.Role, res Resource, act Action) bool {
	return Authorize(role, matrix[res][act])
}
