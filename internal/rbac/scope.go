package rbac

import (
	"inspection-backoffice/internal/auth"
	"inspection-backoffice/internal/identity"
)

type PredicateKind int

const (
	// MatchNone must be the zero value so an uninitialised Predicate hides everything.
	MatchNone PredicateKind = iota
	MatchAll
	// FieldEquals keeps rows whose Field equals Value.
	FieldEquals
	// PropertyInspectedBy keeps rows whose property (the column named by Via)
	// has at least one inspection with inspector_id = Value.
	PropertyInspectedBy
)

// Column names used by predicates. Stores map them to their own fields.
const (
	FieldID          = "id"
	FieldPropertyID  = "property_id"
	FieldInspectorID = "inspector_id"
	FieldMadeByID    = "made_by_id"
)

// Predicate is the row filter a data query must apply for one caller.
type Predicate struct {
	Kind  PredicateKind
	Field string
	Via   string
	Value string
}

func All() Predicate  { return Predicate{Kind: MatchAll} }
func None() Predicate { return Predicate{Kind: MatchNone} }

func (p Predicate) Unrestricted() bool { return p.Kind == MatchAll }

// ScopeFor derives the visibility predicate for callerID acting as role on res.
//
//	resource    ADMIN/MANAGER  INSPECTOR                           USER
//	property    all            inspected by caller                 all
//	inspection  all            inspector_id = caller               all
//	call        all            made_by_id = caller                 all
//	contact     all            owning property inspected by caller all
//	user        all            none                                none
func ScopeFor(role identity.Role, callerID string, res Resource) Predicate {
	if !role.Valid() || callerID == "" {
		return None()
	}

	switch role {
	case identity.RoleAdmin, identity.RoleManager:
		return All()
	case identity.RoleUser:
		if res == ResourceUser {
			return None()
		}
		return All()
	}

	// INSPECTOR
	switch res {
	case ResourceProperty:
		return Predicate{Kind: PropertyInspectedBy, Via: FieldID, Value: callerID}
	case ResourceInspection:
		return Predicate{Kind: FieldEquals, Field: FieldInspectorID, Value: callerID}
	case ResourceCall:
		return Predicate{Kind: FieldEquals, Field: FieldMadeByID, Value: callerID}
	case ResourceContact:
		return Predicate{Kind: PropertyInspectedBy, Via: FieldPropertyID, Value: callerID}
	default:
		return None()
	}
}

// Scope is ScopeFor for an authenticated caller.
func Scope(p auth.Principal, res Resource) Predicate {
	return ScopeFor(p.Role, p.ID, res)
}

// Ownership carries the per-record facts the write rule compares against.
// CreatorID is the creator (for calls, the maker); AssigneeID is the assigned inspector.
type Ownership struct {
	CreatorID  string
	AssigneeID string
}

// CanMutate applies the ownership rule for updating an existing record.
// ADMIN and MANAGER always pass; otherwise the caller must be the creator
// (property, call, contact) or the assigned inspector (inspection).
// The role matrix is checked separately, before this.
func CanMutate(p auth.Principal, res Resource, own Ownership) bool {
	switch p.Role {
	case identity.RoleAdmin, identity.RoleManager:
		return true
	}
	if p.ID == "" {
		return false
	}
	switch res {
	case ResourceProperty, ResourceCall, ResourceContact:
		return own.CreatorID == p.ID
	case ResourceInspection:
		return own.AssigneeID == p.ID
	default:
		return false
	}
}
