// Package records is the data-access collaborator for properties, inspections,
// calls and contacts. Every read takes the caller's rbac.Predicate and applies
// it inside the query; rows outside the scope are indistinguishable from rows
// that do not exist.
package records

import (
	"context"
	"errors"

	"inspection-backoffice/internal/rbac"
)

var (
	ErrNotFound     = errors.New("records: not found")
	ErrInvalidInput = errors.New("records: invalid input")
	// ErrAccessDenied is the ownership rule refusing a write to a visible-or-not record.
	ErrAccessDenied = errors.New("records: access denied")
)

// Filter narrows list queries to a parent record. Empty fields are ignored.
type Filter struct {
	PropertyID   string
	InspectionID string
}

// Store persists records. Get* with rbac.All() is the unscoped lookup used by
// the ownership check; Update* writes the whole record and bumps UpdatedAt.
type Store interface {
	ListProperties(ctx context.Context, scope rbac.Predicate) ([]Property, error)
	GetProperty(ctx context.Context, id string, scope rbac.Predicate) (Property, error)
	CreateProperty(ctx context.Context, p Property) (Property, error)
	UpdateProperty(ctx context.Context, p Property) (Property, error)
	DeleteProperty(ctx context.Context, id string) error

	ListInspections(ctx context.Context, f Filter, scope rbac.Predicate) ([]Inspection, error)
	GetInspection(ctx context.Context, id string, scope rbac.Predicate) (Inspection, error)
	CreateInspection(ctx context.Context, in Inspection) (Inspection, error)
	UpdateInspection(ctx context.Context, in Inspection) (Inspection, error)
	DeleteInspection(ctx context.Context, id string) error

	ListCalls(ctx context.Context, f Filter, scope rbac.Predicate) ([]Call, error)
	GetCall(ctx context.Context, id string, scope rbac.Predicate) (Call, error)
	CreateCall(ctx context.Context, c Call) (Call, error)
	UpdateCall(ctx context.Context, c Call) (Call, error)
	DeleteCall(ctx context.Context, id string) error

	ListContacts(ctx context.Context, f Filter, scope rbac.Predicate) ([]Contact, error)
	GetContact(ctx context.Context, id string, scope rbac.Predicate) (Contact, error)
	CreateContact(ctx context.Context, c Contact) (Contact, error)
	UpdateContact(ctx context.Context, c Contact) (Contact, error)
	DeleteContact(ctx context.Context, id string) error
}
