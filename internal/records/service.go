package records

import (
	"context"
	"errors"
	"fmt"

	"inspection-backoffice/internal/auth"
	"inspection-backoffice/internal/identity"
	"inspection-backoffice/internal/rbac"
)

// Service applies the caller's visibility scope to every read and the
// ownership rule to every update. Route-level role checks happen before it.
//
// Reads of a hidden record return ErrNotFound; updates to a record the caller
// does not own return ErrAccessDenied even when the record is hidden from them.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

/* ===================== PROPERTIES ===================== */

func (s *Service) ListProperties(ctx context.Context, p auth.Principal) ([]Property, error) {
	return s.store.ListProperties(ctx, rbac.Scope(p, rbac.ResourceProperty))
}

func (s *Service) GetProperty(ctx context.Context, p auth.Principal, id string) (Property, error) {
	return s.store.GetProperty(ctx, id, rbac.Scope(p, rbac.ResourceProperty))
}

func (s *Service) CreateProperty(ctx context.Context, p auth.Principal, in Property) (Property, error) {
	in.CreatedByID = p.ID
	return s.store.CreateProperty(ctx, in)
}

func (s *Service) UpdateProperty(ctx context.Context, p auth.Principal, id string, ch PropertyChanges) (Property, error) {
	cur, err := s.store.GetProperty(ctx, id, rbac.All())
	if err != nil {
		return Property{}, err
	}
	if !rbac.CanMutate(p, rbac.ResourceProperty, rbac.Ownership{CreatorID: cur.CreatedByID}) {
		return Property{}, ErrAccessDenied
	}
	ch.Apply(&cur)
	return s.store.UpdateProperty(ctx, cur)
}

func (s *Service) DeleteProperty(ctx context.Context, id string) error {
	return s.store.DeleteProperty(ctx, id)
}

/* ===================== INSPECTIONS ===================== */

func (s *Service) ListInspections(ctx context.Context, p auth.Principal) ([]Inspection, error) {
	return s.store.ListInspections(ctx, Filter{}, rbac.Scope(p, rbac.ResourceInspection))
}

// ListPropertyInspections lists a property's inspections. A property the caller
// cannot see is reported as ErrNotFound.
func (s *Service) ListPropertyInspections(ctx context.Context, p auth.Principal, propertyID string) ([]Inspection, error) {
	if _, err := s.GetProperty(ctx, p, propertyID); err != nil {
		return nil, err
	}
	return s.store.ListInspections(ctx, Filter{PropertyID: propertyID}, rbac.Scope(p, rbac.ResourceInspection))
}

func (s *Service) GetInspection(ctx context.Context, p auth.Principal, id string) (Inspection, error) {
	return s.store.GetInspection(ctx, id, rbac.Scope(p, rbac.ResourceInspection))
}

// CreateInspection schedules a visit. An INSPECTOR always books themselves;
// other roles may assign anyone and default to themselves.
func (s *Service) CreateInspection(ctx context.Context, p auth.Principal, in Inspection) (Inspection, error) {
	if p.Role == identity.RoleInspector || in.InspectorID == "" {
		in.InspectorID = p.ID
	}
	if in.Status == "" {
		in.Status = InspectionScheduled
	}
	if !in.Status.Valid() {
		return Inspection{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}
	if _, err := s.store.GetProperty(ctx, in.PropertyID, rbac.All()); errors.Is(err, ErrNotFound) {
		return Inspection{}, fmt.Errorf("%w: property %s", ErrInvalidInput, in.PropertyID)
	} else if err != nil {
		return Inspection{}, err
	}
	in.CreatedByID = p.ID
	return s.store.CreateInspection(ctx, in)
}

func (s *Service) UpdateInspection(ctx context.Context, p auth.Principal, id string, ch InspectionChanges) (Inspection, error) {
	cur, err := s.store.GetInspection(ctx, id, rbac.All())
	if err != nil {
		return Inspection{}, err
	}
	if !rbac.CanMutate(p, rbac.ResourceInspection, rbac.Ownership{CreatorID: cur.CreatedByID, AssigneeID: cur.InspectorID}) {
		return Inspection{}, ErrAccessDenied
	}
	// reassignment is a scheduling decision, not the assignee's
	if ch.InspectorID != nil && *ch.InspectorID != cur.InspectorID && p.Role == identity.RoleInspector {
		return Inspection{}, ErrAccessDenied
	}
	if ch.Status != nil && !ch.Status.Valid() {
		return Inspection{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *ch.Status)
	}
	ch.Apply(&cur)
	return s.store.UpdateInspection(ctx, cur)
}

func (s *Service) DeleteInspection(ctx context.Context, id string) error {
	return s.store.DeleteInspection(ctx, id)
}

/* ===================== CALLS ===================== */

func (s *Service) ListCalls(ctx context.Context, p auth.Principal) ([]Call, error) {
	return s.store.ListCalls(ctx, Filter{}, rbac.Scope(p, rbac.ResourceCall))
}

func (s *Service) ListPropertyCalls(ctx context.Context, p auth.Principal, propertyID string) ([]Call, error) {
	if _, err := s.GetProperty(ctx, p, propertyID); err != nil {
		return nil, err
	}
	return s.store.ListCalls(ctx, Filter{PropertyID: propertyID}, rbac.Scope(p, rbac.ResourceCall))
}

// ListInspectionCalls lists calls logged against an inspection the caller can see.
func (s *Service) ListInspectionCalls(ctx context.Context, p auth.Principal, inspectionID string) ([]Call, error) {
	if _, err := s.GetInspection(ctx, p, inspectionID); err != nil {
		return nil, err
	}
	return s.store.ListCalls(ctx, Filter{InspectionID: inspectionID}, rbac.Scope(p, rbac.ResourceCall))
}

func (s *Service) GetCall(ctx context.Context, p auth.Principal, id string) (Call, error) {
	return s.store.GetCall(ctx, id, rbac.Scope(p, rbac.ResourceCall))
}

// CreateCall logs a call as made by the caller. The property, and the
// inspection when one is linked, must be visible to the caller; hidden parents
// report ErrNotFound exactly like a missing one.
func (s *Service) CreateCall(ctx context.Context, p auth.Principal, c Call) (Call, error) {
	if _, err := s.GetProperty(ctx, p, c.PropertyID); err != nil {
		return Call{}, err
	}
	if c.InspectionID != nil {
		if _, err := s.GetInspection(ctx, p, *c.InspectionID); err != nil {
			return Call{}, err
		}
	}
	c.MadeByID = p.ID
	return s.store.CreateCall(ctx, c)
}

func (s *Service) UpdateCall(ctx context.Context, p auth.Principal, id string, ch CallChanges) (Call, error) {
	cur, err := s.store.GetCall(ctx, id, rbac.All())
	if err != nil {
		return Call{}, err
	}
	if !rbac.CanMutate(p, rbac.ResourceCall, rbac.Ownership{CreatorID: cur.MadeByID}) {
		return Call{}, ErrAccessDenied
	}
	ch.Apply(&cur)
	return s.store.UpdateCall(ctx, cur)
}

func (s *Service) DeleteCall(ctx context.Context, id string) error {
	return s.store.DeleteCall(ctx, id)
}

/* ===================== CONTACTS ===================== */

// ListPropertyContacts lists contacts of a property; contacts follow the property's scope.
func (s *Service) ListPropertyContacts(ctx context.Context, p auth.Principal, propertyID string) ([]Contact, error) {
	if _, err := s.GetProperty(ctx, p, propertyID); err != nil {
		return nil, err
	}
	return s.store.ListContacts(ctx, Filter{PropertyID: propertyID}, rbac.Scope(p, rbac.ResourceContact))
}

func (s *Service) GetContact(ctx context.Context, p auth.Principal, id string) (Contact, error) {
	return s.store.GetContact(ctx, id, rbac.Scope(p, rbac.ResourceContact))
}

// CreateContact adds a contact to a property the caller can see.
func (s *Service) CreateContact(ctx context.Context, p auth.Principal, c Contact) (Contact, error) {
	if _, err := s.GetProperty(ctx, p, c.PropertyID); err != nil {
		return Contact{}, err
	}
	c.CreatedByID = p.ID
	return s.store.CreateContact(ctx, c)
}

func (s *Service) UpdateContact(ctx context.Context, p auth.Principal, id string, ch ContactChanges) (Contact, error) {
	cur, err := s.store.GetContact(ctx, id, rbac.All())
	if err != nil {
		return Contact{}, err
	}
	if !rbac.CanMutate(p, rbac.ResourceContact, rbac.Ownership{CreatorID: cur.CreatedByID}) {
		return Contact{}, ErrAccessDenied
	}
	ch.Apply(&cur)
	return s.store.UpdateContact(ctx, cur)
}

func (s *Service) DeleteContact(ctx context.Context, id string) error {
	return s.store.DeleteContact(ctx, id)
}
