package records

import (
	"strings"
	"time"
)

// Property is a surveyed address. Contacts, inspections and calls hang off it.
type Property struct {
	ID           string    `json:"id"`
	Address      string    `json:"address"`
	City         string    `json:"city,omitempty"`
	State        string    `json:"state,omitempty"`
	ZipCode      string    `json:"zipCode,omitempty"`
	PropertyType string    `json:"propertyType,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedByID  string    `json:"createdById"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type InspectionStatus string

const (
	InspectionScheduled InspectionStatus = "SCHEDULED"
	InspectionCompleted InspectionStatus = "COMPLETED"
	InspectionCancelled InspectionStatus = "CANCELLED"
)

func (s InspectionStatus) Valid() bool {
	switch s {
	case InspectionScheduled, InspectionCompleted, InspectionCancelled:
		return true
	default:
		return false
	}
}

// Inspection is one visit to a property by one inspector.
type Inspection struct {
	ID          string           `json:"id"`
	PropertyID  string           `json:"propertyId"`
	InspectorID string           `json:"inspectorId"`
	Status      InspectionStatus `json:"status"`
	ScheduledAt *time.Time       `json:"scheduledAt,omitempty"`
	Findings    string           `json:"findings,omitempty"`
	CreatedByID string           `json:"createdById"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Call is a phone contact attempt about a property, optionally tied to an inspection.
type Call struct {
	ID           string    `json:"id"`
	PropertyID   string    `json:"propertyId"`
	InspectionID *string   `json:"inspectionId,omitempty"`
	MadeByID     string    `json:"madeById"`
	Outcome      string    `json:"outcome,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CalledAt     time.Time `json:"calledAt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Contact is a person reachable about a property (owner, tenant, agent).
type Contact struct {
	ID           string    `json:"id"`
	PropertyID   string    `json:"propertyId"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	Relationship string    `json:"relationship,omitempty"`
	CreatedByID  string    `json:"createdById"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Partial updates. Nil fields are left untouched.

type PropertyChanges struct {
	Address      *string `json:"address"`
	City         *string `json:"city"`
	State        *string `json:"state"`
	ZipCode      *string `json:"zipCode"`
	PropertyType *string `json:"propertyType"`
	Notes        *string `json:"notes"`
}

func (c PropertyChanges) Apply(p *Property) {
	set(&p.Address, c.Address)
	set(&p.City, c.City)
	set(&p.State, c.State)
	set(&p.ZipCode, c.ZipCode)
	set(&p.PropertyType, c.PropertyType)
	set(&p.Notes, c.Notes)
}

type InspectionChanges struct {
	InspectorID *string           `json:"inspectorId"`
	Status      *InspectionStatus `json:"status"`
	ScheduledAt *time.Time        `json:"scheduledAt"`
	Findings    *string           `json:"findings"`
}

func (c InspectionChanges) Apply(in *Inspection) {
	set(&in.InspectorID, c.InspectorID)
	if c.Status != nil {
		in.Status = *c.Status
	}
	if c.ScheduledAt != nil {
		t := c.ScheduledAt.UTC()
		in.ScheduledAt = &t
	}
	set(&in.Findings, c.Findings)
}

type CallChanges struct {
	Outcome  *string    `json:"outcome"`
	Notes    *string    `json:"notes"`
	CalledAt *time.Time `json:"calledAt"`
}

func (c CallChanges) Apply(call *Call) {
	set(&call.Outcome, c.Outcome)
	set(&call.Notes, c.Notes)
	if c.CalledAt != nil {
		call.CalledAt = c.CalledAt.UTC()
	}
}

type ContactChanges struct {
	Name         *string `json:"name"`
	Phone        *string `json:"phone"`
	Email        *string `json:"email"`
	Relationship *string `json:"relationship"`
}

func (c ContactChanges) Apply(ct *Contact) {
	set(&ct.Name, c.Name)
	set(&ct.Phone, c.Phone)
	set(&ct.Email, c.Email)
	set(&ct.Relationship, c.Relationship)
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
