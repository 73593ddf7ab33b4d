package records

import (
	"context"
	"errors"
	"testing"

	"inspection-backoffice/internal/auth"
	"inspection-backoffice/internal/identity"
)

var (
	admin   = auth.Principal{ID: "admin-1", Role: identity.RoleAdmin}
	manager = auth.Principal{ID: "manager-1", Role: identity.RoleManager}
	inspX   = auth.Principal{ID: "insp-x", Role: identity.RoleInspector}
	inspY   = auth.Principal{ID: "insp-y", Role: identity.RoleInspector}
	viewer  = auth.Principal{ID: "user-1", Role: identity.RoleUser}
)

// world: two properties, X inspected A, Y inspected B, each logged one call on
// their own inspection and each property has one contact.
type world struct {
	svc                *Service
	propA, propB       Property
	inspA, inspB       Inspection
	callX, callY       Call
	contactA, contactB Contact
}

func newWorld(t *testing.T) world {
	t.Helper()
	ctx := context.Background()
	svc := NewService(NewMemoryRepo())
	var w world
	w.svc = svc
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	var err error
	w.propA, err = svc.CreateProperty(ctx, manager, Property{Address: "1 Oak St"})
	must(err)
	w.propB, err = svc.CreateProperty(ctx, manager, Property{Address: "2 Elm St"})
	must(err)
	w.inspA, err = svc.CreateInspection(ctx, inspX, Inspection{PropertyID: w.propA.ID})
	must(err)
	w.inspB, err = svc.CreateInspection(ctx, manager, Inspection{PropertyID: w.propB.ID, InspectorID: inspY.ID})
	must(err)
	w.callX, err = svc.CreateCall(ctx, inspX, Call{PropertyID: w.propA.ID, InspectionID: &w.inspA.ID, Outcome: "booked"})
	must(err)
	w.callY, err = svc.CreateCall(ctx, inspY, Call{PropertyID: w.propB.ID, InspectionID: &w.inspB.ID, Outcome: "voicemail"})
	must(err)
	w.contactA, err = svc.CreateContact(ctx, manager, Contact{PropertyID: w.propA.ID, Name: "Ann Owner"})
	must(err)
	w.contactB, err = svc.CreateContact(ctx, manager, Contact{PropertyID: w.propB.ID, Name: "Bob Tenant"})
	must(err)
	return w
}

func ids[T any](items []T, id func(T) string) map[string]bool {
	out := map[string]bool{}
	for _, it := range items {
		out[id(it)] = true
	}
	return out
}

func TestInspectorSeesOnlyOwnInspections(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	got, err := w.svc.ListInspections(ctx, inspX)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != w.inspA.ID || got[0].InspectorID != inspX.ID {
		t.Fatalf("expected only X's inspection, got %+v", got)
	}
	for _, in := range got {
		if in.InspectorID != inspX.ID {
			t.Fatalf("leaked inspection %s of %s", in.ID, in.InspectorID)
		}
	}

	if _, err := w.svc.GetInspection(ctx, inspX, w.inspB.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected 404-style ErrNotFound for Y's inspection, got %v", err)
	}
}

func TestUnrestrictedRolesSeeEverything(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	for _, p := range []auth.Principal{admin, manager, viewer} {
		props, _ := w.svc.ListProperties(ctx, p)
		insps, _ := w.svc.ListInspections(ctx, p)
		calls, _ := w.svc.ListCalls(ctx, p)
		if len(props) != 2 || len(insps) != 2 || len(calls) != 2 {
			t.Fatalf("%s: expected full lists, got %d/%d/%d", p.Role, len(props), len(insps), len(calls))
		}
	}
}

func TestInspectorPropertyAndContactScope(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	props, err := w.svc.ListProperties(ctx, inspX)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := ids(props, func(p Property) string { return p.ID }); len(got) != 1 || !got[w.propA.ID] {
		t.Fatalf("expected only inspected property A, got %v", got)
	}
	if _, err := w.svc.GetProperty(ctx, inspX, w.propB.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for B, got %v", err)
	}

	contacts, err := w.svc.ListPropertyContacts(ctx, inspX, w.propA.ID)
	if err != nil || len(contacts) != 1 || contacts[0].ID != w.contactA.ID {
		t.Fatalf("expected A's contact, got %+v %v", contacts, err)
	}
	if _, err := w.svc.ListPropertyContacts(ctx, inspX, w.propB.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound listing B's contacts, got %v", err)
	}
	if _, err := w.svc.GetContact(ctx, inspX, w.contactB.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for B's contact, got %v", err)
	}

	// a property X has never inspected becomes visible once X books it
	if _, err := w.svc.CreateInspection(ctx, inspX, Inspection{PropertyID: w.propB.ID}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := w.svc.GetContact(ctx, inspX, w.contactB.ID); err != nil {
		t.Fatalf("expected B's contact visible after booking, got %v", err)
	}
}

func TestInspectorCallScope(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	calls, err := w.svc.ListInspectionCalls(ctx, inspX, w.inspA.ID)
	if err != nil || len(calls) != 1 || calls[0].ID != w.callX.ID {
		t.Fatalf("expected X's call, got %+v %v", calls, err)
	}
	if _, err := w.svc.ListInspectionCalls(ctx, inspX, w.inspB.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound via Y's inspection, got %v", err)
	}
	if _, err := w.svc.GetCall(ctx, inspX, w.callY.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for Y's call, got %v", err)
	}

	all, err := w.svc.ListCalls(ctx, inspY)
	if err != nil || len(all) != 1 || all[0].MadeByID != inspY.ID {
		t.Fatalf("expected only Y's call, got %+v %v", all, err)
	}
}

func TestUpdateOwnershipRule(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	findings := "termites in crawlspace"

	if _, err := w.svc.UpdateInspection(ctx, inspX, w.inspA.ID, InspectionChanges{Findings: &findings}); err != nil {
		t.Fatalf("assignee update: %v", err)
	}
	if _, err := w.svc.UpdateInspection(ctx, inspX, w.inspB.ID, InspectionChanges{Findings: &findings}); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied (not ErrNotFound) on Y's inspection, got %v", err)
	}
	if _, err := w.svc.UpdateInspection(ctx, inspX, w.inspA.ID, InspectionChanges{InspectorID: &inspY.ID}); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected inspector reassignment denied, got %v", err)
	}
	if _, err := w.svc.UpdateInspection(ctx, manager, w.inspA.ID, InspectionChanges{InspectorID: &inspY.ID}); err != nil {
		t.Fatalf("manager reassignment: %v", err)
	}

	notes := "call back friday"
	if _, err := w.svc.UpdateCall(ctx, inspY, w.callX.ID, CallChanges{Notes: &notes}); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied on X's call, got %v", err)
	}
	if c, err := w.svc.UpdateCall(ctx, inspX, w.callX.ID, CallChanges{Notes: &notes}); err != nil || c.Notes != notes || c.MadeByID != inspX.ID {
		t.Fatalf("maker update: %+v %v", c, err)
	}

	addr := "1 Oak Street"
	if _, err := w.svc.UpdateProperty(ctx, inspX, w.propA.ID, PropertyChanges{Address: &addr}); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("inspector did not create property A, expected ErrAccessDenied, got %v", err)
	}
	own, err := w.svc.CreateProperty(ctx, inspX, Property{Address: "9 Pine"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := w.svc.UpdateProperty(ctx, inspX, own.ID, PropertyChanges{Address: &addr}); err != nil {
		t.Fatalf("creator update: %v", err)
	}

	if _, err := w.svc.UpdateProperty(ctx, admin, "missing", PropertyChanges{Address: &addr}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	if _, err := w.svc.CreateInspection(ctx, manager, Inspection{PropertyID: "nope"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown property, got %v", err)
	}
	if _, err := w.svc.CreateInspection(ctx, manager, Inspection{PropertyID: w.propA.ID, Status: "DONE"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad status, got %v", err)
	}
	if _, err := w.svc.CreateCall(ctx, manager, Call{PropertyID: w.propA.ID, InspectionID: &w.inspB.ID}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for cross-property inspection, got %v", err)
	}
	if _, err := w.svc.CreateProperty(ctx, manager, Property{Address: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank address, got %v", err)
	}

	in, err := w.svc.CreateInspection(ctx, inspX, Inspection{PropertyID: w.propB.ID, InspectorID: inspY.ID})
	if err != nil || in.InspectorID != inspX.ID {
		t.Fatalf("inspector must book themselves, got %+v %v", in, err)
	}
}

func TestCreateUnderHiddenParentIsNotFound(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	cases := []struct {
		name string
		run  func() error
	}{
		{"call on hidden property", func() error {
			_, err := w.svc.CreateCall(ctx, inspX, Call{PropertyID: w.propB.ID})
			return err
		}},
		{"call on hidden inspection", func() error {
			_, err := w.svc.CreateCall(ctx, inspX, Call{PropertyID: w.propB.ID, InspectionID: &w.inspB.ID})
			return err
		}},
		{"call on visible property linking a hidden inspection", func() error {
			_, err := w.svc.CreateCall(ctx, inspX, Call{PropertyID: w.propA.ID, InspectionID: &w.inspB.ID})
			return err
		}},
		{"call on unknown property", func() error {
			_, err := w.svc.CreateCall(ctx, manager, Call{PropertyID: "nope"})
			return err
		}},
		{"contact on hidden property", func() error {
			_, err := w.svc.CreateContact(ctx, inspX, Contact{PropertyID: w.propB.ID, Name: "Eve"})
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.run(); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}

	calls, _ := w.svc.ListCalls(ctx, admin)
	contacts, _ := w.svc.ListPropertyContacts(ctx, admin, w.propB.ID)
	if len(calls) != 2 || len(contacts) != 1 {
		t.Fatalf("nothing should have been written, got %d calls %d contacts", len(calls), len(contacts))
	}

	if _, err := w.svc.CreateCall(ctx, inspX, Call{PropertyID: w.propA.ID, InspectionID: &w.inspA.ID}); err != nil {
		t.Fatalf("call on own inspection: %v", err)
	}
	if _, err := w.svc.CreateContact(ctx, inspX, Contact{PropertyID: w.propA.ID, Name: "Ann Agent"}); err != nil {
		t.Fatalf("contact on inspected property: %v", err)
	}
}

func TestDeletePropertyCascades(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	if err := w.svc.DeleteProperty(ctx, w.propA.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := w.svc.GetInspection(ctx, admin, w.inspA.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected inspection removed, got %v", err)
	}
	if _, err := w.svc.GetContact(ctx, admin, w.contactA.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected contact removed, got %v", err)
	}
	if err := w.svc.DeleteProperty(ctx, w.propA.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
