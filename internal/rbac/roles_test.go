package rbac

import (
	"testing"

	"inspection-backoffice/internal/identity"
)

// Expected decisions, one row per (resource, action). Columns: ADMIN, MANAGER, INSPECTOR, USER.
var expected = []struct {
	res   Resource
	act   Action
	allow [4]bool
}{
	{ResourceProperty, ActionRead, [4]bool{true, true, true, true}},
	{ResourceProperty, ActionWrite, [4]bool{true, true, true, false}},
	{ResourceProperty, ActionDelete, [4]bool{true, true, false, false}},

	{ResourceInspection, ActionRead, [4]bool{true, true, true, true}},
	{ResourceInspection, ActionWrite, [4]bool{true, true, true, false}},
	{ResourceInspection, ActionDelete, [4]bool{true, true, false, false}},

	{ResourceCall, ActionRead, [4]bool{true, true, true, true}},
	{ResourceCall, ActionWrite, [4]bool{true, true, true, false}},
	{ResourceCall, ActionDelete, [4]bool{true, true, false, false}},

	{ResourceContact, ActionRead, [4]bool{true, true, true, true}},
	{ResourceContact, ActionWrite, [4]bool{true, true, true, false}},
	{ResourceContact, ActionDelete, [4]bool{true, true, false, false}},

	{ResourceUser, ActionRead, [4]bool{true, true, false, false}},
	{ResourceUser, ActionWrite, [4]bool{true, false, false, false}},
	{ResourceUser, ActionDelete, [4]bool{true, false, false, false}},
}

var roleColumns = [4]identity.Role{identity.RoleAdmin, identity.RoleManager, identity.RoleInspector, identity.RoleUser}

func TestAuthorize_ExhaustiveMatrix(t *testing.T) {
	if len(expected) != len(allResources)*len(allActions) {
		t.Fatalf("expected table must cover every resource x action, has %d rows", len(expected))
	}
	seen := map[Resource]map[Action]bool{}
	for _, row := range expected {
		if seen[row.res] == nil {
			seen[row.res] = map[Action]bool{}
		}
		seen[row.res][row.act] = true

		for i, role := range roleColumns {
			got := Authorize(role, RequiredRoles(row.res, row.act))
			if got != row.allow[i] {
				t.Errorf("%s %s as %s: expected %v, got %v", row.act, row.res, role, row.allow[i], got)
			}
			if Allowed(role, row.res, row.act) != got {
				t.Errorf("Allowed and Authorize disagree for %s %s %s", role, row.res, row.act)
			}
		}
	}
	for _, res := range allResources {
		for _, act := range allActions {
			if !seen[res][act] {
				t.Errorf("missing expectation for %s %s", res, act)
			}
		}
	}
}

func TestAuthorize_DeniesUnknownInputs(t *testing.T) {
	if Authorize("ROOT", []identity.Role{"ROOT"}) {
		t.Fatalf("invalid role must never be authorized")
	}
	if Allowed(identity.RoleAdmin, "invoice", ActionRead) {
		t.Fatalf("unknown resource must deny")
	}
	if Authorize(identity.RoleAdmin, nil) {
		t.Fatalf("empty required set must deny")
	}
}

func TestRequiredRolesReturnsCopy(t *testing.T) {
	r := RequiredRoles(ResourceUser, ActionWrite)
	r[0] = identity.RoleUser
	if Allowed(identity.RoleUser, ResourceUser, ActionWrite) {
		t.Fatalf("mutating the returned slice must not change the matrix")
	}
}
