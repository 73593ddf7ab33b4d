package records

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"inspection-backoffice/internal/rbac"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s := NewPGStore(db)
	s.clock = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return s, mock
}

func TestScopeClause(t *testing.T) {
	cases := []struct {
		name  string
		pred  rbac.Predicate
		alias string
		pre   []any
		sql   string
		args  int
	}{
		{"all", rbac.All(), "p", nil, "TRUE", 0},
		{"none", rbac.None(), "p", nil, "FALSE", 0},
		{"zero value", rbac.Predicate{}, "p", nil, "FALSE", 0},
		{"field", rbac.ScopeFor("INSPECTOR", "u1", rbac.ResourceInspection), "i", []any{"id-1"}, "i.inspector_id = $2", 2},
		{"made by", rbac.ScopeFor("INSPECTOR", "u1", rbac.ResourceCall), "c", nil, "c.made_by_id = $1", 1},
		{"property", rbac.ScopeFor("INSPECTOR", "u1", rbac.ResourceProperty), "p", nil,
			"EXISTS (SELECT 1 FROM inspections si WHERE si.property_id = p.id AND si.inspector_id = $1)", 1},
		{"contact", rbac.ScopeFor("INSPECTOR", "u1", rbac.ResourceContact), "ct", nil,
			"EXISTS (SELECT 1 FROM inspections si WHERE si.property_id = ct.property_id AND si.inspector_id = $1)", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sql, args, err := scopeClause(tc.pred, tc.alias, tc.pre)
			if err != nil {
				t.Fatalf("scopeClause: %v", err)
			}
			if sql != tc.sql || len(args) != tc.args {
				t.Fatalf("expected %q with %d args, got %q %v", tc.sql, tc.args, sql, args)
			}
		})
	}

	if _, _, err := scopeClause(rbac.Predicate{Kind: rbac.FieldEquals, Field: "1=1; DROP TABLE users", Value: "x"}, "p", nil); err == nil {
		t.Fatalf("expected unknown column to be rejected")
	}
}

func TestPGStore_ListInspectionsAppliesScope(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM inspections i WHERE i.property_id = $1 AND i.inspector_id = $2 ORDER BY")).
		WithArgs("prop-1", "insp-x").
		WillReturnRows(sqlmock.NewRows([]string{"id", "property_id", "inspector_id", "status", "scheduled_at", "findings", "created_by_id", "created_at", "updated_at"}).
			AddRow("i1", "prop-1", "insp-x", "SCHEDULED", nil, "", "insp-x", now, now))

	got, err := s.ListInspections(context.Background(), Filter{PropertyID: "prop-1"}, rbac.ScopeFor("INSPECTOR", "insp-x", rbac.ResourceInspection))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].InspectorID != "insp-x" || got[0].ScheduledAt != nil {
		t.Fatalf("unexpected rows: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

const (
	propB   = "6f1c2f4e-8a51-4c59-9a43-0d2f5a7b9e10"
	missing = "0b8e4c1d-3f7a-4e22-b6d5-9c1a2e3f4d50"
)

func TestPGStore_GetPropertyHiddenIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM properties p WHERE p.id = $1 AND EXISTS (SELECT 1 FROM inspections si WHERE si.property_id = p.id AND si.inspector_id = $2)")).
		WithArgs(propB, "insp-x").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetProperty(context.Background(), propB, rbac.ScopeFor("INSPECTOR", "insp-x", rbac.ResourceProperty))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStore_CreateCallRejectsForeignInspection(t *testing.T) {
	s, mock := newMockStore(t)
	insp := "insp-of-other-property"

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO calls")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := s.CreateCall(context.Background(), Call{PropertyID: "prop-1", InspectionID: &insp, MadeByID: "u1"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPGStore_CreateMapsForeignKeyViolation(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contacts")).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "contacts_property_id_fkey"})

	_, err := s.CreateContact(context.Background(), Contact{PropertyID: "missing", Name: "Ann"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPGStore_DeleteMissingIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM calls WHERE id = $1")).
		WithArgs(missing).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.DeleteCall(context.Background(), missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// Path ids are user input; one that cannot be a uuid never reaches the database.
func TestPGStore_MalformedIDIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	all := rbac.All()

	checks := map[string]func(string) error{
		"property":   func(id string) error { _, err := s.GetProperty(ctx, id, all); return err },
		"inspection": func(id string) error { _, err := s.GetInspection(ctx, id, all); return err },
		"call":       func(id string) error { _, err := s.GetCall(ctx, id, all); return err },
		"contact":    func(id string) error { _, err := s.GetContact(ctx, id, all); return err },
		"delete":     func(id string) error { return s.DeleteProperty(ctx, id) },
	}
	for name, check := range checks {
		for _, id := range []string{"abc", "", "1; DROP TABLE calls"} {
			if err := check(id); !errors.Is(err, ErrNotFound) {
				t.Fatalf("%s %q: expected ErrNotFound, got %v", name, id, err)
			}
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected queries: %v", err)
	}
}

func TestPGStore_InvalidTextRepresentation(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts ct WHERE ct.id = $1")).
		WithArgs(missing).
		WillReturnError(&pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"})
	if _, err := s.GetContact(ctx, missing, rbac.All()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("read: expected ErrNotFound, got %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO inspections")).
		WillReturnError(&pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"})
	_, err := s.CreateInspection(ctx, Inspection{PropertyID: "{" + propB + "}x", InspectorID: missing, Status: InspectionScheduled, CreatedByID: "u1"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("write: expected ErrInvalidInput, got %v", err)
	}

	if _, err := s.UpdateInspection(ctx, Inspection{ID: propB, InspectorID: "not-a-user"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("update: expected ErrInvalidInput for malformed inspector, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGStore_UpdatePropertyReturnsRow(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE properties p SET")).
		WithArgs("p1", "3 Birch", "", "", "", "", "", now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "address", "city", "state", "zip_code", "property_type", "notes", "created_by_id", "created_at", "updated_at"}).
			AddRow("p1", "3 Birch", "", "", "", "", "", "u1", now.Add(-time.Hour), now))

	p, err := s.UpdateProperty(context.Background(), Property{ID: "p1", Address: "3 Birch"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.CreatedByID != "u1" || !p.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected property: %+v", p)
	}
}
