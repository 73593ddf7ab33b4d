package records

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"inspection-backoffice/internal/rbac"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory Store useful for tests and local runs.
// Lists are newest first.
type MemoryRepo struct {
	mu          sync.Mutex
	clock       func() time.Time
	properties  table[Property]
	inspections table[Inspection]
	calls       table[Call]
	contacts    table[Contact]
}

var _ Store = (*MemoryRepo)(nil)

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		clock:       time.Now,
		properties:  newTable[Property](),
		inspections: newTable[Inspection](),
		calls:       newTable[Call](),
		contacts:    newTable[Contact](),
	}
}

func (r *MemoryRepo) WithClock(fn func() time.Time) *MemoryRepo {
	r.clock = fn
	return r
}

type row[T any] struct {
	seq int
	v   T
}

type table[T any] struct {
	rows map[string]row[T]
	next int
}

func newTable[T any]() table[T] { return table[T]{rows: map[string]row[T]{}} }

func (t *table[T]) get(id string) (T, bool) {
	r, ok := t.rows[id]
	return r.v, ok
}

func (t *table[T]) put(id string, v T) {
	if r, ok := t.rows[id]; ok {
		t.rows[id] = row[T]{seq: r.seq, v: v}
		return
	}
	t.next++
	t.rows[id] = row[T]{seq: t.next, v: v}
}

func (t *table[T]) list(keep func(T) bool) []T {
	matched := make([]row[T], 0, len(t.rows))
	for _, r := range t.rows {
		if keep(r.v) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq > matched[j].seq })
	out := make([]T, len(matched))
	for i, r := range matched {
		out[i] = r.v
	}
	return out
}

// visibleLocked evaluates pred against a row's column values.
func (r *MemoryRepo) visibleLocked(pred rbac.Predicate, cols map[string]string) bool {
	switch pred.Kind {
	case rbac.MatchAll:
		return true
	case rbac.FieldEquals:
		return pred.Value != "" && cols[pred.Field] == pred.Value
	case rbac.PropertyInspectedBy:
		propertyID := cols[pred.Via]
		for _, in := range r.inspections.rows {
			if in.v.PropertyID == propertyID && in.v.InspectorID == pred.Value {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func propertyCols(p Property) map[string]string {
	return map[string]string{rbac.FieldID: p.ID}
}

func inspectionCols(in Inspection) map[string]string {
	return map[string]string{rbac.FieldID: in.ID, rbac.FieldPropertyID: in.PropertyID, rbac.FieldInspectorID: in.InspectorID}
}

func callCols(c Call) map[string]string {
	return map[string]string{rbac.FieldID: c.ID, rbac.FieldPropertyID: c.PropertyID, rbac.FieldMadeByID: c.MadeByID}
}

func contactCols(c Contact) map[string]string {
	return map[string]string{rbac.FieldID: c.ID, rbac.FieldPropertyID: c.PropertyID}
}

func matchesFilter(f Filter, propertyID string, inspectionID *string) bool {
	if f.PropertyID != "" && f.PropertyID != propertyID {
		return false
	}
	if f.InspectionID != "" && (inspectionID == nil || *inspectionID != f.InspectionID) {
		return false
	}
	return true
}

/* ===================== PROPERTIES ===================== */

func (r *MemoryRepo) ListProperties(ctx context.Context, scope rbac.Predicate) ([]Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.properties.list(func(p Property) bool { return r.visibleLocked(scope, propertyCols(p)) }), nil
}

func (r *MemoryRepo) GetProperty(ctx context.Context, id string, scope rbac.Predicate) (Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.properties.get(id)
	if !ok || !r.visibleLocked(scope, propertyCols(p)) {
		return Property{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) CreateProperty(ctx context.Context, p Property) (Property, error) {
	if strings.TrimSpace(p.Address) == "" {
		return Property{}, ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock().UTC()
	p.ID, p.CreatedAt, p.UpdatedAt = uuid.NewString(), now, now
	r.properties.put(p.ID, p)
	return p, nil
}

func (r *MemoryRepo) UpdateProperty(ctx context.Context, p Property) (Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.properties.get(p.ID)
	if !ok {
		return Property{}, ErrNotFound
	}
	p.CreatedAt, p.CreatedByID = cur.CreatedAt, cur.CreatedByID
	p.UpdatedAt = r.clock().UTC()
	r.properties.put(p.ID, p)
	return p, nil
}

// DeleteProperty cascades to the property's inspections, calls and contacts.
func (r *MemoryRepo) DeleteProperty(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.properties.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.properties.rows, id)
	for k, v := range r.inspections.rows {
		if v.v.PropertyID == id {
			delete(r.inspections.rows, k)
		}
	}
	for k, v := range r.calls.rows {
		if v.v.PropertyID == id {
			delete(r.calls.rows, k)
		}
	}
	for k, v := range r.contacts.rows {
		if v.v.PropertyID == id {
			delete(r.contacts.rows, k)
		}
	}
	return nil
}

/* ===================== INSPECTIONS ===================== */

func (r *MemoryRepo) ListInspections(ctx context.Context, f Filter, scope rbac.Predicate) ([]Inspection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inspections.list(func(in Inspection) bool {
		return matchesFilter(Filter{PropertyID: f.PropertyID}, in.PropertyID, nil) && r.visibleLocked(scope, inspectionCols(in))
	}), nil
}

func (r *MemoryRepo) GetInspection(ctx context.Context, id string, scope rbac.Predicate) (Inspection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.inspections.get(id)
	if !ok || !r.visibleLocked(scope, inspectionCols(in)) {
		return Inspection{}, ErrNotFound
	}
	return in, nil
}

func (r *MemoryRepo) CreateInspection(ctx context.Context, in Inspection) (Inspection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.properties.get(in.PropertyID); !ok || in.InspectorID == "" {
		return Inspection{}, ErrInvalidInput
	}
	now := r.clock().UTC()
	in.ID, in.CreatedAt, in.UpdatedAt = uuid.NewString(), now, now
	r.inspections.put(in.ID, in)
	return in, nil
}

func (r *MemoryRepo) UpdateInspection(ctx context.Context, in Inspection) (Inspection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.inspections.get(in.ID)
	if !ok {
		return Inspection{}, ErrNotFound
	}
	in.PropertyID, in.CreatedAt, in.CreatedByID = cur.PropertyID, cur.CreatedAt, cur.CreatedByID
	in.UpdatedAt = r.clock().UTC()
	r.inspections.put(in.ID, in)
	return in, nil
}

// DeleteInspection detaches the inspection's calls rather than deleting them.
func (r *MemoryRepo) DeleteInspection(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inspections.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.inspections.rows, id)
	for k, v := range r.calls.rows {
		if v.v.InspectionID != nil && *v.v.InspectionID == id {
			c := v.v
			c.InspectionID = nil
			r.calls.rows[k] = row[Call]{seq: v.seq, v: c}
		}
	}
	return nil
}

/* ===================== CALLS ===================== */

func (r *MemoryRepo) ListCalls(ctx context.Context, f Filter, scope rbac.Predicate) ([]Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls.list(func(c Call) bool {
		return matchesFilter(f, c.PropertyID, c.InspectionID) && r.visibleLocked(scope, callCols(c))
	}), nil
}

func (r *MemoryRepo) GetCall(ctx context.Context, id string, scope rbac.Predicate) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls.get(id)
	if !ok || !r.visibleLocked(scope, callCols(c)) {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) CreateCall(ctx context.Context, c Call) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.properties.get(c.PropertyID); !ok || c.MadeByID == "" {
		return Call{}, ErrInvalidInput
	}
	if c.InspectionID != nil {
		in, ok := r.inspections.get(*c.InspectionID)
		if !ok || in.PropertyID != c.PropertyID {
			return Call{}, ErrInvalidInput
		}
	}
	now := r.clock().UTC()
	c.ID, c.CreatedAt, c.UpdatedAt = uuid.NewString(), now, now
	if c.CalledAt.IsZero() {
		c.CalledAt = now
	}
	r.calls.put(c.ID, c)
	return c, nil
}

func (r *MemoryRepo) UpdateCall(ctx context.Context, c Call) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.calls.get(c.ID)
	if !ok {
		return Call{}, ErrNotFound
	}
	c.PropertyID, c.InspectionID, c.MadeByID, c.CreatedAt = cur.PropertyID, cur.InspectionID, cur.MadeByID, cur.CreatedAt
	c.UpdatedAt = r.clock().UTC()
	r.calls.put(c.ID, c)
	return c, nil
}

func (r *MemoryRepo) DeleteCall(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.calls.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.calls.rows, id)
	return nil
}

/* ===================== CONTACTS ===================== */

func (r *MemoryRepo) ListContacts(ctx context.Context, f Filter, scope rbac.Predicate) ([]Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contacts.list(func(c Contact) bool {
		return matchesFilter(Filter{PropertyID: f.PropertyID}, c.PropertyID, nil) && r.visibleLocked(scope, contactCols(c))
	}), nil
}

func (r *MemoryRepo) GetContact(ctx context.Context, id string, scope rbac.Predicate) (Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts.get(id)
	if !ok || !r.visibleLocked(scope, contactCols(c)) {
		return Contact{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) CreateContact(ctx context.Context, c Contact) (Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.properties.get(c.PropertyID); !ok || strings.TrimSpace(c.Name) == "" {
		return Contact{}, ErrInvalidInput
	}
	now := r.clock().UTC()
	c.ID, c.CreatedAt, c.UpdatedAt = uuid.NewString(), now, now
	r.contacts.put(c.ID, c)
	return c, nil
}

func (r *MemoryRepo) UpdateContact(ctx context.Context, c Contact) (Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.contacts.get(c.ID)
	if !ok {
		return Contact{}, ErrNotFound
	}
	c.PropertyID, c.CreatedAt, c.CreatedByID = cur.PropertyID, cur.CreatedAt, cur.CreatedByID
	c.UpdatedAt = r.clock().UTC()
	r.contacts.put(c.ID, c)
	return c, nil
}

func (r *MemoryRepo) DeleteContact(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contacts.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.contacts.rows, id)
	return nil
}
