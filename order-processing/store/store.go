// Package store holds the in-memory model of intents, orders, inventory, staff
// and tasks. All mutations go through transactions guarded by a single writer
// lock so reservation and capacity checks commit atomically with their updates.
package store

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"kalpanik-operations/order-processing/types"
)

// DefaultAuditCapacity bounds the audit ring buffer
const DefaultAuditCapacity = 1000

var kinds = []types.Kind{
	types.KindIntent,
	types.KindOrder,
	types.KindInventory,
	types.KindStaff,
	types.KindTask,
}

var idPrefix = map[types.Kind]string{
	types.KindIntent: "INT",
	types.KindOrder:  "ORD",
	types.KindTask:   "TASK",
}

type collection struct {
	items map[string]types.Entity
	order []string
}

func newCollection() *collection {
	return &collection{items: make(map[string]types.Entity)}
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces the wall clock used for audit timestamps and snapshots
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAuditCapacity sets the size of the audit ring buffer
func WithAuditCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.auditCap = n
		}
	}
}

// Store is the single owner of every entity
type Store struct {
	mu          sync.RWMutex
	collections map[types.Kind]*collection
	seq         map[types.Kind]int
	audit       *auditLog
	auditCap    int
	now         func() time.Time
	snapshot    *types.SystemSnapshot
	snapExpiry  time.Time
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		now:      time.Now,
		auditCap: DefaultAuditCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resetLocked()
	return s
}

// Reset drops every entity, the audit log and the ID sequences
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Store) resetLocked() {
	s.collections = make(map[types.Kind]*collection, len(kinds))
	for _, k := range kinds {
		s.collections[k] = newCollection()
	}
	s.seq = make(map[types.Kind]int)
	s.audit = newAuditLog(s.auditCap)
	s.snapshot = nil
}

// Now returns the store clock
func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) collection(kind types.Kind) (*collection, error) {
	c, ok := s.collections[kind]
	if !ok {
		return nil, &types.ValidationError{Msg: fmt.Sprintf("unknown entity kind %q", kind)}
	}
	return c, nil
}

// Get returns a copy of the entity, or false when it does not exist
func (s *Store) Get(kind types.Kind, id string) (types.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.collection(kind)
	if err != nil {
		return nil, false
	}
	e, ok := c.items[id]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// List returns copies of every entity of kind in insertion order
func (s *Store) List(kind types.Kind) []types.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.collection(kind)
	if err != nil {
		return nil
	}
	out := make([]types.Entity, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id].Clone())
	}
	return out
}

// QueryByField returns entities whose field equals value. The field is matched
// against the Go field name (case-insensitive) or its JSON tag.
func (s *Store) QueryByField(kind types.Kind, field string, value any) []types.Entity {
	var out []types.Entity
	for _, e := range s.List(kind) {
		if fieldMatches(e, field, value) {
			out = append(out, e)
		}
	}
	return out
}

// Put inserts or replaces an entity
func (s *Store) Put(kind types.Kind, e types.Entity) error {
	return s.RunInTransaction(func(tx *Tx) error {
		return tx.Put(kind, e)
	})
}

// Update applies patch to a copy of the entity and commits it
func (s *Store) Update(kind types.Kind, id string, patch func(types.Entity) error) (types.Entity, error) {
	var updated types.Entity
	err := s.RunInTransaction(func(tx *Tx) error {
		e, err := tx.Update(kind, id, patch)
		updated = e
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// NextID allocates the next sequential id for kind
func (s *Store) NextID(kind types.Kind) string {
	var id string
	_ = s.RunInTransaction(func(tx *Tx) error {
		id = tx.NextID(kind)
		return nil
	})
	return id
}

// RunInTransaction runs fn under the writer lock. Changes staged through tx are
// committed only when fn returns nil.
func (s *Store) RunInTransaction(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := newTx(s)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// AuditLog returns the retained audit entries, oldest first
func (s *Store) AuditLog() []types.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.audit.Entries()
}

func fieldMatches(e types.Entity, field string, value any) bool {
	v := reflect.ValueOf(e)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := strings.Split(f.Tag.Get("json"), ",")[0]
		if !strings.EqualFold(f.Name, field) && tag != field {
			continue
		}
		fv := v.Field(i)
		if fv.Kind() == reflect.Ptr {
			if fv.IsNil() {
				return value == nil
			}
			fv = fv.Elem()
		}
		return fmt.Sprint(fv.Interface()) == fmt.Sprint(value)
	}
	return false
}
