package store

import (
	"fmt"
	"time"

	"kalpanik-operations/order-processing/types"
)

type pendingAudit struct {
	action  string
	payload map[string]any
}

// Tx stages changes against a Store. Reads see staged changes first; nothing
// becomes visible outside the transaction until it commits.
type Tx struct {
	s      *Store
	staged map[types.Kind]map[string]types.Entity
	added  map[types.Kind][]string
	seq    map[types.Kind]int
	audit  []pendingAudit
}

func newTx(s *Store) *Tx {
	return &Tx{
		s:      s,
		staged: make(map[types.Kind]map[string]types.Entity),
		added:  make(map[types.Kind][]string),
		seq:    make(map[types.Kind]int),
	}
}

// Now returns the store clock
func (tx *Tx) Now() time.Time {
	return tx.s.now()
}

// Get returns a copy of the entity as seen by this transaction
func (tx *Tx) Get(kind types.Kind, id string) (types.Entity, bool) {
	if e, ok := tx.staged[kind][id]; ok {
		return e.Clone(), true
	}
	c, err := tx.s.collection(kind)
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
func (tx *Tx) List(kind types.Kind) []types.Entity {
	c, err := tx.s.collection(kind)
	if err != nil {
		return nil
	}
	ids := append(append([]string(nil), c.order...), tx.added[kind]...)
	out := make([]types.Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := tx.Get(kind, id); ok {
			out = append(out, e)
		}
	}
	return out
}

// Put stages an insert or replacement
func (tx *Tx) Put(kind types.Kind, e types.Entity) error {
	if e == nil || e.EntityID() == "" {
		return &types.ValidationError{Msg: fmt.Sprintf("%s entity requires an id", kind)}
	}
	if e.EntityKind() != kind {
		return &types.ValidationError{Msg: fmt.Sprintf("cannot store %s entity in %s", e.EntityKind(), kind)}
	}
	if _, err := tx.s.collection(kind); err != nil {
		return err
	}
	action := string(kind) + ".update"
	if _, exists := tx.Get(kind, e.EntityID()); !exists {
		tx.added[kind] = append(tx.added[kind], e.EntityID())
		action = string(kind) + ".create"
	}
	tx.stage(kind, e.Clone())
	tx.record(action, map[string]any{"id": e.EntityID()})
	return nil
}

// Update applies patch to a copy of the entity and stages the result
func (tx *Tx) Update(kind types.Kind, id string, patch func(types.Entity) error) (types.Entity, error) {
	return tx.mutate(kind, id, string(kind)+".update", nil, patch)
}

func (tx *Tx) mutate(kind types.Kind, id, action string, payload map[string]any, patch func(types.Entity) error) (types.Entity, error) {
	e, ok := tx.Get(kind, id)
	if !ok {
		return nil, &types.NotFoundError{Kind: kind, ID: id}
	}
	if err := patch(e); err != nil {
		return nil, err
	}
	if e.EntityID() != id {
		return nil, &types.ValidationError{Msg: fmt.Sprintf("%s %q: patch must not change the id", kind, id)}
	}
	tx.stage(kind, e)
	if payload == nil {
		payload = map[string]any{}
	}
	payload["id"] = id
	tx.record(action, payload)
	return e.Clone(), nil
}

// NextID allocates the next sequential id for kind
func (tx *Tx) NextID(kind types.Kind) string {
	n, ok := tx.seq[kind]
	if !ok {
		n = tx.s.seq[kind]
	}
	n++
	tx.seq[kind] = n
	prefix, ok := idPrefix[kind]
	if !ok {
		prefix = string(kind)
	}
	return fmt.Sprintf("%s-%04d", prefix, n)
}

// Audit stages an audit entry that is not tied to a single entity mutation
func (tx *Tx) Audit(action string, payload map[string]any) {
	tx.record(action, payload)
}

func (tx *Tx) stage(kind types.Kind, e types.Entity) {
	m, ok := tx.staged[kind]
	if !ok {
		m = make(map[string]types.Entity)
		tx.staged[kind] = m
	}
	m[e.EntityID()] = e
}

func (tx *Tx) record(action string, payload map[string]any) {
	tx.audit = append(tx.audit, pendingAudit{action: action, payload: payload})
}

func (tx *Tx) commit() {
	s := tx.s
	for kind, ids := range tx.added {
		c := s.collections[kind]
		c.order = append(c.order, ids...)
	}
	for kind, entities := range tx.staged {
		c := s.collections[kind]
		for id, e := range entities {
			c.items[id] = e
		}
	}
	for kind, n := range tx.seq {
		s.seq[kind] = n
	}
	if len(tx.audit) == 0 {
		return
	}
	now := s.now()
	for _, a := range tx.audit {
		s.audit.Append(types.AuditEntry{Timestamp: now, Action: a.action, Payload: a.payload})
	}
	s.snapshot = nil
}
