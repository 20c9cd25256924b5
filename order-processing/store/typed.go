package store

import (
	"fmt"

	"kalpanik-operations/order-processing/types"
)

func lookup[T types.Entity](e types.Entity, ok bool, kind types.Kind, id string) (T, error) {
	var zero T
	if !ok {
		return zero, &types.NotFoundError{Kind: kind, ID: id}
	}
	v, ok := e.(T)
	if !ok {
		return zero, &types.PermanentError{Msg: fmt.Sprintf("%s %q holds unexpected type %T", kind, id, e)}
	}
	return v, nil
}

func listAs[T types.Entity](in []types.Entity) []T {
	out := make([]T, 0, len(in))
	for _, e := range in {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func patchAs[T types.Entity](kind types.Kind, patch func(T) error) func(types.Entity) error {
	return func(e types.Entity) error {
		v, ok := e.(T)
		if !ok {
			return &types.PermanentError{Msg: fmt.Sprintf("%s %q holds unexpected type %T", kind, e.EntityID(), e)}
		}
		return patch(v)
	}
}

func (s *Store) Intent(id string) (*types.OrderIntent, error) {
	e, ok := s.Get(types.KindIntent, id)
	return lookup[*types.OrderIntent](e, ok, types.KindIntent, id)
}

func (s *Store) Order(id string) (*types.Order, error) {
	e, ok := s.Get(types.KindOrder, id)
	return lookup[*types.Order](e, ok, types.KindOrder, id)
}

func (s *Store) Item(productID string) (*types.InventoryItem, error) {
	e, ok := s.Get(types.KindInventory, productID)
	return lookup[*types.InventoryItem](e, ok, types.KindInventory, productID)
}

func (s *Store) Staff(id string) (*types.StaffMember, error) {
	e, ok := s.Get(types.KindStaff, id)
	return lookup[*types.StaffMember](e, ok, types.KindStaff, id)
}

func (s *Store) Task(id string) (*types.Task, error) {
	e, ok := s.Get(types.KindTask, id)
	return lookup[*types.Task](e, ok, types.KindTask, id)
}

func (s *Store) Intents() []*types.OrderIntent {
	return listAs[*types.OrderIntent](s.List(types.KindIntent))
}

func (s *Store) Orders() []*types.Order {
	return listAs[*types.Order](s.List(types.KindOrder))
}

func (s *Store) Items() []*types.InventoryItem {
	return listAs[*types.InventoryItem](s.List(types.KindInventory))
}

func (s *Store) StaffMembers() []*types.StaffMember {
	return listAs[*types.StaffMember](s.List(types.KindStaff))
}

func (s *Store) Tasks() []*types.Task {
	return listAs[*types.Task](s.List(types.KindTask))
}

// TasksFor returns the tasks of an order in the order listed on the order
func (s *Store) TasksFor(orderID string) ([]*types.Task, error) {
	var tasks []*types.Task
	err := s.RunInTransaction(func(tx *Tx) error {
		var err error
		tasks, err = tx.TasksFor(orderID)
		return err
	})
	return tasks, err
}

func (tx *Tx) Intent(id string) (*types.OrderIntent, error) {
	e, ok := tx.Get(types.KindIntent, id)
	return lookup[*types.OrderIntent](e, ok, types.KindIntent, id)
}

func (tx *Tx) Order(id string) (*types.Order, error) {
	e, ok := tx.Get(types.KindOrder, id)
	return lookup[*types.Order](e, ok, types.KindOrder, id)
}

func (tx *Tx) Item(productID string) (*types.InventoryItem, error) {
	e, ok := tx.Get(types.KindInventory, productID)
	return lookup[*types.InventoryItem](e, ok, types.KindInventory, productID)
}

func (tx *Tx) Staff(id string) (*types.StaffMember, error) {
	e, ok := tx.Get(types.KindStaff, id)
	return lookup[*types.StaffMember](e, ok, types.KindStaff, id)
}

func (tx *Tx) Task(id string) (*types.Task, error) {
	e, ok := tx.Get(types.KindTask, id)
	return lookup[*types.Task](e, ok, types.KindTask, id)
}

func (tx *Tx) StaffMembers() []*types.StaffMember {
	return listAs[*types.StaffMember](tx.List(types.KindStaff))
}

func (tx *Tx) TasksFor(orderID string) ([]*types.Task, error) {
	order, err := tx.Order(orderID)
	if err != nil {
		return nil, err
	}
	tasks := make([]*types.Task, 0, len(order.TaskIDs))
	for _, id := range order.TaskIDs {
		t, err := tx.Task(id)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (tx *Tx) UpdateIntent(id string, patch func(*types.OrderIntent) error) (*types.OrderIntent, error) {
	e, err := tx.Update(types.KindIntent, id, patchAs(types.KindIntent, patch))
	if err != nil {
		return nil, err
	}
	return e.(*types.OrderIntent), nil
}

func (tx *Tx) UpdateOrder(id string, patch func(*types.Order) error) (*types.Order, error) {
	e, err := tx.Update(types.KindOrder, id, patchAs(types.KindOrder, patch))
	if err != nil {
		return nil, err
	}
	return e.(*types.Order), nil
}

func (tx *Tx) UpdateStaff(id string, patch func(*types.StaffMember) error) (*types.StaffMember, error) {
	e, err := tx.Update(types.KindStaff, id, patchAs(types.KindStaff, patch))
	if err != nil {
		return nil, err
	}
	return e.(*types.StaffMember), nil
}

func (tx *Tx) UpdateTask(id string, patch func(*types.Task) error) (*types.Task, error) {
	e, err := tx.Update(types.KindTask, id, patchAs(types.KindTask, patch))
	if err != nil {
		return nil, err
	}
	return e.(*types.Task), nil
}
