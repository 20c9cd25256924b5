package store

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kalpanik-operations/order-processing/types"
)

// UtilizationAlertPercent is the capacity utilisation above which a CRITICAL alert is raised
const UtilizationAlertPercent = 90.0

// Snapshot returns the cached system snapshot. It is rebuilt when a commit
// has happened since it was last built, or once the clock passes the next
// deadline of an order with open tasks.
func (s *Store) Snapshot() types.SystemSnapshot {
	s.mu.RLock()
	cached, expires := s.snapshot, s.snapExpiry
	s.mu.RUnlock()
	if cached != nil && (expires.IsZero() || s.now().Before(expires)) {
		return cloneSnapshot(cached)
	}
	return s.ComputeSnapshot()
}

// ComputeSnapshot rebuilds the snapshot from the current collections
func (s *Store) ComputeSnapshot() types.SystemSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, expires := s.computeLocked()
	s.snapshot = &snap
	s.snapExpiry = expires
	return cloneSnapshot(&snap)
}

// computeLocked also returns the earliest future deadline among open tasks,
// zero when there is none.
func (s *Store) computeLocked() (types.SystemSnapshot, time.Time) {
	var expires time.Time
	now := s.now()
	snap := types.SystemSnapshot{
		GeneratedAt:    now,
		OrdersByStatus: make(map[types.OrderStatus]int),
		Alerts:         []types.Alert{},
	}

	orders := listAs[*types.Order](s.listLocked(types.KindOrder))
	deadlines := make(map[string]*types.Order, len(orders))
	for _, o := range orders {
		snap.TotalOrders++
		snap.OrdersByStatus[o.Status]++
		deadlines[o.ID] = o
	}

	for _, item := range listAs[*types.InventoryItem](s.listLocked(types.KindInventory)) {
		snap.InventoryItems++
		available := item.Available()
		switch {
		case available <= 0:
			snap.OutOfStockItems++
			snap.Alerts = append(snap.Alerts, types.Alert{
				Severity: types.SeverityCritical,
				Kind:     "out_of_stock",
				EntityID: item.ProductID,
				Message:  fmt.Sprintf("%s is out of stock", item.Name),
			})
		case available <= item.ReorderThreshold:
			snap.LowStockItems++
			snap.Alerts = append(snap.Alerts, types.Alert{
				Severity: types.SeverityMedium,
				Kind:     "low_stock",
				EntityID: item.ProductID,
				Message:  fmt.Sprintf("%s is low on stock: %d available, reorder at %d", item.Name, available, item.ReorderThreshold),
			})
		}
	}

	workload := decimal.Zero
	capacity := decimal.Zero
	for _, m := range listAs[*types.StaffMember](s.listLocked(types.KindStaff)) {
		snap.StaffTotal++
		if m.Status == types.StaffOnline {
			snap.StaffOnline++
			if m.CurrentWorkload < m.MaxCapacity {
				snap.StaffAvailable++
			}
		}
		if m.MaxCapacity > 0 && m.CurrentWorkload >= m.MaxCapacity {
			snap.StaffOverloaded++
		}
		if m.Status != types.StaffOffline {
			workload = workload.Add(decimal.NewFromFloat(m.CurrentWorkload))
			capacity = capacity.Add(decimal.NewFromFloat(m.MaxCapacity))
		}
	}
	if capacity.IsPositive() {
		snap.CapacityUtilization = workload.Div(capacity).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
	}

	for _, t := range listAs[*types.Task](s.listLocked(types.KindTask)) {
		if t.Status == types.TaskPending || t.Status == types.TaskAssigned {
			snap.TaskBacklog++
		}
		if t.Status == types.TaskCompleted || t.Status == types.TaskFailed {
			continue
		}
		o, ok := deadlines[t.OrderID]
		if !ok || o.DeadlineAt == nil {
			continue
		}
		switch {
		case now.After(*o.DeadlineAt):
			snap.OverdueTasks++
		case expires.IsZero() || o.DeadlineAt.Before(expires):
			expires = *o.DeadlineAt
		}
	}
	if snap.OverdueTasks > 0 {
		snap.Alerts = append(snap.Alerts, types.Alert{
			Severity: types.SeverityHigh,
			Kind:     "overdue_tasks",
			Message:  fmt.Sprintf("%d open tasks are past their order deadline", snap.OverdueTasks),
		})
	}
	if snap.CapacityUtilization > UtilizationAlertPercent {
		snap.Alerts = append(snap.Alerts, types.Alert{
			Severity: types.SeverityCritical,
			Kind:     "capacity_utilization",
			Message:  fmt.Sprintf("staff capacity utilisation at %.1f%%", snap.CapacityUtilization),
		})
	}
	return snap, expires
}

func (s *Store) listLocked(kind types.Kind) []types.Entity {
	c := s.collections[kind]
	out := make([]types.Entity, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

func cloneSnapshot(in *types.SystemSnapshot) types.SystemSnapshot {
	out := *in
	out.OrdersByStatus = make(map[types.OrderStatus]int, len(in.OrdersByStatus))
	for k, v := range in.OrdersByStatus {
		out.OrdersByStatus[k] = v
	}
	out.Alerts = append([]types.Alert{}, in.Alerts...)
	return out
}
