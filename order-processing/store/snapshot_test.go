package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kalpanik-operations/order-processing/types"
)

func alertKinds(alerts []types.Alert) map[string]types.Severity {
	out := make(map[string]types.Severity, len(alerts))
	for _, a := range alerts {
		out[a.Kind] = a.Severity
	}
	return out
}

func TestSnapshotOfSeed(t *testing.T) {
	s := newSeededStore(t)
	snap := s.Snapshot()

	assert.Equal(t, fixedNow, snap.GeneratedAt)
	assert.Equal(t, 4, snap.InventoryItems)
	assert.Equal(t, 1, snap.LowStockItems)
	assert.Equal(t, 0, snap.OutOfStockItems)
	assert.Equal(t, 4, snap.StaffTotal)
	assert.Equal(t, 2, snap.StaffOnline)
	assert.Equal(t, 2, snap.StaffAvailable)
	assert.Equal(t, 0, snap.StaffOverloaded)
	assert.Equal(t, 43.2, snap.CapacityUtilization)
	assert.Equal(t, map[string]types.Severity{"low_stock": types.SeverityMedium}, alertKinds(snap.Alerts))
}

func TestSnapshotAlerts(t *testing.T) {
	s := newSeededStore(t)
	_, err := s.Reserve("PRD-002", 50)
	require.NoError(t, err)

	deadline := fixedNow.Add(-time.Hour)
	require.NoError(t, s.Put(types.KindOrder, &types.Order{ID: "ORD-0001", Status: types.OrderAssigned, DeadlineAt: &deadline, TaskIDs: []string{"TASK-0001"}}))
	require.NoError(t, s.Put(types.KindTask, &types.Task{ID: "TASK-0001", OrderID: "ORD-0001", Status: types.TaskAssigned}))
	for _, id := range []string{"STF-001", "STF-002", "STF-004"} {
		_, err := s.Update(types.KindStaff, id, func(e types.Entity) error {
			m := e.(*types.StaffMember)
			m.CurrentWorkload = m.MaxCapacity
			return nil
		})
		require.NoError(t, err)
	}

	snap := s.Snapshot()
	kinds := alertKinds(snap.Alerts)
	assert.Equal(t, types.SeverityCritical, kinds["out_of_stock"])
	assert.Equal(t, types.SeverityMedium, kinds["low_stock"])
	assert.Equal(t, types.SeverityHigh, kinds["overdue_tasks"])
	assert.Equal(t, types.SeverityCritical, kinds["capacity_utilization"])
	assert.Equal(t, 1, snap.OutOfStockItems)
	assert.Equal(t, 1, snap.OverdueTasks)
	assert.Equal(t, 1, snap.TaskBacklog)
	assert.Equal(t, 3, snap.StaffOverloaded)
	assert.Equal(t, 0, snap.StaffAvailable)
	assert.Equal(t, 100.0, snap.CapacityUtilization)
	assert.Equal(t, 1, snap.OrdersByStatus[types.OrderAssigned])
}

func TestSnapshotIsCachedUntilCommit(t *testing.T) {
	now := fixedNow
	s := New(WithClock(func() time.Time { return now }))
	require.NoError(t, s.Seed(DefaultSeed()))

	first := s.Snapshot()
	now = now.Add(time.Minute)
	assert.Equal(t, first.GeneratedAt, s.Snapshot().GeneratedAt)

	_, err := s.Reserve("PRD-001", 1)
	require.NoError(t, err)
	assert.Equal(t, now, s.Snapshot().GeneratedAt)

	now = now.Add(time.Minute)
	assert.Equal(t, now, s.ComputeSnapshot().GeneratedAt)
}

func TestSnapshotExpiresAtNextDeadline(t *testing.T) {
	now := fixedNow
	s := New(WithClock(func() time.Time { return now }))
	require.NoError(t, s.Seed(DefaultSeed()))

	deadline := fixedNow.Add(time.Hour)
	require.NoError(t, s.Put(types.KindOrder, &types.Order{ID: "ORD-0001", Status: types.OrderAssigned, DeadlineAt: &deadline, TaskIDs: []string{"TASK-0001"}}))
	require.NoError(t, s.Put(types.KindTask, &types.Task{ID: "TASK-0001", OrderID: "ORD-0001", Status: types.TaskAssigned}))

	before := s.Snapshot()
	assert.Equal(t, 0, before.OverdueTasks)

	// Still cached while the deadline is ahead
	now = fixedNow.Add(30 * time.Minute)
	assert.Equal(t, before.GeneratedAt, s.Snapshot().GeneratedAt)

	now = fixedNow.Add(2 * time.Hour)
	after := s.Snapshot()
	assert.Equal(t, now, after.GeneratedAt)
	assert.Equal(t, 1, after.OverdueTasks)
	assert.Equal(t, types.SeverityHigh, alertKinds(after.Alerts)["overdue_tasks"])
}
