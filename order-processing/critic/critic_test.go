package critic

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"kalpanik-operations/order-processing/planner"
	"kalpanik-operations/order-processing/types"
)

func plannedOrder(staffID string) (*types.Order, []types.Task) {
	order := &types.Order{ID: "ORD-0001", TotalQuantity: 15, InventoryReserved: true, AssignedStaffID: staffID}
	n := 0
	tasks := planner.Plan(order, func() string {
		n++
		return fmt.Sprintf("TASK-%04d", n)
	})
	return order, tasks
}

var roster = []types.StaffMember{
	{ID: "STF-001", Status: types.StaffOnline, CurrentWorkload: 3.46, MaxCapacity: 8},
	{ID: "STF-009", Status: types.StaffOnline, CurrentWorkload: 8.5, MaxCapacity: 8},
	{ID: "STF-010", Status: types.StaffOnline, CurrentWorkload: 8.0000001, MaxCapacity: 8},
}

func TestValidateApprovesConsistentPlan(t *testing.T) {
	order, tasks := plannedOrder("STF-001")
	v := Validate(order, roster, tasks)
	assert.True(t, v.Approved)
	assert.Empty(t, v.Issues)
}

func TestValidateToleratesFloatNoise(t *testing.T) {
	order, tasks := plannedOrder("STF-010")
	assert.True(t, Validate(order, roster, tasks).Approved)
}

func TestValidateUnassignedOrderPasses(t *testing.T) {
	order, tasks := plannedOrder("")
	assert.True(t, Validate(order, roster, tasks).Approved)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Order, []types.Task) []types.Task
		issue  string
	}{
		{
			name: "not reserved",
			mutate: func(o *types.Order, ts []types.Task) []types.Task {
				o.InventoryReserved = false
				return ts
			},
			issue: "no inventory reserved",
		},
		{
			name: "unknown staff",
			mutate: func(o *types.Order, ts []types.Task) []types.Task {
				o.AssignedStaffID = "STF-404"
				return ts
			},
			issue: "STF-404 does not exist",
		},
		{
			name: "over capacity",
			mutate: func(o *types.Order, ts []types.Task) []types.Task {
				o.AssignedStaffID = "STF-009"
				return ts
			},
			issue: "over capacity",
		},
		{
			name: "missing task",
			mutate: func(o *types.Order, ts []types.Task) []types.Task {
				return ts[:2]
			},
			issue: "expected 3 tasks, found 2",
		},
		{
			name: "broken chain",
			mutate: func(o *types.Order, ts []types.Task) []types.Task {
				ts[2].DependsOn = []string{ts[0].ID}
				return ts
			},
			issue: "TASK-0003 should depend on TASK-0002",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, tasks := plannedOrder("STF-001")
			tasks = tt.mutate(order, tasks)
			v := Validate(order, roster, tasks)
			assert.False(t, v.Approved)
			assert.Len(t, v.Issues, 1)
			assert.Contains(t, v.Reason, tt.issue)
		})
	}
}
