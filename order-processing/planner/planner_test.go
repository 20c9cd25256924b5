package planner

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kalpanik-operations/order-processing/types"
)

func sequentialIDs() IDSource {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("TASK-%04d", n)
	}
}

func TestPlanQuantityFifteen(t *testing.T) {
	order := &types.Order{ID: "ORD-0001", TotalQuantity: 15, Priority: types.PriorityHigh}
	tasks := Plan(order, sequentialIDs())

	require.Len(t, tasks, 3)
	assert.Equal(t, types.TaskPrepare, tasks[0].Type)
	assert.Equal(t, types.TaskQualityCheck, tasks[1].Type)
	assert.Equal(t, types.TaskPack, tasks[2].Type)

	assert.Equal(t, 1.5, tasks[0].EstimatedHours)
	assert.Equal(t, 0.33, tasks[1].EstimatedHours)
	assert.Equal(t, 0.63, tasks[2].EstimatedHours)
	assert.Equal(t, 2.46, TotalHours(tasks))
}

func TestPlanDependenciesAndInitialState(t *testing.T) {
	tasks := Plan(&types.Order{ID: "ORD-0007", TotalQuantity: 4}, sequentialIDs())

	assert.Empty(t, tasks[0].DependsOn)
	assert.Equal(t, []string{tasks[0].ID}, tasks[1].DependsOn)
	assert.Equal(t, []string{tasks[1].ID}, tasks[2].DependsOn)
	for i, task := range tasks {
		assert.Equal(t, "ORD-0007", task.OrderID)
		assert.Equal(t, types.TaskPending, task.Status)
		assert.Empty(t, task.AssignedStaffID)
		assert.Equal(t, i+1, task.Sequence)
	}
}

func TestPlanDurationFloors(t *testing.T) {
	tests := []struct {
		qty                  int
		prepare, check, pack float64
	}{
		{qty: 1, prepare: 0.25, check: 0.33, pack: 0.17},
		{qty: 2, prepare: 0.25, check: 0.33, pack: 0.17},
		{qty: 3, prepare: 0.3, check: 0.33, pack: 0.17},
		{qty: 5, prepare: 0.5, check: 0.33, pack: 0.21},
		{qty: 100, prepare: 10, check: 0.33, pack: 4.17},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("qty=%d", tt.qty), func(t *testing.T) {
			tasks := Plan(&types.Order{ID: "O", TotalQuantity: tt.qty}, sequentialIDs())
			assert.Equal(t, tt.prepare, tasks[0].EstimatedHours)
			assert.Equal(t, tt.check, tasks[1].EstimatedHours)
			assert.Equal(t, tt.pack, tasks[2].EstimatedHours)
		})
	}
}

func TestPlanIsPure(t *testing.T) {
	order := &types.Order{ID: "ORD-0001", TotalQuantity: 15}
	assert.Equal(t, Plan(order, sequentialIDs()), Plan(order, sequentialIDs()))
}

// 2026-03-02 is a Monday
var monday9am = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func day(d, hour, minute int) time.Time {
	return time.Date(2026, 3, d, hour, minute, 0, 0, time.UTC)
}

func TestParseDeadline(t *testing.T) {
	tests := []struct {
		expr string
		want time.Time
	}{
		{expr: "tomorrow", want: day(3, 17, 0)},
		{expr: "by tomorrow 3pm", want: day(3, 15, 0)},
		{expr: "Tomorrow at 10:30am", want: day(3, 10, 30)},
		{expr: "tomorrow morning", want: day(3, 9, 0)},
		{expr: "today", want: day(2, 17, 0)},
		{expr: "due today 4 pm", want: day(2, 16, 0)},
		{expr: "tonight", want: day(2, 21, 0)},
		{expr: "3pm", want: day(2, 15, 0)},
		{expr: "before 8am", want: day(3, 8, 0)},
		{expr: "by 9:00", want: day(3, 9, 0)},
		{expr: "by 17", want: day(2, 17, 0)},
		{expr: "noon", want: day(2, 12, 0)},
		{expr: "due friday", want: day(6, 17, 0)},
		{expr: "monday 10am", want: day(2, 10, 0)},
		{expr: "next monday 8am", want: day(9, 8, 0)},
		{expr: "in 3 hours", want: day(2, 12, 0)},
		{expr: "in 2 days", want: day(4, 9, 0)},
		{expr: "2026-03-04T12:30:00Z", want: day(4, 12, 30)},
		{expr: "2026-03-04 08:15", want: day(4, 8, 15)},
		{expr: "by 2026-03-04", want: day(4, 17, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			d := ParseDeadline(tt.expr, monday9am)
			require.Equal(t, DeadlineResolved, d.State)
			assert.True(t, tt.want.Equal(d.At), "got %s want %s", d.At, tt.want)
			assert.Equal(t, tt.expr, d.Raw)
		})
	}
}

func TestParseDeadlineUnsetAndUnresolved(t *testing.T) {
	assert.Equal(t, DeadlineNotSet, ParseDeadline("   ", monday9am).State)

	for _, expr := range []string{"whenever you can", "25:00", "13pm", "by someday", "tomorrow-ish"} {
		d := ParseDeadline(expr, monday9am)
		assert.Equal(t, DeadlineUnresolved, d.State, expr)
		assert.True(t, d.At.IsZero(), expr)
	}
}

func TestCheckFeasibility(t *testing.T) {
	eta := monday9am.Add(2*time.Hour + 27*time.Minute + 36*time.Second)

	none := CheckFeasibility(ParseDeadline("", monday9am), 2.46, monday9am)
	assert.Nil(t, none.Feasible)
	assert.Equal(t, eta, none.EstimatedCompletion)

	unresolved := CheckFeasibility(ParseDeadline("soonish", monday9am), 2.46, monday9am)
	assert.Nil(t, unresolved.Feasible)
	assert.Equal(t, DeadlineUnresolved, unresolved.Deadline.State)

	ok := CheckFeasibility(ParseDeadline("tomorrow", monday9am), 2.46, monday9am)
	require.NotNil(t, ok.Feasible)
	assert.True(t, *ok.Feasible)

	late := CheckFeasibility(ParseDeadline("in 2 hours", monday9am), 2.46, monday9am)
	require.NotNil(t, late.Feasible)
	assert.False(t, *late.Feasible)
	assert.Equal(t, -0.46, late.SlackHours)
}
