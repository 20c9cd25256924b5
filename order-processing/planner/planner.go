// Package planner decomposes a confirmed order into its serial task chain and
// checks the chain against the order's deadline.
package planner

import (
	"github.com/shopspring/decimal"

	"kalpanik-operations/order-processing/types"
)

var (
	minutesPerHour = decimal.NewFromInt(60)

	prepareMinPerUnit = decimal.NewFromInt(6)
	prepareFloorMin   = decimal.NewFromInt(15)
	qualityCheckMin   = decimal.NewFromInt(20)
	packMinPerUnit    = decimal.RequireFromString("2.5")
	packFloorMin      = decimal.NewFromInt(10)
)

// Stage is one step of the fixed task chain
type Stage struct {
	Type     types.TaskType
	Duration func(qty int) decimal.Decimal
}

// Chain is the PREPARE -> QUALITY_CHECK -> PACK decomposition every order gets
var Chain = []Stage{
	{Type: types.TaskPrepare, Duration: prepareHours},
	{Type: types.TaskQualityCheck, Duration: qualityCheckHours},
	{Type: types.TaskPack, Duration: packHours},
}

func prepareHours(qty int) decimal.Decimal {
	return toHours(decimal.Max(prepareFloorMin, prepareMinPerUnit.Mul(decimal.NewFromInt(int64(qty)))))
}

func qualityCheckHours(int) decimal.Decimal {
	return toHours(qualityCheckMin)
}

func packHours(qty int) decimal.Decimal {
	return toHours(decimal.Max(packFloorMin, packMinPerUnit.Mul(decimal.NewFromInt(int64(qty)))))
}

// toHours converts minutes to hours rounded half away from zero to hundredths
func toHours(minutes decimal.Decimal) decimal.Decimal {
	return minutes.DivRound(minutesPerHour, 8).Round(2)
}

// IDSource hands out task ids
type IDSource func() string

// Plan returns the three tasks for order. It is a pure function of the order's
// quantity; ids come from nextID so the caller controls their allocation.
func Plan(order *types.Order, nextID IDSource) []types.Task {
	tasks := make([]types.Task, 0, len(Chain))
	prev := ""
	for i, stage := range Chain {
		task := types.Task{
			ID:             nextID(),
			OrderID:        order.ID,
			Type:           stage.Type,
			Sequence:       i + 1,
			Status:         types.TaskPending,
			EstimatedHours: stage.Duration(order.TotalQuantity).InexactFloat64(),
		}
		if prev != "" {
			task.DependsOn = []string{prev}
		}
		prev = task.ID
		tasks = append(tasks, task)
	}
	return tasks
}

// TotalHours sums task durations; the chain is serial so this is the order's lead time
func TotalHours(tasks []types.Task) float64 {
	total := decimal.Zero
	for _, t := range tasks {
		total = total.Add(decimal.NewFromFloat(t.EstimatedHours))
	}
	return total.Round(2).InexactFloat64()
}
