package assignment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kalpanik-operations/order-processing/store"
	"kalpanik-operations/order-processing/types"
)

type CoordinatorTestSuite struct {
	suite.Suite
	store *store.Store
	coord *Coordinator
}

func (s *CoordinatorTestSuite) SetupTest() {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.store = store.New(store.WithClock(func() time.Time { return now }))
	s.Require().NoError(s.store.Seed(store.DefaultSeed()))
	s.coord = New(s.store)
}

// placeOrder reserves stock and stores a READY_TO_FULFILL order, then plans it
func (s *CoordinatorTestSuite) placeOrder(productID string, qty int) (string, []types.Task) {
	var orderID string
	err := s.store.RunInTransaction(func(tx *store.Tx) error {
		if _, err := tx.Reserve(productID, qty); err != nil {
			return err
		}
		orderID = tx.NextID(types.KindOrder)
		return tx.Put(types.KindOrder, &types.Order{
			ID:                orderID,
			Items:             []types.LineItem{{ProductID: productID, Quantity: qty, Unit: "pcs"}},
			TotalQuantity:     qty,
			Priority:          types.PriorityMedium,
			Status:            types.OrderReadyToFulfill,
			InventoryReserved: true,
		})
	})
	s.Require().NoError(err)
	tasks, err := s.coord.AttachPlan(orderID)
	s.Require().NoError(err)
	return orderID, tasks
}

func (s *CoordinatorTestSuite) TestAttachPlan() {
	orderID, tasks := s.placeOrder("PRD-001", 15)
	s.Require().Len(tasks, 3)
	s.Equal("TASK-0001", tasks[0].ID)

	order, err := s.store.Order(orderID)
	s.Require().NoError(err)
	s.Equal(types.OrderTasksPlanned, order.Status)
	s.Equal([]string{"TASK-0001", "TASK-0002", "TASK-0003"}, order.TaskIDs)
	s.Equal(2.46, order.EstimatedHours)

	_, err = s.coord.AttachPlan(orderID)
	var terr *types.TransitionError
	s.ErrorAs(err, &terr)
}

func (s *CoordinatorTestSuite) TestAssignWithinCapacity() {
	orderID, _ := s.placeOrder("PRD-001", 15)

	a, err := s.coord.Assign(orderID, "STF-001")
	s.Require().NoError(err)
	s.Equal(2.46, a.Hours)
	s.Equal(3.46, a.Workload)

	staff, err := s.store.Staff("STF-001")
	s.Require().NoError(err)
	s.Equal(3.46, staff.CurrentWorkload)
	s.Equal(a.TaskIDs, staff.AssignedTaskIDs)

	tasks, err := s.store.TasksFor(orderID)
	s.Require().NoError(err)
	for _, task := range tasks {
		s.Equal(types.TaskAssigned, task.Status)
		s.Equal("STF-001", task.AssignedStaffID)
	}
	order, err := s.store.Order(orderID)
	s.Require().NoError(err)
	s.Equal(types.OrderAssigned, order.Status)
	s.Equal("STF-001", order.AssignedStaffID)
}

func (s *CoordinatorTestSuite) TestAssignOverCapacityChangesNothing() {
	orderID, _ := s.placeOrder("PRD-001", 15)
	before := len(s.store.AuditLog())

	_, err := s.coord.Assign(orderID, "STF-002")
	var cerr *types.CapacityExceededError
	s.Require().ErrorAs(err, &cerr)
	s.Equal("STF-002", cerr.StaffID)
	s.Equal(2.46, cerr.Required)

	staff, _ := s.store.Staff("STF-002")
	s.Equal(6.5, staff.CurrentWorkload)
	s.Empty(staff.AssignedTaskIDs)
	tasks, _ := s.store.TasksFor(orderID)
	for _, task := range tasks {
		s.Equal(types.TaskPending, task.Status)
	}
	order, _ := s.store.Order(orderID)
	s.Equal(types.OrderTasksPlanned, order.Status)
	s.Len(s.store.AuditLog(), before)
}

func (s *CoordinatorTestSuite) TestAssignUnknownStaff() {
	orderID, _ := s.placeOrder("PRD-001", 2)
	_, err := s.coord.Assign(orderID, "STF-404")
	var nf *types.NotFoundError
	s.Require().ErrorAs(err, &nf)
	s.Equal(types.KindStaff, nf.Kind)
}

func (s *CoordinatorTestSuite) TestUnassignRestoresWorkload() {
	orderID, _ := s.placeOrder("PRD-001", 15)
	_, err := s.coord.Assign(orderID, "STF-001")
	s.Require().NoError(err)

	a, err := s.coord.Unassign(orderID)
	s.Require().NoError(err)
	s.Equal("STF-001", a.StaffID)
	s.Equal(2.46, a.Hours)
	s.Equal(1.0, a.Workload)

	staff, _ := s.store.Staff("STF-001")
	s.Equal(1.0, staff.CurrentWorkload)
	s.Empty(staff.AssignedTaskIDs)
	order, _ := s.store.Order(orderID)
	s.Equal(types.OrderTasksPlanned, order.Status)
	s.Empty(order.AssignedStaffID)

	_, err = s.coord.Assign(orderID, "STF-001")
	s.NoError(err)
}

func (s *CoordinatorTestSuite) TestTasksStartOnlyAfterDependencies() {
	orderID, tasks := s.placeOrder("PRD-001", 15)
	_, err := s.coord.Assign(orderID, "STF-001")
	s.Require().NoError(err)

	_, err = s.coord.StartTask(tasks[1].ID)
	var perr *types.PermanentError
	s.Require().ErrorAs(err, &perr)
	s.Contains(perr.Error(), tasks[0].ID)

	up, err := s.coord.StartTask(tasks[0].ID)
	s.Require().NoError(err)
	s.True(up.OrderStarted)
	s.Equal(types.OrderInProgress, up.Order.Status)

	up, err = s.coord.CompleteTask(tasks[0].ID)
	s.Require().NoError(err)
	s.Equal(1.5, up.FreedHours)
	s.False(up.OrderCompleted)

	_, err = s.coord.StartTask(tasks[1].ID)
	s.NoError(err)
	_, err = s.coord.StartTask(tasks[2].ID)
	s.Error(err)
}

func (s *CoordinatorTestSuite) TestCompletingLastTaskShipsStock() {
	orderID, tasks := s.placeOrder("PRD-001", 15)
	_, err := s.coord.Assign(orderID, "STF-001")
	s.Require().NoError(err)

	var last TaskUpdate
	for _, task := range tasks {
		_, err := s.coord.StartTask(task.ID)
		s.Require().NoError(err)
		last, err = s.coord.CompleteTask(task.ID)
		s.Require().NoError(err)
	}
	s.True(last.OrderCompleted)
	s.Equal(types.OrderCompleted, last.Order.Status)
	s.False(last.Order.InventoryReserved)

	item, _ := s.store.Item("PRD-001")
	s.Equal(185, item.TotalStock)
	s.Equal(0, item.ReservedStock)
	staff, _ := s.store.Staff("STF-001")
	s.Equal(1.0, staff.CurrentWorkload)
	s.Empty(staff.AssignedTaskIDs)

	_, err = s.coord.CancelOrder(orderID, "too late")
	var terr *types.TransitionError
	s.ErrorAs(err, &terr)
}

func (s *CoordinatorTestSuite) TestFailTaskCancelsOrder() {
	orderID, tasks := s.placeOrder("PRD-001", 15)
	_, err := s.coord.Assign(orderID, "STF-001")
	s.Require().NoError(err)
	_, err = s.coord.StartTask(tasks[0].ID)
	s.Require().NoError(err)

	up, err := s.coord.FailTask(tasks[0].ID, "machine down")
	s.Require().NoError(err)
	s.Equal(types.TaskFailed, up.Task.Status)
	s.Equal(types.OrderCancelled, up.Order.Status)
	s.Equal(2.46, up.FreedHours)
	s.Require().NotNil(up.Cancellation)
	s.Equal([]string{tasks[0].ID, tasks[1].ID, tasks[2].ID}, up.Cancellation.FailedTaskIDs)

	// Nothing downstream keeps the worker's hours
	staff, _ := s.store.Staff("STF-001")
	s.Equal(1.0, staff.CurrentWorkload)
	s.Empty(staff.AssignedTaskIDs)
	for _, task := range tasks[1:] {
		stored, err := s.store.Task(task.ID)
		s.Require().NoError(err)
		s.Equal(types.TaskFailed, stored.Status)
	}
	item, _ := s.store.Item("PRD-001")
	s.Equal(0, item.ReservedStock)

	_, err = s.coord.StartTask(tasks[1].ID)
	var terr *types.TransitionError
	s.ErrorAs(err, &terr)
	_, err = s.coord.FailTask(tasks[0].ID, "again")
	s.Error(err)
}

func (s *CoordinatorTestSuite) TestFailUnassignedTask() {
	orderID, tasks := s.placeOrder("PRD-003", 5)

	up, err := s.coord.FailTask(tasks[2].ID, "label printer broken")
	s.Require().NoError(err)
	s.Zero(up.FreedHours)
	s.Equal(types.OrderCancelled, up.Order.Status)

	order, err := s.store.Order(orderID)
	s.Require().NoError(err)
	s.False(order.InventoryReserved)
	item, _ := s.store.Item("PRD-003")
	s.Equal(0, item.ReservedStock)
}

func (s *CoordinatorTestSuite) TestCancelOrderUndoesEverything() {
	orderID, tasks := s.placeOrder("PRD-001", 15)
	_, err := s.coord.Assign(orderID, "STF-001")
	s.Require().NoError(err)
	_, err = s.coord.StartTask(tasks[0].ID)
	s.Require().NoError(err)

	c, err := s.coord.CancelOrder(orderID, "customer request")
	s.Require().NoError(err)
	s.Equal(types.OrderCancelled, c.Order.Status)
	s.False(c.Order.InventoryReserved)
	s.Len(c.FailedTaskIDs, 3)
	s.Equal(map[string]float64{"STF-001": 2.46}, c.FreedHours)
	s.Equal([]types.LineItem{{ProductID: "PRD-001", Quantity: 15, Unit: "pcs"}}, c.Released)

	item, _ := s.store.Item("PRD-001")
	s.Equal(200, item.Available())
	staff, _ := s.store.Staff("STF-001")
	s.Equal(1.0, staff.CurrentWorkload)

	_, err = s.coord.CancelOrder(orderID, "twice")
	s.Error(err)
}

func (s *CoordinatorTestSuite) TestCancelUnplannedOrder() {
	var orderID string
	s.Require().NoError(s.store.RunInTransaction(func(tx *store.Tx) error {
		if _, err := tx.Reserve("PRD-002", 4); err != nil {
			return err
		}
		orderID = tx.NextID(types.KindOrder)
		return tx.Put(types.KindOrder, &types.Order{
			ID:                orderID,
			Items:             []types.LineItem{{ProductID: "PRD-002", Quantity: 4}},
			TotalQuantity:     4,
			Status:            types.OrderReadyToFulfill,
			InventoryReserved: true,
		})
	}))

	c, err := s.coord.CancelOrder(orderID, "")
	s.Require().NoError(err)
	s.Empty(c.FailedTaskIDs)
	item, _ := s.store.Item("PRD-002")
	s.Equal(0, item.ReservedStock)
}

func TestCoordinatorTestSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorTestSuite))
}
