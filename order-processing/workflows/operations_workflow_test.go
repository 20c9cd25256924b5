package workflows

import (
	"kalpanik-operations/order-processing/activities"
	"kalpanik-operations/order-processing/types"
)

func (s *OrderWorkflowTestSuite) progress(taskID string, action TaskAction) (activities.TaskUpdateResult, error) {
	env := s.newEnv()
	env.ExecuteWorkflow(TaskProgressWorkflow, TaskProgressRequest{TaskID: taskID, Action: action})
	s.Require().True(env.IsWorkflowCompleted())
	if err := env.GetWorkflowError(); err != nil {
		return activities.TaskUpdateResult{}, err
	}
	var out activities.TaskUpdateResult
	s.Require().NoError(env.GetWorkflowResult(&out))
	return out, nil
}

func (s *OrderWorkflowTestSuite) TestSnapshotWorkflow() {
	env := s.newEnv()
	env.ExecuteWorkflow(SnapshotWorkflow)
	s.Require().True(env.IsWorkflowCompleted())
	s.Require().NoError(env.GetWorkflowError())

	var snap types.SystemSnapshot
	s.Require().NoError(env.GetWorkflowResult(&snap))
	s.Equal(4, snap.InventoryItems)
	s.Equal(4, snap.StaffTotal)
	s.Equal(2, snap.StaffOnline)
	s.Equal(1, snap.LowStockItems)
	s.Zero(snap.TotalOrders)
}

func (s *OrderWorkflowTestSuite) TestCancelOrderWorkflow() {
	placed := s.submit(s.newEnv(), webOrder("PRD-001", 15))
	s.Require().Equal(types.RunSuccess, placed.Status)

	env := s.newEnv()
	env.ExecuteWorkflow(CancelOrderWorkflow, CancelOrderRequest{OrderID: placed.OrderID, Reason: "customer changed mind"})
	s.Require().True(env.IsWorkflowCompleted())
	s.Require().NoError(env.GetWorkflowError())
	var out activities.CancelResult
	s.Require().NoError(env.GetWorkflowResult(&out))

	s.Equal(types.OrderCancelled, out.Cancellation.Order.Status)
	s.Len(out.Cancellation.FailedTaskIDs, 3)

	item, err := s.store.Item("PRD-001")
	s.Require().NoError(err)
	s.Equal(0, item.ReservedStock)
	asha, err := s.store.Staff("STF-001")
	s.Require().NoError(err)
	s.InDelta(1.0, asha.CurrentWorkload, 1e-9)
	s.Empty(asha.AssignedTaskIDs)
}

func (s *OrderWorkflowTestSuite) TestCancelUnknownOrderFails() {
	env := s.newEnv()
	env.ExecuteWorkflow(CancelOrderWorkflow, CancelOrderRequest{OrderID: "ORD-9999"})
	s.Require().True(env.IsWorkflowCompleted())
	s.Error(env.GetWorkflowError())
}

func (s *OrderWorkflowTestSuite) TestTaskProgressRespectsDependencies() {
	placed := s.submit(s.newEnv(), webOrder("PRD-001", 15))
	s.Require().Equal(types.RunSuccess, placed.Status)
	prepare, check, pack := placed.Tasks[0].ID, placed.Tasks[1].ID, placed.Tasks[2].ID

	_, err := s.progress(check, TaskActionStart)
	s.Require().Error(err)
	s.Contains(err.Error(), "waits on")

	out, err := s.progress(prepare, TaskActionStart)
	s.Require().NoError(err)
	s.True(out.Update.OrderStarted)
	s.Equal(types.OrderInProgress, out.Update.Order.Status)

	for _, id := range []string{prepare, check, pack} {
		if id != prepare {
			_, err = s.progress(id, TaskActionStart)
			s.Require().NoError(err)
		}
		out, err = s.progress(id, TaskActionComplete)
		s.Require().NoError(err)
	}
	s.True(out.Update.OrderCompleted)

	order, err := s.store.Order(placed.OrderID)
	s.Require().NoError(err)
	s.Equal(types.OrderCompleted, order.Status)

	// Completion consumes the reservation
	item, err := s.store.Item("PRD-001")
	s.Require().NoError(err)
	s.Equal(0, item.ReservedStock)
	s.Equal(185, item.TotalStock)

	asha, err := s.store.Staff("STF-001")
	s.Require().NoError(err)
	s.InDelta(1.0, asha.CurrentWorkload, 1e-9)
}

func (s *OrderWorkflowTestSuite) TestTaskProgressUnknownAction() {
	_, err := s.progress("TASK-0001", TaskAction("pause"))
	s.Error(err)
}

func (s *OrderWorkflowTestSuite) TestTaskProgressFailureCancelsOrder() {
	placed := s.submit(s.newEnv(), webOrder("PRD-001", 15))
	s.Require().Equal(types.RunSuccess, placed.Status)
	prepare := placed.Tasks[0].ID

	_, err := s.progress(prepare, TaskActionStart)
	s.Require().NoError(err)
	out, err := s.progress(prepare, TaskActionFail)
	s.Require().NoError(err)

	s.Equal(types.OrderCancelled, out.Update.Order.Status)
	s.Require().NotNil(out.Update.Cancellation)
	s.Len(out.Update.Cancellation.FailedTaskIDs, 3)
	got := make([]types.EventType, 0, len(out.Events))
	for _, e := range out.Events {
		got = append(got, e.Type)
	}
	s.Equal([]types.EventType{
		types.EventTaskFailed,
		types.EventStockReleased,
		types.EventTasksUnassigned,
		types.EventOrderCancelled,
	}, got)

	asha, err := s.store.Staff("STF-001")
	s.Require().NoError(err)
	s.InDelta(1.0, asha.CurrentWorkload, 1e-9)
	item, err := s.store.Item("PRD-001")
	s.Require().NoError(err)
	s.Equal(0, item.ReservedStock)
}

func (s *OrderWorkflowTestSuite) TestRestockWorkflow() {
	env := s.newEnv()
	env.ExecuteWorkflow(RestockWorkflow, RestockRequest{ProductRef: "wool scarf", Quantity: 12})
	s.Require().True(env.IsWorkflowCompleted())
	s.Require().NoError(env.GetWorkflowError())

	var out activities.RestockResult
	s.Require().NoError(env.GetWorkflowResult(&out))
	s.Equal("PRD-004", out.ProductID)
	s.Equal(20, out.Available)
	s.Equal(types.EventStockRestocked, out.Events[0].Type)

	// A 15 unit order for the scarf now fits
	placed := s.submit(s.newEnv(), webOrder("PRD-004", 15))
	s.Equal(types.RunSuccess, placed.Status)
}

func (s *OrderWorkflowTestSuite) TestRestockWorkflowRejectsBadQuantity() {
	env := s.newEnv()
	env.ExecuteWorkflow(RestockWorkflow, RestockRequest{ProductRef: "PRD-004", Quantity: 0})
	s.Require().True(env.IsWorkflowCompleted())
	s.Error(env.GetWorkflowError())

	item, err := s.store.Item("PRD-004")
	s.Require().NoError(err)
	s.Equal(8, item.TotalStock)
}
