package activities

import (
	"github.com/sirupsen/logrus"

	"kalpanik-operations/order-processing/assignment"
	"kalpanik-operations/order-processing/extraction"
	"kalpanik-operations/order-processing/notify"
	"kalpanik-operations/order-processing/risk"
	"kalpanik-operations/order-processing/store"
)

// Registry is satisfied by worker.Worker and the Temporal test environments
type Registry interface {
	RegisterActivity(a interface{})
}

// Dependencies are the shared store and collaborators behind the activities
type Dependencies struct {
	Store     *store.Store
	Extractor extraction.Extractor
	Predictor risk.Predictor
	Notifier  notify.Notifier
}

// Register registers every pipeline activity on r
func Register(r Registry, deps Dependencies) {
	coordinator := assignment.New(deps.Store)
	predictor := deps.Predictor
	if predictor == nil {
		predictor = risk.DefaultModel()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(logrus.StandardLogger())
	}

	// Intake activities
	intakeActivities := NewIntakeActivities(deps.Store, deps.Extractor)
	r.RegisterActivity(intakeActivities.ExtractOrderFields)
	r.RegisterActivity(intakeActivities.CaptureIntent)

	// Inventory activities
	inventoryActivities := &InventoryActivities{Store: deps.Store}
	r.RegisterActivity(inventoryActivities.ReserveInventory)
	r.RegisterActivity(inventoryActivities.ReleaseInventory)
	r.RegisterActivity(inventoryActivities.RestockInventory)
	r.RegisterActivity(inventoryActivities.FetchSystemSnapshot)

	// Order activities
	orderActivities := &OrderActivities{Store: deps.Store, Coordinator: coordinator}
	r.RegisterActivity(orderActivities.CreateOrder)
	r.RegisterActivity(orderActivities.LoadOrder)
	r.RegisterActivity(orderActivities.CancelOrder)
	r.RegisterActivity(orderActivities.StartTask)
	r.RegisterActivity(orderActivities.CompleteTask)
	r.RegisterActivity(orderActivities.FailTask)

	// Planning activities
	planningActivities := &PlanningActivities{Store: deps.Store, Coordinator: coordinator}
	r.RegisterActivity(planningActivities.PlanTasks)
	r.RegisterActivity(planningActivities.CheckDeadline)
	r.RegisterActivity(planningActivities.SelectWorker)
	r.RegisterActivity(planningActivities.AssignTasks)
	r.RegisterActivity(planningActivities.ReleaseAssignment)
	r.RegisterActivity(planningActivities.ValidatePlan)

	// Collaborator activities
	riskActivities := &RiskActivities{Store: deps.Store, Predictor: predictor}
	r.RegisterActivity(riskActivities.ScoreDelayRisk)

	notificationActivities := &NotificationActivities{Store: deps.Store, Notifier: notifier}
	r.RegisterActivity(notificationActivities.NotifyStaff)
	r.RegisterActivity(notificationActivities.NotifyCustomer)
}
