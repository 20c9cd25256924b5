package types

import "time"

// OrderPayload is the request body for both channels. On the chat channel the
// structured fields may be empty and are filled in from RawText by extraction.
type OrderPayload struct {
	CustomerRef string   `json:"customerRef" validate:"required,max=128"`
	ProductRef  string   `json:"productRef,omitempty" validate:"required,max=128"`
	Quantity    *int     `json:"quantity,omitempty" validate:"required,gt=0,lte=10000"`
	Unit        string   `json:"unit,omitempty" validate:"omitempty,max=16"`
	Priority    Priority `json:"priority,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Deadline    string   `json:"deadline,omitempty" validate:"omitempty,max=128"`
	Notes       string   `json:"notes,omitempty" validate:"omitempty,max=1000"`
	RawText     string   `json:"rawText,omitempty" validate:"omitempty,max=4000"`
}

// RunOptions tune one orchestration run
type RunOptions struct {
	MaxReplanAttempts   int
	CollaboratorTimeout time.Duration
}

const (
	DefaultMaxReplanAttempts   = 2
	DefaultCollaboratorTimeout = 5 * time.Second
)

// WithDefaults fills unset options
func (o RunOptions) WithDefaults() RunOptions {
	if o.MaxReplanAttempts < 0 {
		o.MaxReplanAttempts = 0
	} else if o.MaxReplanAttempts == 0 {
		o.MaxReplanAttempts = DefaultMaxReplanAttempts
	}
	if o.CollaboratorTimeout <= 0 {
		o.CollaboratorTimeout = DefaultCollaboratorTimeout
	}
	return o
}

// SubmitOrderRequest is the input of the order workflow
type SubmitOrderRequest struct {
	Channel Channel
	Payload OrderPayload
	Options RunOptions
}

// RunStatus is the terminal outcome of one orchestration run
type RunStatus string

const (
	RunSuccess      RunStatus = "success"
	RunRejected     RunStatus = "rejected"
	RunPlanRejected RunStatus = "plan_rejected"
	RunError        RunStatus = "error"
)

// RunStage is a state of the orchestration state machine
type RunStage string

const (
	StageReceived         RunStage = "RECEIVED"
	StageIntentCreated    RunStage = "INTENT_CREATED"
	StageInventoryChecked RunStage = "INVENTORY_CHECKED"
	StageRejected         RunStage = "REJECTED"
	StageOrderCreated     RunStage = "ORDER_CREATED"
	StageTasksPlanned     RunStage = "TASKS_PLANNED"
	StageStaffSelected    RunStage = "STAFF_SELECTED"
	StageTasksAssigned    RunStage = "TASKS_ASSIGNED"
	StagePlanValidated    RunStage = "PLAN_VALIDATED"
	StageApproved         RunStage = "APPROVED"
	StagePlanRejected     RunStage = "PLAN_REJECTED"
	StageFailed           RunStage = "FAILED"
)

// Step outcomes
const (
	OutcomeOK       = "ok"
	OutcomeWarning  = "warning"
	OutcomeSkipped  = "skipped"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Step is one record of the run trace
type Step struct {
	StepNumber int      `json:"stepNumber"`
	Component  string   `json:"component"`
	Stage      RunStage `json:"stage"`
	Outcome    string   `json:"outcome"`
	Detail     string   `json:"detail"`
}

// EventType names an event emitted by a pipeline stage
type EventType string

const (
	EventIntentCreated    EventType = "intent_created"
	EventIntentRejected   EventType = "intent_rejected"
	EventStockReserved    EventType = "stock_reserved"
	EventStockReleased    EventType = "stock_released"
	EventLowStock         EventType = "low_stock"
	EventStockRestocked   EventType = "stock_restocked"
	EventOrderCreated     EventType = "order_created"
	EventTasksPlanned     EventType = "tasks_planned"
	EventDeadlineAtRisk   EventType = "deadline_at_risk"
	EventStaffSelected    EventType = "staff_selected"
	EventTasksAssigned    EventType = "tasks_assigned"
	EventTasksUnassigned  EventType = "tasks_unassigned"
	EventPlanApproved     EventType = "plan_approved"
	EventPlanRejected     EventType = "plan_rejected"
	EventReplanRequested  EventType = "replan_requested"
	EventDelayRiskScored  EventType = "delay_risk_scored"
	EventStaffNotified    EventType = "staff_notified"
	EventCustomerNotified EventType = "customer_notified"
	EventOrderCancelled   EventType = "order_cancelled"
	EventTaskStarted      EventType = "task_started"
	EventTaskCompleted    EventType = "task_completed"
	EventTaskFailed       EventType = "task_failed"
	EventOrderCompleted   EventType = "order_completed"
	EventOrderInProgress  EventType = "order_in_progress"
)

// Event is emitted by a stage and forwarded by the orchestrator
type Event struct {
	Type     EventType `json:"type"`
	EntityID string    `json:"entityId,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}

// DelayRisk is the delay-risk collaborator's verdict for an order
type DelayRisk struct {
	Risk     float64 `json:"risk"`
	Delayed  bool    `json:"delayed"`
	Fallback bool    `json:"fallback"`
}

// RunResult is returned by every orchestration run, including failed ones
type RunResult struct {
	Status   RunStatus  `json:"status"`
	Stage    RunStage   `json:"stage"`
	IntentID string     `json:"intentId,omitempty"`
	OrderID  string     `json:"orderId,omitempty"`
	Order    *Order     `json:"order,omitempty"`
	Tasks    []Task     `json:"tasks,omitempty"`
	Issues   []string   `json:"issues,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`
	Reason   string     `json:"reason,omitempty"`
	Risk     *DelayRisk `json:"risk,omitempty"`
	Trace    []Step     `json:"trace"`
	Events   []Event    `json:"events,omitempty"`
}

// Record appends a step to the trace and moves the run to stage
func (r *RunResult) Record(component string, stage RunStage, outcome, detail string) {
	r.Stage = stage
	r.Trace = append(r.Trace, Step{
		StepNumber: len(r.Trace) + 1,
		Component:  component,
		Stage:      stage,
		Outcome:    outcome,
		Detail:     detail,
	})
}

// Emit forwards events produced by a stage
func (r *RunResult) Emit(events ...Event) {
	r.Events = append(r.Events, events...)
}
