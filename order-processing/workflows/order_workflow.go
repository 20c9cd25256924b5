package workflows

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"kalpanik-operations/order-processing/activities"
	"kalpanik-operations/order-processing/extraction"
	"kalpanik-operations/order-processing/risk"
	"kalpanik-operations/order-processing/types"
)

// Trace component names
const (
	ComponentOrchestrator = "orchestrator"
	ComponentExtraction   = "extraction"
	ComponentIntake       = "intake"
	ComponentInventory    = "inventory"
	ComponentPlanner      = "planner"
	ComponentDeadline     = "deadline"
	ComponentSelector     = "selector"
	ComponentAssignment   = "assignment"
	ComponentCritic       = "critic"
	ComponentRisk         = "risk"
	ComponentNotify       = "notify"
)

// StatusQuery returns the in-flight RunResult
const StatusQuery = "get-status"

// nonRetryable lists error types that no retry can fix
var nonRetryable = []string{
	"PermanentError",
	"ValidationError",
	"NotFoundError",
	"TransitionError",
	"InsufficientStockError",
	"CapacityExceededError",
}

func withPipelineOptions(ctx workflow.Context) workflow.Context {
	retryPolicy := &temporal.RetryPolicy{
		InitialInterval:        1 * time.Second,
		BackoffCoefficient:     2.0,
		MaximumInterval:        30 * time.Second,
		MaximumAttempts:        5,
		NonRetryableErrorTypes: nonRetryable,
	}
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         retryPolicy,
	})
}

// Collaborators get one bounded attempt; the workflow falls back on failure.
func withCollaboratorOptions(ctx workflow.Context, timeout time.Duration) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
}

// orderRun carries the state of one OrderWorkflow execution
type orderRun struct {
	ctx     workflow.Context
	collab  workflow.Context
	logger  log.Logger
	opts    types.RunOptions
	result  types.RunResult
	reserve *activities.ReleaseInput
}

// OrderWorkflow drives one order request from receipt to an approved,
// staffed plan. Domain rejections end the run with status rejected or
// plan_rejected; unexpected failures compensate and end with status error.
// A RunResult is returned in every case.
func OrderWorkflow(ctx workflow.Context, req types.SubmitOrderRequest) (types.RunResult, error) {
	logger := workflow.GetLogger(ctx)

	// Bounded replanning was introduced after the first release
	version := workflow.GetVersion(ctx, "order-workflow-replan", workflow.DefaultVersion, 1)

	opts := req.Options.WithDefaults()
	if version == workflow.DefaultVersion {
		opts.MaxReplanAttempts = 0
	}
	run := &orderRun{
		ctx:    withPipelineOptions(ctx),
		collab: withCollaboratorOptions(ctx, opts.CollaboratorTimeout),
		logger: logger,
		opts:   opts,
	}
	result := &run.result

	err := workflow.SetQueryHandler(ctx, StatusQuery, func() (types.RunResult, error) {
		return *result, nil
	})
	if err != nil {
		return *result, err
	}

	logger.Info("Order workflow started", "channel", req.Channel, "customerRef", req.Payload.CustomerRef)
	result.Record(ComponentOrchestrator, types.StageReceived, types.OutcomeOK,
		fmt.Sprintf("%s request from %s", req.Channel, req.Payload.CustomerRef))

	// Step 1: Extract fields from chat text
	payload := req.Payload
	if req.Channel == types.ChannelChat && strings.TrimSpace(payload.RawText) != "" {
		var ext extraction.Extraction
		err := workflow.ExecuteActivity(run.collab, "ExtractOrderFields", payload.RawText).Get(ctx, &ext)
		if err != nil {
			// Non-critical: fall back to whatever fields the caller supplied
			logger.Warn("Text extraction failed", "error", err)
			run.warn(ComponentExtraction, types.StageReceived, fmt.Sprintf("text extraction unavailable: %v", err))
		} else {
			payload = extraction.Apply(payload, ext)
			result.Record(ComponentExtraction, types.StageReceived, types.OutcomeOK, describeExtraction(ext))
		}
	}

	// Step 2: Capture intent
	var intake activities.CaptureIntentResult
	err = workflow.ExecuteActivity(run.ctx, "CaptureIntent", activities.CaptureIntentInput{
		Channel: req.Channel,
		Payload: payload,
	}).Get(ctx, &intake)
	if err != nil {
		return run.fail(ComponentIntake, err)
	}
	result.Emit(intake.Events...)
	result.Warnings = append(result.Warnings, intake.Warnings...)
	if intake.Intent != nil {
		result.IntentID = intake.Intent.ID
	}
	if !intake.Accepted {
		result.Status = types.RunRejected
		result.Issues = intake.Issues
		result.Reason = intake.Reason
		result.Record(ComponentIntake, types.StageRejected, types.OutcomeRejected, intake.Reason)
		logger.Info("Order request rejected", "reason", intake.Reason)
		return *result, nil
	}
	result.Record(ComponentIntake, types.StageIntentCreated, outcome(intake.Warnings),
		fmt.Sprintf("intent %s: %d %s of %s", intake.Intent.ID, intake.Intent.Quantity, intake.Intent.Unit, intake.Intent.ProductRef))

	// Step 3: Reserve inventory
	var reservation activities.ReservationResult
	err = workflow.ExecuteActivity(run.ctx, "ReserveInventory", intake.Intent.ID).Get(ctx, &reservation)
	if err != nil {
		return run.fail(ComponentInventory, err)
	}
	result.Emit(reservation.Events...)
	if !reservation.Reserved {
		result.Status = types.RunRejected
		result.Issues = []string{reservation.Reason}
		result.Reason = reservation.Reason
		result.Record(ComponentInventory, types.StageInventoryChecked, types.OutcomeRejected,
			fmt.Sprintf("requested %d of %s, %d available", reservation.Quantity, reservation.ProductID, reservation.Available))
		result.Record(ComponentOrchestrator, types.StageRejected, types.OutcomeRejected, reservation.Reason)
		return *result, nil
	}
	run.reserve = &activities.ReleaseInput{ProductID: reservation.ProductID, Quantity: reservation.Quantity}
	result.Record(ComponentInventory, types.StageInventoryChecked, types.OutcomeOK,
		fmt.Sprintf("reserved %d of %s, %d available", reservation.Quantity, reservation.ProductID, reservation.Available))

	// Step 4: Create order
	var order types.Order
	err = workflow.ExecuteActivity(run.ctx, "CreateOrder", intake.Intent.ID).Get(ctx, &order)
	if err != nil {
		return run.fail(ComponentIntake, err)
	}
	result.OrderID = order.ID
	result.Emit(types.Event{Type: types.EventOrderCreated, EntityID: order.ID, Detail: intake.Intent.ID})
	result.Record(ComponentIntake, types.StageOrderCreated, types.OutcomeOK,
		fmt.Sprintf("order %s from intent %s", order.ID, intake.Intent.ID))

	// Step 5: Plan tasks
	var plan activities.PlanResult
	err = workflow.ExecuteActivity(run.ctx, "PlanTasks", order.ID).Get(ctx, &plan)
	if err != nil {
		return run.fail(ComponentPlanner, err)
	}
	result.Emit(plan.Events...)
	result.Record(ComponentPlanner, types.StageTasksPlanned, types.OutcomeOK,
		fmt.Sprintf("%d tasks, %.2fh total", len(plan.Tasks), plan.TotalHours))

	// Step 6: Deadline feasibility
	var deadline activities.DeadlineResult
	err = workflow.ExecuteActivity(run.ctx, "CheckDeadline", activities.DeadlineInput{
		OrderID: order.ID,
		Now:     workflow.Now(ctx),
	}).Get(ctx, &deadline)
	if err != nil {
		return run.fail(ComponentDeadline, err)
	}
	result.Emit(deadline.Events...)
	result.Warnings = append(result.Warnings, deadline.Warnings...)
	result.Record(ComponentDeadline, types.StageTasksPlanned, outcome(deadline.Warnings), describeDeadline(deadline))

	// Step 7: Select, assign and validate, replanning on rejection
	staffID, candidates, err := run.staffAndValidate(order.ID)
	if err != nil {
		return run.fail(ComponentOrchestrator, err)
	}
	if result.Status == types.RunPlanRejected {
		run.loadFinalView(order.ID)
		return *result, nil
	}

	// Step 8: Delay risk (non-critical)
	if staffID != "" {
		var scored activities.RiskResult
		err := workflow.ExecuteActivity(run.collab, "ScoreDelayRisk", activities.RiskInput{
			OrderID:        order.ID,
			CandidateCount: candidates,
		}).Get(ctx, &scored)
		if err != nil {
			logger.Warn("Delay risk unavailable, using neutral score", "error", err)
			neutral := risk.Neutral()
			result.Risk = &types.DelayRisk{Risk: neutral.Risk, Delayed: neutral.Delayed, Fallback: true}
			run.warn(ComponentRisk, types.StagePlanValidated, fmt.Sprintf("delay risk unavailable, using %.2f: %v", neutral.Risk, err))
		} else {
			result.Emit(scored.Events...)
			result.Risk = &types.DelayRisk{Risk: scored.Assessment.Risk, Delayed: scored.Assessment.Delayed}
			result.Record(ComponentRisk, types.StagePlanValidated, types.OutcomeOK,
				fmt.Sprintf("risk %.4f, delayed=%t", scored.Assessment.Risk, scored.Assessment.Delayed))
		}
	} else {
		result.Record(ComponentRisk, types.StagePlanValidated, types.OutcomeSkipped, "no assigned staff")
	}

	// Step 9: Notifications (non-critical)
	if staffID != "" {
		run.notify("NotifyStaff", order.ID, "staff "+staffID)
	}
	run.notify("NotifyCustomer", order.ID, "customer "+order.CustomerRef)

	// Step 10: Final view
	var view activities.OrderView
	err = workflow.ExecuteActivity(run.ctx, "LoadOrder", order.ID).Get(ctx, &view)
	if err != nil {
		return run.fail(ComponentOrchestrator, err)
	}
	result.Order = &view.Order
	result.Tasks = view.Tasks
	result.Status = types.RunSuccess
	detail := fmt.Sprintf("order %s approved, unassigned", order.ID)
	if staffID != "" {
		detail = fmt.Sprintf("order %s approved, assigned to %s", order.ID, staffID)
	}
	result.Record(ComponentOrchestrator, types.StageApproved, types.OutcomeOK, detail)
	logger.Info("Order workflow completed", "orderID", order.ID, "staffID", staffID)
	return *result, nil
}

// staffAndValidate runs the select, assign and validate loop. It returns the
// assigned staff id, empty when the order was left unassigned, and the
// number of candidates the selector considered. A rejected plan sets the
// result status to plan_rejected.
func (r *orderRun) staffAndValidate(orderID string) (string, int, error) {
	result := &r.result
	var (
		exclude    []string
		issues     []string
		candidates int
	)
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			detail := fmt.Sprintf("attempt %d of %d, excluding %s", attempt, r.opts.MaxReplanAttempts, strings.Join(exclude, ", "))
			result.Emit(types.Event{Type: types.EventReplanRequested, EntityID: orderID, Detail: detail})
			result.Record(ComponentOrchestrator, types.StageTasksPlanned, types.OutcomeWarning, "replanning: "+detail)
		}

		var sel activities.SelectResult
		err := workflow.ExecuteActivity(r.ctx, "SelectWorker", activities.SelectInput{
			OrderID: orderID,
			Exclude: exclude,
		}).Get(r.ctx, &sel)
		if err != nil {
			return "", 0, err
		}
		result.Emit(sel.Events...)

		staffID := ""
		if sel.Selection.Chosen == nil {
			if len(issues) > 0 {
				r.planRejected(append(issues, "no alternative staff: "+sel.Selection.Detail()))
				return "", candidates, nil
			}
			r.warn(ComponentSelector, types.StageTasksPlanned, "order left unassigned: "+sel.Selection.Detail())
		} else {
			staffID = sel.Selection.Chosen.ID
			candidates = len(sel.Selection.Candidates)
			result.Record(ComponentSelector, types.StageStaffSelected, types.OutcomeOK, sel.Selection.Detail())

			var assigned activities.AssignResult
			err = workflow.ExecuteActivity(r.ctx, "AssignTasks", orderID, staffID).Get(r.ctx, &assigned)
			if err != nil {
				return "", 0, err
			}
			result.Emit(assigned.Events...)
			if !assigned.Assigned {
				issues = []string{assigned.Reason}
				exclude = append(exclude, staffID)
				result.Record(ComponentAssignment, types.StageStaffSelected, types.OutcomeRejected, assigned.Reason)
				if attempt >= r.opts.MaxReplanAttempts {
					r.planRejected(issues)
					return "", candidates, nil
				}
				continue
			}
			result.Record(ComponentAssignment, types.StageTasksAssigned, types.OutcomeOK,
				fmt.Sprintf("%d tasks to %s, workload %.2fh of %.2fh",
					len(assigned.Assignment.TaskIDs), staffID, assigned.Assignment.Workload, assigned.Assignment.MaxCapacity))
		}

		var review activities.ReviewResult
		err = workflow.ExecuteActivity(r.ctx, "ValidatePlan", orderID).Get(r.ctx, &review)
		if err != nil {
			return "", 0, err
		}
		result.Emit(review.Events...)
		if review.Verdict.Approved {
			result.Record(ComponentCritic, types.StagePlanValidated, types.OutcomeOK, review.Verdict.Reason)
			return staffID, candidates, nil
		}
		issues = review.Verdict.Issues
		result.Record(ComponentCritic, types.StagePlanValidated, types.OutcomeRejected, review.Verdict.Reason)

		if staffID != "" {
			var released activities.AssignResult
			err = workflow.ExecuteActivity(r.ctx, "ReleaseAssignment", orderID).Get(r.ctx, &released)
			if err != nil {
				return "", 0, err
			}
			result.Emit(released.Events...)
			exclude = append(exclude, staffID)
		}
		// Without a worker to swap out, another attempt would see the same plan
		if staffID == "" || attempt >= r.opts.MaxReplanAttempts {
			r.planRejected(issues)
			return "", candidates, nil
		}
	}
}

func (r *orderRun) planRejected(issues []string) {
	reason := strings.Join(issues, "; ")
	r.result.Status = types.RunPlanRejected
	r.result.Issues = issues
	r.result.Reason = reason
	r.result.Record(ComponentCritic, types.StagePlanRejected, types.OutcomeRejected, reason)
	r.logger.Warn("Plan rejected", "issues", issues)
}

// loadFinalView attaches the order and its tasks to the result if they can be read
func (r *orderRun) loadFinalView(orderID string) {
	var view activities.OrderView
	if err := workflow.ExecuteActivity(r.ctx, "LoadOrder", orderID).Get(r.ctx, &view); err != nil {
		r.logger.Warn("Failed to load final order view", "orderID", orderID, "error", err)
		return
	}
	r.result.Order = &view.Order
	r.result.Tasks = view.Tasks
}

func (r *orderRun) notify(activityName, orderID, recipient string) {
	var sent activities.NotifyResult
	err := workflow.ExecuteActivity(r.collab, activityName, orderID).Get(r.ctx, &sent)
	if err != nil {
		r.logger.Warn("Notification failed", "activity", activityName, "error", err)
		r.warn(ComponentNotify, types.StagePlanValidated, fmt.Sprintf("could not notify %s: %v", recipient, err))
		return
	}
	r.result.Emit(sent.Events...)
	r.result.Record(ComponentNotify, types.StagePlanValidated, types.OutcomeOK, "notified "+recipient)
}

func (r *orderRun) warn(component string, stage types.RunStage, msg string) {
	r.result.Warnings = append(r.result.Warnings, msg)
	r.result.Record(component, stage, types.OutcomeWarning, msg)
}

// fail compensates whatever the run holds and ends it with status error
func (r *orderRun) fail(component string, cause error) (types.RunResult, error) {
	result := &r.result
	r.logger.Warn("Order workflow failed", "component", component, "error", cause)
	result.Status = types.RunError
	result.Reason = cause.Error()
	result.Issues = append(result.Issues, fmt.Sprintf("%s failed: %v", component, cause))
	result.Record(component, types.StageFailed, types.OutcomeFailed, cause.Error())

	// Compensation: cancel the order, or release a reservation that never became one
	switch {
	case result.OrderID != "":
		var cancelled activities.CancelResult
		err := workflow.ExecuteActivity(r.ctx, "CancelOrder", result.OrderID, "orchestration failed at "+component).Get(r.ctx, &cancelled)
		if err != nil {
			r.logger.Warn("Compensation failed", "orderID", result.OrderID, "error", err)
			result.Record(ComponentOrchestrator, types.StageFailed, types.OutcomeFailed, "cancel order: "+err.Error())
			break
		}
		result.Emit(cancelled.Events...)
		result.Record(ComponentOrchestrator, types.StageFailed, types.OutcomeOK,
			fmt.Sprintf("order %s cancelled, reservation released", result.OrderID))
	case r.reserve != nil:
		var available int
		err := workflow.ExecuteActivity(r.ctx, "ReleaseInventory", *r.reserve).Get(r.ctx, &available)
		if err != nil {
			r.logger.Warn("Compensation failed", "productID", r.reserve.ProductID, "error", err)
			result.Record(ComponentOrchestrator, types.StageFailed, types.OutcomeFailed, "release stock: "+err.Error())
			break
		}
		result.Emit(types.Event{
			Type:     types.EventStockReleased,
			EntityID: r.reserve.ProductID,
			Detail:   fmt.Sprintf("released %d", r.reserve.Quantity),
		})
		result.Record(ComponentOrchestrator, types.StageFailed, types.OutcomeOK,
			fmt.Sprintf("released %d of %s", r.reserve.Quantity, r.reserve.ProductID))
	}
	return *result, nil
}

func outcome(warnings []string) string {
	if len(warnings) > 0 {
		return types.OutcomeWarning
	}
	return types.OutcomeOK
}

func describeExtraction(e extraction.Extraction) string {
	var parts []string
	if e.Product != nil {
		parts = append(parts, "product="+*e.Product)
	}
	if e.Quantity != nil {
		parts = append(parts, fmt.Sprintf("quantity=%d", *e.Quantity))
	}
	if e.Unit != nil {
		parts = append(parts, "unit="+*e.Unit)
	}
	if e.Priority != nil {
		parts = append(parts, "priority="+string(*e.Priority))
	}
	if e.Deadline != nil {
		parts = append(parts, "deadline="+*e.Deadline)
	}
	if len(parts) == 0 {
		return "nothing extracted"
	}
	return strings.Join(parts, ", ")
}

func describeDeadline(d activities.DeadlineResult) string {
	f := d.Feasibility
	switch {
	case f.Feasible == nil && f.Deadline.Raw == "":
		return "no deadline"
	case f.Feasible == nil:
		return fmt.Sprintf("deadline %q not understood", f.Deadline.Raw)
	case *f.Feasible:
		return fmt.Sprintf("feasible, %.2fh slack", f.SlackHours)
	default:
		return fmt.Sprintf("at risk, %.2fh short", -f.SlackHours)
	}
}
