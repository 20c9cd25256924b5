package main

import (
	"context"
	"encoding/json"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/client"

	"kalpanik-operations/order-processing/config"
	"kalpanik-operations/order-processing/logging"
	"kalpanik-operations/order-processing/types"
	"kalpanik-operations/order-processing/workflows"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Fatalf("Invalid configuration: %v", err)
	}
	logger := logging.New(cfg.LogLevel)

	// Create Temporal client
	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalHost,
		Namespace: cfg.TemporalNamespace,
		Logger:    logging.NewTemporalLogger(logger),
	})
	if err != nil {
		logger.Fatalf("Unable to create Temporal client: %v", err)
	}
	defer c.Close()

	// Determine which workflow to run
	workflowType := getEnv("WORKFLOW_TYPE", "order")

	switch workflowType {
	case "order":
		runOrderWorkflow(c, cfg, logger)
	case "snapshot":
		runSnapshotWorkflow(c, cfg, logger)
	case "cancel":
		runCancelWorkflow(c, cfg, logger)
	case "task":
		runTaskWorkflow(c, cfg, logger)
	case "restock":
		runRestockWorkflow(c, cfg, logger)
	default:
		logger.Fatalf("Unknown workflow type: %s (use 'order', 'snapshot', 'cancel', 'task' or 'restock')", workflowType)
	}
}

func runOrderWorkflow(c client.Client, cfg *config.Config, logger *logrus.Logger) {
	channel := types.Channel(getEnv("ORDER_CHANNEL", string(types.ChannelWeb)))
	payload := types.OrderPayload{
		CustomerRef: getEnv("CUSTOMER_REF", "CUST-001"),
		ProductRef:  os.Getenv("PRODUCT_REF"),
		Unit:        os.Getenv("ORDER_UNIT"),
		Priority:    types.Priority(os.Getenv("ORDER_PRIORITY")),
		Deadline:    os.Getenv("ORDER_DEADLINE"),
		Notes:       os.Getenv("ORDER_NOTES"),
		RawText:     os.Getenv("ORDER_TEXT"),
	}
	if raw := os.Getenv("ORDER_QUANTITY"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			logger.Fatalf("ORDER_QUANTITY must be a number: %v", err)
		}
		payload.Quantity = &n
	}
	if channel == types.ChannelWeb && payload.ProductRef == "" && payload.Quantity == nil {
		// Default demo order
		n := 15
		payload.ProductRef = "PRD-001"
		payload.Quantity = &n
	}

	workflowID := "order-workflow-" + uuid.NewString()
	workflowOptions := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: cfg.TaskQueue,
	}
	req := types.SubmitOrderRequest{Channel: channel, Payload: payload, Options: cfg.RunOptions()}

	logger.WithField("workflowID", workflowID).Info("Starting OrderWorkflow")
	we, err := c.ExecuteWorkflow(context.Background(), workflowOptions, workflows.OrderWorkflow, req)
	if err != nil {
		logger.Fatalf("Unable to start workflow: %v", err)
	}
	logger.WithFields(logrus.Fields{"workflowID": we.GetID(), "runID": we.GetRunID()}).Info("Started workflow")
	logger.Infof("Query status: tctl workflow query -w %s -qt %s", workflowID, workflows.StatusQuery)

	var result types.RunResult
	if err := we.Get(context.Background(), &result); err != nil {
		logger.Fatalf("Workflow execution failed: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"status":  result.Status,
		"stage":   result.Stage,
		"orderID": result.OrderID,
		"reason":  result.Reason,
	}).Info("Workflow completed")
	printJSON(logger, result)
}

func runSnapshotWorkflow(c client.Client, cfg *config.Config, logger *logrus.Logger) {
	workflowID := "snapshot-workflow-" + uuid.NewString()
	we, err := c.ExecuteWorkflow(context.Background(), client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: cfg.TaskQueue,
	}, workflows.SnapshotWorkflow)
	if err != nil {
		logger.Fatalf("Unable to start workflow: %v", err)
	}

	var snap types.SystemSnapshot
	if err := we.Get(context.Background(), &snap); err != nil {
		logger.Fatalf("Workflow execution failed: %v", err)
	}
	printJSON(logger, snap)
}

func runCancelWorkflow(c client.Client, cfg *config.Config, logger *logrus.Logger) {
	req := workflows.CancelOrderRequest{
		OrderID: os.Getenv("ORDER_ID"),
		Reason:  os.Getenv("CANCEL_REASON"),
	}
	if req.OrderID == "" {
		logger.Fatal("ORDER_ID is required")
	}
	we, err := c.ExecuteWorkflow(context.Background(), client.StartWorkflowOptions{
		ID:        "cancel-workflow-" + req.OrderID + "-" + uuid.NewString(),
		TaskQueue: cfg.TaskQueue,
	}, workflows.CancelOrderWorkflow, req)
	if err != nil {
		logger.Fatalf("Unable to start workflow: %v", err)
	}

	var out json.RawMessage
	if err := we.Get(context.Background(), &out); err != nil {
		logger.Fatalf("Workflow execution failed: %v", err)
	}
	printJSON(logger, out)
}

func runTaskWorkflow(c client.Client, cfg *config.Config, logger *logrus.Logger) {
	req := workflows.TaskProgressRequest{
		TaskID: os.Getenv("TASK_ID"),
		Action: workflows.TaskAction(getEnv("TASK_ACTION", string(workflows.TaskActionStart))),
		Reason: os.Getenv("TASK_REASON"),
	}
	if req.TaskID == "" {
		logger.Fatal("TASK_ID is required")
	}
	we, err := c.ExecuteWorkflow(context.Background(), client.StartWorkflowOptions{
		ID:        "task-workflow-" + req.TaskID + "-" + uuid.NewString(),
		TaskQueue: cfg.TaskQueue,
	}, workflows.TaskProgressWorkflow, req)
	if err != nil {
		logger.Fatalf("Unable to start workflow: %v", err)
	}

	var out json.RawMessage
	if err := we.Get(context.Background(), &out); err != nil {
		logger.Fatalf("Workflow execution failed: %v", err)
	}
	printJSON(logger, out)
}

func runRestockWorkflow(c client.Client, cfg *config.Config, logger *logrus.Logger) {
	req := workflows.RestockRequest{ProductRef: os.Getenv("PRODUCT_REF")}
	if req.ProductRef == "" {
		logger.Fatal("PRODUCT_REF is required")
	}
	n, err := strconv.Atoi(getEnv("RESTOCK_QUANTITY", "0"))
	if err != nil || n <= 0 {
		logger.Fatal("RESTOCK_QUANTITY must be a positive number")
	}
	req.Quantity = n

	we, err := c.ExecuteWorkflow(context.Background(), client.StartWorkflowOptions{
		ID:        "restock-workflow-" + uuid.NewString(),
		TaskQueue: cfg.TaskQueue,
	}, workflows.RestockWorkflow, req)
	if err != nil {
		logger.Fatalf("Unable to start workflow: %v", err)
	}

	var out json.RawMessage
	if err := we.Get(context.Background(), &out); err != nil {
		logger.Fatalf("Workflow execution failed: %v", err)
	}
	printJSON(logger, out)
}

func printJSON(logger *logrus.Logger, v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.Errorf("Failed to print result: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
