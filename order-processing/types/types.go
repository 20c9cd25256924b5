package types

import "time"

// Kind names one of the entity collections held by the state store
type Kind string

const (
	KindIntent    Kind = "intents"
	KindOrder     Kind = "orders"
	KindInventory Kind = "inventory"
	KindStaff     Kind = "staff"
	KindTask      Kind = "tasks"
)

// Entity is implemented by every record the state store owns
type Entity interface {
	EntityID() string
	EntityKind() Kind
	Clone() Entity
}

// Channel is the surface an order request arrived on
type Channel string

const (
	ChannelWeb  Channel = "web"
	ChannelChat Channel = "chat"
)

// Ordinal is the channel encoding used by the delay-risk features
func (c Channel) Ordinal() int {
	if c == ChannelChat {
		return 1
	}
	return 0
}

// Priority of an order
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Ordinal maps LOW..URGENT to 0..3. Unknown priorities count as MEDIUM.
func (p Priority) Ordinal() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityHigh:
		return 2
	case PriorityUrgent:
		return 3
	default:
		return 1
	}
}

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// IntentStatus of an order intent. Intents are stored only once their payload
// validated and their product resolved, so they are born VALIDATED or REJECTED.
type IntentStatus string

const (
	IntentValidated IntentStatus = "VALIDATED"
	IntentRejected  IntentStatus = "REJECTED"
	IntentConverted IntentStatus = "CONVERTED"
)

type OrderStatus string

const (
	OrderReadyToFulfill OrderStatus = "READY_TO_FULFILL"
	OrderTasksPlanned   OrderStatus = "TASKS_PLANNED"
	OrderAssigned       OrderStatus = "ASSIGNED"
	OrderInProgress     OrderStatus = "IN_PROGRESS"
	OrderCompleted      OrderStatus = "COMPLETED"
	OrderCancelled      OrderStatus = "CANCELLED"
)

type StaffStatus string

const (
	StaffOnline  StaffStatus = "ONLINE"
	StaffBusy    StaffStatus = "BUSY"
	StaffOffline StaffStatus = "OFFLINE"
	StaffOnBreak StaffStatus = "ON_BREAK"
)

type TaskType string

const (
	TaskPrepare      TaskType = "PREPARE"
	TaskQualityCheck TaskType = "QUALITY_CHECK"
	TaskPack         TaskType = "PACK"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskAssigned   TaskStatus = "ASSIGNED"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
)

// OrderIntent is a tentative order, not yet backed by reserved inventory
type OrderIntent struct {
	ID              string       `json:"id"`
	CustomerRef     string       `json:"customerRef"`
	Channel         Channel      `json:"channel"`
	ProductRef      string       `json:"productRef"`
	Quantity        int          `json:"quantity"`
	Unit            string       `json:"unit"`
	Priority        Priority     `json:"priority"`
	Deadline        string       `json:"deadline,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	Status          IntentStatus `json:"status"`
	Warnings        []string     `json:"warnings,omitempty"`
	RejectionReason string       `json:"rejectionReason,omitempty"`
	// StockReserved is set in the commit that reserves the intent's quantity
	StockReserved   bool         `json:"stockReserved"`
	OrderID         string       `json:"orderId,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
}

func (i *OrderIntent) EntityID() string { return i.ID }
func (i *OrderIntent) EntityKind() Kind { return KindIntent }

func (i *OrderIntent) Clone() Entity {
	c := *i
	c.Warnings = cloneStrings(i.Warnings)
	return &c
}

// LineItem is one product line of an order
type LineItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Unit      string `json:"unit"`
}

// Order is a confirmed request whose line items are reserved in inventory
type Order struct {
	ID                string      `json:"id"`
	IntentID          string      `json:"intentId"`
	CustomerRef       string      `json:"customerRef"`
	Channel           Channel     `json:"channel"`
	Items             []LineItem  `json:"items"`
	TotalQuantity     int         `json:"totalQuantity"`
	Priority          Priority    `json:"priority"`
	Deadline          string      `json:"deadline,omitempty"`
	DeadlineAt        *time.Time  `json:"deadlineAt,omitempty"`
	Status            OrderStatus `json:"status"`
	InventoryReserved bool        `json:"inventoryReserved"`
	AssignedStaffID   string      `json:"assignedStaffId,omitempty"`
	TaskIDs           []string    `json:"taskIds,omitempty"`
	EstimatedHours    float64     `json:"estimatedHours"`
	DelayRisk         *float64    `json:"delayRisk,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
}

func (o *Order) EntityID() string { return o.ID }
func (o *Order) EntityKind() Kind { return KindOrder }

func (o *Order) Clone() Entity {
	c := *o
	c.Items = append([]LineItem(nil), o.Items...)
	c.TaskIDs = cloneStrings(o.TaskIDs)
	if o.DeadlineAt != nil {
		at := *o.DeadlineAt
		c.DeadlineAt = &at
	}
	if o.DelayRisk != nil {
		r := *o.DelayRisk
		c.DelayRisk = &r
	}
	return &c
}

// InventoryItem tracks stock of one product
type InventoryItem struct {
	ProductID        string `json:"productId" yaml:"productId"`
	Name             string `json:"name" yaml:"name"`
	Unit             string `json:"unit" yaml:"unit"`
	TotalStock       int    `json:"totalStock" yaml:"totalStock"`
	ReservedStock    int    `json:"reservedStock" yaml:"reservedStock"`
	ReorderThreshold int    `json:"reorderThreshold" yaml:"reorderThreshold"`
}

// Available is the stock that can still be reserved
func (i *InventoryItem) Available() int {
	return i.TotalStock - i.ReservedStock
}

func (i *InventoryItem) EntityID() string { return i.ProductID }
func (i *InventoryItem) EntityKind() Kind { return KindInventory }

func (i *InventoryItem) Clone() Entity {
	c := *i
	return &c
}

// StaffMember is a worker that can carry task hours up to MaxCapacity
type StaffMember struct {
	ID              string      `json:"id" yaml:"id"`
	Name            string      `json:"name" yaml:"name"`
	Status          StaffStatus `json:"status" yaml:"status"`
	CurrentWorkload float64     `json:"currentWorkload" yaml:"currentWorkload"`
	MaxCapacity     float64     `json:"maxCapacity" yaml:"maxCapacity"`
	AssignedTaskIDs []string    `json:"assignedTaskIds,omitempty" yaml:"assignedTaskIds,omitempty"`
}

func (s *StaffMember) EntityID() string { return s.ID }
func (s *StaffMember) EntityKind() Kind { return KindStaff }

func (s *StaffMember) Clone() Entity {
	c := *s
	c.AssignedTaskIDs = cloneStrings(s.AssignedTaskIDs)
	return &c
}

// Task is one unit of fulfilment work for an order
type Task struct {
	ID              string     `json:"id"`
	OrderID         string     `json:"orderId"`
	Type            TaskType   `json:"type"`
	Sequence        int        `json:"sequence"`
	Status          TaskStatus `json:"status"`
	EstimatedHours  float64    `json:"estimatedHours"`
	DependsOn       []string   `json:"dependsOn,omitempty"`
	AssignedStaffID string     `json:"assignedStaffId,omitempty"`
}

func (t *Task) EntityID() string { return t.ID }
func (t *Task) EntityKind() Kind { return KindTask }

func (t *Task) Clone() Entity {
	c := *t
	c.DependsOn = cloneStrings(t.DependsOn)
	return &c
}

// AuditEntry records one committed mutation
type AuditEntry struct {
	Seq       int64          `json:"seq"`
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Payload   map[string]any `json:"payload,omitempty"`
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
