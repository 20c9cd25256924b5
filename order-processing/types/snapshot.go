package types

import "time"

// Severity of a snapshot alert
type Severity string

const (
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Alert is raised when a snapshot metric crosses a threshold
type Alert struct {
	Severity Severity `json:"severity"`
	Kind     string   `json:"kind"`
	EntityID string   `json:"entityId,omitempty"`
	Message  string   `json:"message"`
}

// SystemSnapshot aggregates the store's collections for dashboards
type SystemSnapshot struct {
	GeneratedAt         time.Time           `json:"generatedAt"`
	TotalOrders         int                 `json:"totalOrders"`
	OrdersByStatus      map[OrderStatus]int `json:"ordersByStatus"`
	InventoryItems      int                 `json:"inventoryItems"`
	LowStockItems       int                 `json:"lowStockItems"`
	OutOfStockItems     int                 `json:"outOfStockItems"`
	StaffTotal          int                 `json:"staffTotal"`
	StaffOnline         int                 `json:"staffOnline"`
	StaffAvailable      int                 `json:"staffAvailable"`
	StaffOverloaded     int                 `json:"staffOverloaded"`
	TaskBacklog         int                 `json:"taskBacklog"`
	OverdueTasks        int                 `json:"overdueTasks"`
	CapacityUtilization float64             `json:"capacityUtilization"`
	Alerts              []Alert             `json:"alerts"`
}
