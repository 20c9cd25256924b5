package types

import (
	"fmt"
	"sort"
	"strings"
)

// PermanentError represents an error that should not be retried
type PermanentError struct {
	Msg string
}

func (e *PermanentError) Error() string {
	return e.Msg
}

// ValidationError represents a malformed request; nothing is mutated when it is returned
type ValidationError struct {
	Msg    string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Msg
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+e.Fields[k])
	}
	return fmt.Sprintf("%s (%s)", e.Msg, strings.Join(parts, ", "))
}

// NotFoundError is returned for an unknown entity id or product reference
type NotFoundError struct {
	Kind Kind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// InsufficientStockError is returned when a reservation exceeds available stock
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// CapacityExceededError is returned when an assignment would overload a worker
type CapacityExceededError struct {
	StaffID  string
	Current  float64
	Required float64
	Max      float64
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded for %s: %.2fh + %.2fh > %.2fh", e.StaffID, e.Current, e.Required, e.Max)
}

// TransitionError is returned for a status change the lifecycle does not allow
type TransitionError struct {
	Kind Kind
	ID   string
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition for %s: %s -> %s", e.Kind, e.ID, e.From, e.To)
}
