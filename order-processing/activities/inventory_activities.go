package activities

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"

	"kalpanik-operations/order-processing/store"
	"kalpanik-operations/order-processing/types"
)

// RejectInsufficientStock is the rejection reason for a failed reservation
const RejectInsufficientStock = "INSUFFICIENT_STOCK"

// ReservationResult reports a reservation attempt. Reserved is false when the
// intent was rejected for lack of stock.
type ReservationResult struct {
	Reserved  bool
	ProductID string
	Quantity  int
	Available int
	Reason    string
	Events    []types.Event
}

// ReleaseInput returns reserved units to availability
type ReleaseInput struct {
	ProductID string
	Quantity  int
}

// RestockInput adds stock to a product, named by id or name
type RestockInput struct {
	ProductRef string
	Quantity   int
}

// RestockResult reports the product's availability after a restock
type RestockResult struct {
	ProductID string
	Available int
	Events    []types.Event
}

// InventoryActivities contains inventory-related activities
type InventoryActivities struct {
	Store *store.Store
}

// ReserveInventory reserves the intent's quantity. Insufficient stock rejects
// the intent in the same commit and is reported in the result, not as an error.
// The intent records the outcome, so a retried call reports it again instead
// of reserving twice.
func (a *InventoryActivities) ReserveInventory(ctx context.Context, intentID string) (ReservationResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Reserving stock", "intentID", intentID)

	var out ReservationResult
	err := a.Store.RunInTransaction(func(tx *store.Tx) error {
		intent, err := tx.Intent(intentID)
		if err != nil {
			return err
		}
		out = ReservationResult{ProductID: intent.ProductRef, Quantity: intent.Quantity}

		switch {
		case intent.StockReserved:
			logger.Info("Reservation already held", "intentID", intentID)
			if intent.OrderID != "" {
				order, err := tx.Order(intent.OrderID)
				if err != nil {
					return err
				}
				if !order.InventoryReserved {
					return &types.PermanentError{Msg: fmt.Sprintf("order %s from intent %s no longer holds its reservation", order.ID, intentID)}
				}
			}
			item, err := tx.Item(intent.ProductRef)
			if err != nil {
				return err
			}
			out.Reserved = true
			out.Available = item.Available()
			out.Events = reservedEvents(item, intent.Quantity)
			return nil
		case intent.Status == types.IntentRejected && intent.RejectionReason == RejectInsufficientStock:
			item, err := tx.Item(intent.ProductRef)
			if err != nil {
				return err
			}
			out.reject(intentID, &types.InsufficientStockError{ProductID: item.ProductID, Requested: intent.Quantity, Available: item.Available()})
			return nil
		case intent.Status != types.IntentValidated:
			return &types.PermanentError{Msg: fmt.Sprintf("intent %s is %s, expected %s", intentID, intent.Status, types.IntentValidated)}
		}

		_, err = tx.Reserve(intent.ProductRef, intent.Quantity)
		var short *types.InsufficientStockError
		switch {
		case errors.As(err, &short):
			out.reject(intentID, short)
			_, err := tx.UpdateIntent(intentID, func(i *types.OrderIntent) error {
				i.Status = types.IntentRejected
				i.RejectionReason = RejectInsufficientStock
				return nil
			})
			return err
		case err != nil:
			return err
		}
		if _, err := tx.UpdateIntent(intentID, func(i *types.OrderIntent) error {
			i.StockReserved = true
			return nil
		}); err != nil {
			return err
		}

		item, err := tx.Item(intent.ProductRef)
		if err != nil {
			return err
		}
		out.Reserved = true
		out.Available = item.Available()
		out.Events = reservedEvents(item, intent.Quantity)
		return nil
	})
	if err != nil {
		logger.Error("Reservation failed", "intentID", intentID, "error", err)
		return ReservationResult{}, err
	}
	if out.Reserved {
		logger.Info("Stock reserved", "productID", out.ProductID, "quantity", out.Quantity, "available", out.Available)
	} else {
		logger.Warn("Insufficient stock", "productID", out.ProductID, "quantity", out.Quantity, "available", out.Available)
	}
	return out, nil
}

func (r *ReservationResult) reject(intentID string, short *types.InsufficientStockError) {
	r.Available = short.Available
	r.Reason = fmt.Sprintf("%s: %s", RejectInsufficientStock, short.Error())
	r.Events = append(r.Events, types.Event{Type: types.EventIntentRejected, EntityID: intentID, Detail: r.Reason})
}

func reservedEvents(item *types.InventoryItem, qty int) []types.Event {
	available := item.Available()
	events := []types.Event{{
		Type:     types.EventStockReserved,
		EntityID: item.ProductID,
		Detail:   fmt.Sprintf("reserved %d, %d available", qty, available),
	}}
	if available <= item.ReorderThreshold {
		events = append(events, types.Event{
			Type:     types.EventLowStock,
			EntityID: item.ProductID,
			Detail:   fmt.Sprintf("%d available, reorder threshold %d", available, item.ReorderThreshold),
		})
	}
	return events
}

// ReleaseInventory returns reserved units (compensation). Over-release clamps at zero.
func (a *InventoryActivities) ReleaseInventory(ctx context.Context, in ReleaseInput) (int, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Releasing stock", "productID", in.ProductID, "quantity", in.Quantity)

	available, err := a.Store.Release(in.ProductID, in.Quantity)
	if err != nil {
		return 0, err
	}
	logger.Info("Stock released", "productID", in.ProductID, "available", available)
	return available, nil
}

// RestockInventory adds units to a product's total stock
func (a *InventoryActivities) RestockInventory(ctx context.Context, in RestockInput) (RestockResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Restocking", "productRef", in.ProductRef, "quantity", in.Quantity)

	res, err := a.Store.ResolveProduct(in.ProductRef)
	if err != nil {
		return RestockResult{}, err
	}
	available, err := a.Store.Restock(res.Item.ProductID, in.Quantity)
	if err != nil {
		logger.Error("Restock failed", "productID", res.Item.ProductID, "error", err)
		return RestockResult{}, err
	}
	logger.Info("Restocked", "productID", res.Item.ProductID, "available", available)
	return RestockResult{
		ProductID: res.Item.ProductID,
		Available: available,
		Events: []types.Event{{
			Type:     types.EventStockRestocked,
			EntityID: res.Item.ProductID,
			Detail:   fmt.Sprintf("added %d, %d available", in.Quantity, available),
		}},
	}, nil
}

// FetchSystemSnapshot returns the derived operational snapshot
func (a *InventoryActivities) FetchSystemSnapshot(ctx context.Context) (types.SystemSnapshot, error) {
	logger := activity.GetLogger(ctx)
	snap := a.Store.Snapshot()
	logger.Info("Snapshot fetched", "orders", snap.TotalOrders, "alerts", len(snap.Alerts))
	return snap, nil
}
