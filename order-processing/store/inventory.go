package store

import (
	"fmt"
	"strings"

	"kalpanik-operations/order-processing/types"
)

// Match describes how a product reference was resolved
type Match string

const (
	MatchID        Match = "id"
	MatchName      Match = "name"
	MatchSubstring Match = "substring"
)

// Resolution is the result of resolving a product id or free-text name
type Resolution struct {
	Item         *types.InventoryItem
	MatchedBy    Match
	Ambiguous    bool
	Alternatives []string
}

// Reserve holds qty units of a product and returns the remaining availability
func (s *Store) Reserve(productID string, qty int) (int, error) {
	var available int
	err := s.RunInTransaction(func(tx *Tx) error {
		var err error
		available, err = tx.Reserve(productID, qty)
		return err
	})
	return available, err
}

// Release returns qty reserved units of a product to availability
func (s *Store) Release(productID string, qty int) (int, error) {
	var available int
	err := s.RunInTransaction(func(tx *Tx) error {
		var err error
		available, err = tx.Release(productID, qty)
		return err
	})
	return available, err
}

// Restock adds qty units to the total stock of a product
func (s *Store) Restock(productID string, qty int) (int, error) {
	var available int
	err := s.RunInTransaction(func(tx *Tx) error {
		if qty <= 0 {
			return &types.ValidationError{Msg: fmt.Sprintf("restock quantity must be positive, got %d", qty)}
		}
		e, err := tx.mutate(types.KindInventory, productID, "inventory.restock", map[string]any{"qty": qty}, patchAs(types.KindInventory, func(item *types.InventoryItem) error {
			item.TotalStock += qty
			return nil
		}))
		if err != nil {
			return err
		}
		available = e.(*types.InventoryItem).Available()
		return nil
	})
	return available, err
}

// Reserve fails with InsufficientStockError when qty exceeds availability
func (tx *Tx) Reserve(productID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, &types.ValidationError{Msg: fmt.Sprintf("reservation quantity must be positive, got %d", qty)}
	}
	e, err := tx.mutate(types.KindInventory, productID, "inventory.reserve", map[string]any{"qty": qty}, patchAs(types.KindInventory, func(item *types.InventoryItem) error {
		if qty > item.Available() {
			return &types.InsufficientStockError{ProductID: item.ProductID, Requested: qty, Available: item.Available()}
		}
		item.ReservedStock += qty
		return nil
	}))
	if err != nil {
		return 0, err
	}
	return e.(*types.InventoryItem).Available(), nil
}

// Release clamps reserved stock at zero, so over-release is harmless
func (tx *Tx) Release(productID string, qty int) (int, error) {
	if qty < 0 {
		return 0, &types.ValidationError{Msg: fmt.Sprintf("release quantity must not be negative, got %d", qty)}
	}
	e, err := tx.mutate(types.KindInventory, productID, "inventory.release", map[string]any{"qty": qty}, patchAs(types.KindInventory, func(item *types.InventoryItem) error {
		item.ReservedStock -= qty
		if item.ReservedStock < 0 {
			item.ReservedStock = 0
		}
		return nil
	}))
	if err != nil {
		return 0, err
	}
	return e.(*types.InventoryItem).Available(), nil
}

// Consume ships qty reserved units: both the reservation and the total shrink
func (tx *Tx) Consume(productID string, qty int) error {
	_, err := tx.mutate(types.KindInventory, productID, "inventory.consume", map[string]any{"qty": qty}, patchAs(types.KindInventory, func(item *types.InventoryItem) error {
		if qty <= 0 || qty > item.ReservedStock {
			return &types.PermanentError{Msg: fmt.Sprintf("cannot consume %d units of %s with %d reserved", qty, item.ProductID, item.ReservedStock)}
		}
		item.ReservedStock -= qty
		item.TotalStock -= qty
		return nil
	}))
	return err
}

// ResolveProduct accepts a product id or a free-text name. Names match
// case-insensitively, exact first, then by substring; among several substring
// hits the shortest name wins and ties keep insertion order.
func (s *Store) ResolveProduct(ref string) (Resolution, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Resolution{}, &types.ValidationError{Msg: "product reference is empty"}
	}
	if item, err := s.Item(ref); err == nil {
		return Resolution{Item: item, MatchedBy: MatchID}, nil
	}
	needle := strings.ToLower(ref)
	items := s.Items()
	for _, item := range items {
		if strings.ToLower(item.Name) == needle || strings.ToLower(item.ProductID) == needle {
			return Resolution{Item: item, MatchedBy: MatchName}, nil
		}
	}
	var hits []*types.InventoryItem
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			hits = append(hits, item)
		}
	}
	if len(hits) == 0 {
		return Resolution{}, &types.NotFoundError{Kind: types.KindInventory, ID: ref}
	}
	best := hits[0]
	for _, h := range hits[1:] {
		if len(h.Name) < len(best.Name) {
			best = h
		}
	}
	res := Resolution{Item: best, MatchedBy: MatchSubstring, Ambiguous: len(hits) > 1}
	if res.Ambiguous {
		for _, h := range hits {
			if h.ProductID != best.ProductID {
				res.Alternatives = append(res.Alternatives, h.ProductID)
			}
		}
	}
	return res, nil
}
