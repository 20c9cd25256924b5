package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"kalpanik-operations/order-processing/types"
)

// SeedData is the initial inventory and roster loaded into a fresh store
type SeedData struct {
	Inventory []types.InventoryItem `yaml:"inventory"`
	Staff     []types.StaffMember   `yaml:"staff"`
}

// DefaultSeed is used when no seed file is configured
func DefaultSeed() SeedData {
	return SeedData{
		Inventory: []types.InventoryItem{
			{ProductID: "PRD-001", Name: "Cotton T-Shirt", Unit: "pcs", TotalStock: 200, ReorderThreshold: 20},
			{ProductID: "PRD-002", Name: "Denim Jeans", Unit: "pcs", TotalStock: 50, ReorderThreshold: 10},
			{ProductID: "PRD-003", Name: "Canvas Tote Bag", Unit: "pcs", TotalStock: 120, ReorderThreshold: 15},
			{ProductID: "PRD-004", Name: "Wool Scarf", Unit: "pcs", TotalStock: 8, ReorderThreshold: 10},
		},
		Staff: []types.StaffMember{
			{ID: "STF-001", Name: "Asha", Status: types.StaffOnline, CurrentWorkload: 1, MaxCapacity: 8},
			{ID: "STF-002", Name: "Ravi", Status: types.StaffOnline, CurrentWorkload: 6.5, MaxCapacity: 8},
			{ID: "STF-003", Name: "Meera", Status: types.StaffOffline, MaxCapacity: 8},
			{ID: "STF-004", Name: "Kiran", Status: types.StaffOnBreak, CurrentWorkload: 2, MaxCapacity: 6},
		},
	}
}

// LoadSeedFile reads seed data from a YAML file
func LoadSeedFile(path string) (SeedData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SeedData{}, fmt.Errorf("store: read seed file: %w", err)
	}
	var seed SeedData
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return SeedData{}, fmt.Errorf("store: parse seed file %s: %w", path, err)
	}
	return seed, nil
}

// Seed inserts the seed inventory and staff in one transaction. Records that
// already break a store invariant are rejected.
func (s *Store) Seed(seed SeedData) error {
	return s.RunInTransaction(func(tx *Tx) error {
		for i := range seed.Inventory {
			item := seed.Inventory[i]
			if item.ReservedStock < 0 || item.ReservedStock > item.TotalStock {
				return &types.ValidationError{Msg: fmt.Sprintf("seed item %s: reserved %d outside [0, %d]", item.ProductID, item.ReservedStock, item.TotalStock)}
			}
			if err := tx.Put(types.KindInventory, &item); err != nil {
				return err
			}
		}
		for i := range seed.Staff {
			member := seed.Staff[i]
			if member.Status == "" {
				member.Status = types.StaffOnline
			}
			if member.CurrentWorkload < 0 || member.CurrentWorkload > member.MaxCapacity {
				return &types.ValidationError{Msg: fmt.Sprintf("seed staff %s: workload %.2f outside [0, %.2f]", member.ID, member.CurrentWorkload, member.MaxCapacity)}
			}
			if err := tx.Put(types.KindStaff, &member); err != nil {
				return err
			}
		}
		return nil
	})
}
