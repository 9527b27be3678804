// internal/services/inventory_service.go
package services

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/daviddelgadop/greencart-backend/internal/models"
)

// BundleDemand is one (bundle, quantity) line of a checkout.
type BundleDemand struct {
	BundleID uuid.UUID
	Quantity int
}

// ShortProduct describes one component product that cannot cover the
// checkout's aggregated demand. StockAfter is the hypothetical stock after
// the decrement; a negative value shows the shortfall. PerBundleQuantities
// lists every distinct per-bundle quantity that contributed, since bundles in
// the same checkout may carry the product at different quantities.
type ShortProduct struct {
	ProductID           uuid.UUID `json:"product_id"`
	Title               string    `json:"title"`
	StockBefore         int       `json:"stock_before"`
	StockAfter          int       `json:"stock_after"`
	PerBundleQuantities []int     `json:"per_bundle_quantities"`
}

type ShortBundle struct {
	BundleID    uuid.UUID `json:"bundle_id"`
	Title       string    `json:"title"`
	StockBefore int       `json:"stock_before"`
	StockAfter  int       `json:"stock_after"`
	Requested   int       `json:"requested"`
}

// StockConflictError aborts the whole checkout. It lists every short row, not
// just the first one found.
type StockConflictError struct {
	Detail   string         `json:"detail"`
	Bundles  []ShortBundle  `json:"bundles,omitempty"`
	Products []ShortProduct `json:"products,omitempty"`
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("%s (%d bundles, %d products short)", e.Detail, len(e.Bundles), len(e.Products))
}

// ReservedBundle is one bundle line after a successful reservation, with the
// full component graph loaded for snapshot and impact computation.
type ReservedBundle struct {
	Bundle      *models.Bundle
	Quantity    int
	StockBefore int
	StockAfter  int
}

type Reservation struct {
	Bundles []ReservedBundle
}

// InventoryService validates and atomically decrements bundle stock and every
// nested component-product stock for one checkout.
type InventoryService struct {
	db *gorm.DB
}

func NewInventoryService(db *gorm.DB) *InventoryService {
	return &InventoryService{db: db}
}

// Reserve must run inside the caller's transaction. Bundle rows and then
// component product rows are locked in ascending id order so that concurrent
// checkouts over overlapping bundles serialize instead of deadlocking.
// Any shortage fails the entire reservation with a *StockConflictError and no
// stock is written.
func (s *InventoryService) Reserve(tx *gorm.DB, demands []BundleDemand) (*Reservation, error) {
	merged, err := mergeDemands(demands)
	if err != nil {
		return nil, err
	}

	bundleIDs := make([]uuid.UUID, 0, len(merged))
	for id := range merged {
		bundleIDs = append(bundleIDs, id)
	}
	sort.Slice(bundleIDs, func(i, j int) bool {
		return bundleIDs[i].String() < bundleIDs[j].String()
	})

	// First lock level: all bundle rows of the checkout, ascending id.
	var lockedBundles []models.Bundle
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", bundleIDs).
		Order("id ASC").
		Find(&lockedBundles).Error; err != nil {
		return nil, err
	}

	if len(lockedBundles) != len(bundleIDs) {
		found := make(map[uuid.UUID]bool, len(lockedBundles))
		for i := range lockedBundles {
			found[lockedBundles[i].ID] = true
		}
		for _, id := range bundleIDs {
			if !found[id] {
				return nil, fmt.Errorf("%w: bundle %s", ErrBundleNotFound, id)
			}
		}
	}

	for i := range lockedBundles {
		if lockedBundles[i].Status != models.BundleStatusPublished {
			return nil, fmt.Errorf("%w: bundle %s is %s", ErrBundleNotAvailable, lockedBundles[i].ID, lockedBundles[i].Status)
		}
	}

	// Load the component graph for the locked bundles. The rows feeding
	// snapshots are read after the bundle locks are held.
	var bundles []models.Bundle
	if err := tx.
		Preload("Components.Product.CatalogEntry.Category").
		Preload("Components.Product.Company.Owner").
		Preload("Components.Product.Company.Address.City.Department.Region").
		Where("id IN ?", bundleIDs).
		Order("id ASC").
		Find(&bundles).Error; err != nil {
		return nil, err
	}

	productDemand, productPerBundle := aggregateComponentDemand(bundles, merged)

	productIDs := make([]uuid.UUID, 0, len(productDemand))
	for id := range productDemand {
		productIDs = append(productIDs, id)
	}
	sort.Slice(productIDs, func(i, j int) bool {
		return productIDs[i].String() < productIDs[j].String()
	})

	// Second lock level: every distinct component product, ascending id.
	var products []models.Product
	if len(productIDs) > 0 {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", productIDs).
			Order("id ASC").
			Find(&products).Error; err != nil {
			return nil, err
		}
	}

	productByID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		productByID[products[i].ID] = &products[i]
	}

	// Validate everything before writing anything.
	conflict := &StockConflictError{Detail: "Insufficient stock"}

	for i := range bundles {
		qty := merged[bundles[i].ID]
		if bundles[i].Stock < qty {
			conflict.Bundles = append(conflict.Bundles, ShortBundle{
				BundleID:    bundles[i].ID,
				Title:       bundles[i].Title,
				StockBefore: bundles[i].Stock,
				StockAfter:  bundles[i].Stock - qty,
				Requested:   qty,
			})
		}
	}

	for _, id := range productIDs {
		product, ok := productByID[id]
		if !ok {
			return nil, fmt.Errorf("%w: product %s", ErrProductNotFound, id)
		}
		required := productDemand[id]
		if product.Stock < required {
			conflict.Products = append(conflict.Products, ShortProduct{
				ProductID:           id,
				Title:               product.Title,
				StockBefore:         product.Stock,
				StockAfter:          product.Stock - required,
				PerBundleQuantities: productPerBundle[id],
			})
		}
	}

	if len(conflict.Bundles) > 0 || len(conflict.Products) > 0 {
		return nil, conflict
	}

	// All checks passed under the held locks: decrement.
	reservation := &Reservation{}

	for i := range bundles {
		bundle := &bundles[i]
		qty := merged[bundle.ID]
		stockBefore := bundle.Stock
		stockAfter := stockBefore - qty

		bundle.Stock = stockAfter

		updates := map[string]interface{}{
			"stock":        stockAfter,
			"sold_bundles": gorm.Expr("sold_bundles + ?", qty),
		}
		if bundle.IsOutOfStock() {
			bundle.Status = models.BundleStatusOutOfStock
			updates["status"] = models.BundleStatusOutOfStock
		}

		if err := tx.Model(&models.Bundle{}).Where("id = ?", bundle.ID).Updates(updates).Error; err != nil {
			return nil, err
		}

		reservation.Bundles = append(reservation.Bundles, ReservedBundle{
			Bundle:      bundle,
			Quantity:    qty,
			StockBefore: stockBefore,
			StockAfter:  stockAfter,
		})
	}

	for _, id := range productIDs {
		required := productDemand[id]
		if err := tx.Model(&models.Product{}).Where("id = ?", id).Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", required),
			"sold_units": gorm.Expr("sold_units + ?", required),
		}).Error; err != nil {
			return nil, err
		}
	}

	return reservation, nil
}

// aggregateComponentDemand sums each product's requirement across every
// bundle line: two bundles sharing a product are checked against their
// combined demand, not one at a time. The second map records the distinct
// per-bundle quantities behind each product for conflict reporting.
func aggregateComponentDemand(bundles []models.Bundle, merged map[uuid.UUID]int) (demand map[uuid.UUID]int, perBundle map[uuid.UUID][]int) {
	demand = make(map[uuid.UUID]int)
	perBundle = make(map[uuid.UUID][]int)

	for i := range bundles {
		qty := merged[bundles[i].ID]
		for j := range bundles[i].Components {
			component := &bundles[i].Components[j]
			demand[component.ProductID] += component.Quantity * qty
			perBundle[component.ProductID] = appendQuantity(perBundle[component.ProductID], component.Quantity)
		}
	}
	return demand, perBundle
}

func appendQuantity(quantities []int, q int) []int {
	for _, existing := range quantities {
		if existing == q {
			return quantities
		}
	}
	quantities = append(quantities, q)
	sort.Ints(quantities)
	return quantities
}

func mergeDemands(demands []BundleDemand) (map[uuid.UUID]int, error) {
	if len(demands) == 0 {
		return nil, ErrEmptyCheckout
	}

	merged := make(map[uuid.UUID]int, len(demands))
	for _, d := range demands {
		if d.Quantity <= 0 {
			return nil, fmt.Errorf("%w: bundle %s quantity %d", ErrInvalidQuantity, d.BundleID, d.Quantity)
		}
		merged[d.BundleID] += d.Quantity
	}
	return merged, nil
}
