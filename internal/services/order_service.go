// internal/services/order_service.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/daviddelgadop/greencart-backend/internal/models"
	"github.com/daviddelgadop/greencart-backend/internal/utils"
)

type OrderService struct {
	db     *gorm.DB
	impact *ImpactService
}

func NewOrderService(db *gorm.DB, impact *ImpactService) *OrderService {
	return &OrderService{db: db, impact: impact}
}

// OrderTotals is the deterministic rollup of an order's item set.
type OrderTotals struct {
	Subtotal            float64
	TotalPrice          float64
	TotalAvoidedWasteKg float64
	TotalAvoidedCO2Kg   float64
	TotalSavings        float64
}

// ComputeOrderTotals is pure: given the same item set and shipping cost it
// always yields the same totals. Totals are always recomputed from scratch,
// never patched incrementally, so corrected items cannot cause drift.
func ComputeOrderTotals(items []models.OrderItem, shippingCost float64) OrderTotals {
	totals := OrderTotals{}
	for i := range items {
		totals.Subtotal += items[i].TotalPrice
		totals.TotalAvoidedWasteKg += items[i].AvoidedWasteKg
		totals.TotalAvoidedCO2Kg += items[i].AvoidedCO2Kg
		totals.TotalSavings += items[i].Savings
	}
	totals.TotalPrice = totals.Subtotal + shippingCost
	return totals
}

func applyTotals(order *models.Order, totals OrderTotals) {
	order.Subtotal = totals.Subtotal
	order.TotalPrice = totals.TotalPrice
	order.TotalAvoidedWasteKg = totals.TotalAvoidedWasteKg
	order.TotalAvoidedCO2Kg = totals.TotalAvoidedCO2Kg
	order.TotalSavings = totals.TotalSavings
}

// ListOrders is scoped to the owning user. uuid.Nil lists every order, which
// the handlers reserve for admins.
func (s *OrderService) ListOrders(userID uuid.UUID, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Order{})
	if userID != uuid.Nil {
		query = query.Where("user_id = ?", userID)
	}

	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var orders []models.Order
	query = utils.ApplySort(query, params, []string{"created_at", "total_price", "status"})
	query = utils.ApplyPagination(query, params)

	if err := query.Preload("Items").Find(&orders).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(orders, total, params)
	return &result, nil
}

func (s *OrderService) GetOrder(userID, orderID uuid.UUID) (*models.Order, error) {
	query := s.db.Preload("Items").Where("id = ?", orderID)
	if userID != uuid.Nil {
		query = query.Where("user_id = ?", userID)
	}

	var order models.Order
	err := query.First(&order).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

type RateOrderRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Note   string `json:"note,omitempty" validate:"max=2000"`
}

// RateOrder records a post-delivery rating. Write-once: a second rating
// attempt is rejected, not overwritten.
func (s *OrderService) RateOrder(userID, orderID uuid.UUID, req *RateOrderRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var order models.Order
	err := s.db.Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderStatusDelivered {
		return nil, ErrOrderNotDelivered
	}
	if order.CustomerRating != nil {
		return nil, ErrAlreadyRated
	}

	// The IS NULL guard makes write-once hold under concurrent requests:
	// whichever update lands second matches zero rows.
	now := time.Now()
	res := s.db.Model(&models.Order{}).
		Where("id = ? AND customer_rating IS NULL", order.ID).
		Updates(map[string]interface{}{
			"customer_rating": req.Rating,
			"customer_note":   req.Note,
			"rated_at":        now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyRated
	}

	order.CustomerRating = &req.Rating
	order.CustomerNote = req.Note
	order.RatedAt = &now

	return &order, nil
}

// RateOrderItem records a per-line rating on a delivered order.
func (s *OrderService) RateOrderItem(userID, orderID, itemID uuid.UUID, req *RateOrderRequest) (*models.OrderItem, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var order models.Order
	err := s.db.Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderStatusDelivered {
		return nil, ErrOrderNotDelivered
	}

	var item models.OrderItem
	err = s.db.Where("id = ? AND order_id = ?", itemID, orderID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderItemNotFound
	}
	if err != nil {
		return nil, err
	}

	if item.CustomerRating != nil {
		return nil, ErrAlreadyRated
	}

	now := time.Now()
	res := s.db.Model(&models.OrderItem{}).
		Where("id = ? AND customer_rating IS NULL", item.ID).
		Updates(map[string]interface{}{
			"customer_rating": req.Rating,
			"customer_note":   req.Note,
			"rated_at":        now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyRated
	}

	item.CustomerRating = &req.Rating
	item.CustomerNote = req.Note
	item.RatedAt = &now

	return &item, nil
}

// RecomputeOrder is the data-fix path: it recomputes each item's numeric
// impact and savings fields and re-rolls the order totals. The frozen
// snapshot is read, never written.
func (s *OrderService) RecomputeOrder(orderID uuid.UUID) (*models.Order, error) {
	var order models.Order

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		for i := range order.Items {
			item := &order.Items[i]

			wasteKg, co2Kg, savings, ok, err := s.recomputeItem(tx, item)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}

			item.AvoidedWasteKg = wasteKg
			item.AvoidedCO2Kg = co2Kg
			item.Savings = savings

			if err := tx.Model(&models.OrderItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
				"avoided_waste_kg": wasteKg,
				"avoided_co2_kg":   co2Kg,
				"savings":          savings,
			}).Error; err != nil {
				return err
			}
		}

		totals := ComputeOrderTotals(order.Items, order.ShippingCost)
		applyTotals(&order, totals)

		return tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
			"subtotal":               totals.Subtotal,
			"total_price":            totals.TotalPrice,
			"total_avoided_waste_kg": totals.TotalAvoidedWasteKg,
			"total_avoided_co2_kg":   totals.TotalAvoidedCO2Kg,
			"total_savings":          totals.TotalSavings,
		}).Error
	})

	if err != nil {
		return nil, err
	}
	return &order, nil
}

// recomputeItem re-derives one line's impact from the live bundle graph and
// its savings from the snapshot prices. Lines whose bundle is gone and whose
// snapshot lacks prices are left untouched.
func (s *OrderService) recomputeItem(tx *gorm.DB, item *models.OrderItem) (wasteKg, co2Kg, savings float64, ok bool, err error) {
	if item.BundleSnapshot != nil {
		savings = LineSavings(item.BundleSnapshot.OriginalPrice, item.BundleSnapshot.DiscountedPrice, item.Quantity)
	} else {
		savings = item.Savings
	}

	if item.BundleID == nil {
		return 0, 0, 0, false, nil
	}

	var bundle models.Bundle
	err = tx.Preload("Components.Product.CatalogEntry").
		First(&bundle, "id = ?", *item.BundleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logrus.WithField("order_item_id", item.ID).Warn("Bundle deleted, cannot recompute impact")
		return 0, 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, 0, false, err
	}

	wasteKg, co2Kg, err = s.impact.LineImpact(tx, &bundle, item.Quantity)
	if err != nil {
		return 0, 0, 0, false, err
	}

	return wasteKg, co2Kg, savings, true, nil
}

// RecomputeZeroImpactOrders finds confirmed or delivered orders whose impact
// totals are stuck at zero and re-runs the data-fix over each of them.
func (s *OrderService) RecomputeZeroImpactOrders() (int, error) {
	var orderIDs []uuid.UUID
	err := s.db.Model(&models.Order{}).
		Where("total_avoided_waste_kg = 0 AND total_avoided_co2_kg = 0").
		Where("status IN ?", []models.OrderStatus{models.OrderStatusConfirmed, models.OrderStatusDelivered}).
		Pluck("id", &orderIDs).Error
	if err != nil {
		return 0, err
	}

	fixed := 0
	for _, id := range orderIDs {
		if _, err := s.RecomputeOrder(id); err != nil {
			logrus.WithError(err).WithField("order_id", id).Error("Failed to recompute order")
			continue
		}
		fixed++
	}

	if fixed > 0 {
		logrus.WithField("count", fixed).Info("Recomputed zero-impact orders")
	}
	return fixed, nil
}
