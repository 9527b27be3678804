// internal/services/checkout_service.go
package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/daviddelgadop/greencart-backend/internal/database"
	"github.com/daviddelgadop/greencart-backend/internal/models"
	"github.com/daviddelgadop/greencart-backend/internal/utils"
)

type CheckoutItemRequest struct {
	BundleID string `json:"bundle_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

type CheckoutRequest struct {
	Items             []CheckoutItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddressID string                `json:"shipping_address_id" validate:"required,uuid"`
	BillingAddressID  string                `json:"billing_address_id" validate:"required,uuid"`
	PaymentMethodID   string                `json:"payment_method_id" validate:"required,uuid"`
	ShippingCost      float64               `json:"shipping_cost" validate:"min=0"`
}

// CheckoutService runs one checkout as a single serializable unit of work:
// reserve stock, compute impact and savings, freeze snapshots, persist the
// order. Reward progression runs after the order transaction has committed.
type CheckoutService struct {
	db        *gorm.DB
	inventory *InventoryService
	impact    *ImpactService
	rewards   *RewardService
}

func NewCheckoutService(db *gorm.DB, inventory *InventoryService, impact *ImpactService, rewards *RewardService) *CheckoutService {
	return &CheckoutService{
		db:        db,
		inventory: inventory,
		impact:    impact,
		rewards:   rewards,
	}
}

func (s *CheckoutService) Checkout(userID uuid.UUID, req *CheckoutRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	demands := make([]BundleDemand, 0, len(req.Items))
	for _, item := range req.Items {
		bundleID, err := uuid.Parse(item.BundleID)
		if err != nil {
			return nil, ErrBundleNotFound
		}
		demands = append(demands, BundleDemand{BundleID: bundleID, Quantity: item.Quantity})
	}

	shippingAddress, err := s.resolveAddress(userID, req.ShippingAddressID)
	if err != nil {
		return nil, err
	}
	billingAddress, err := s.resolveAddress(userID, req.BillingAddressID)
	if err != nil {
		return nil, err
	}
	paymentMethod, err := s.resolvePaymentMethod(userID, req.PaymentMethodID)
	if err != nil {
		return nil, err
	}

	var order models.Order

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		reservation, err := s.inventory.Reserve(tx, demands)
		if err != nil {
			return err
		}

		shippingAddressID := shippingAddress.ID
		billingAddressID := billingAddress.ID
		paymentMethodID := paymentMethod.ID

		order = models.Order{
			UserID:                  userID,
			OrderCode:               models.NewOrderCode(),
			Status:                  models.OrderStatusConfirmed,
			ShippingCost:            req.ShippingCost,
			ShippingAddressID:       &shippingAddressID,
			BillingAddressID:        &billingAddressID,
			PaymentMethodID:         &paymentMethodID,
			ShippingAddressSnapshot: BuildAddressSnapshot(shippingAddress),
			BillingAddressSnapshot:  BuildAddressSnapshot(billingAddress),
			PaymentMethodSnapshot:   BuildPaymentMethodSnapshot(paymentMethod),
		}

		items := make([]models.OrderItem, 0, len(reservation.Bundles))
		for _, reserved := range reservation.Bundles {
			bundle := reserved.Bundle

			wasteKg, co2Kg, err := s.impact.LineImpact(tx, bundle, reserved.Quantity)
			if err != nil {
				return err
			}

			snapshot := BuildBundleSnapshot(reserved)
			bundleID := bundle.ID

			items = append(items, models.OrderItem{
				BundleID:       &bundleID,
				Quantity:       reserved.Quantity,
				TotalPrice:     bundle.DiscountedPrice * float64(reserved.Quantity),
				AvoidedWasteKg: wasteKg,
				AvoidedCO2Kg:   co2Kg,
				Savings:        LineSavings(bundle.OriginalPrice, bundle.DiscountedPrice, reserved.Quantity),
				BundleSnapshot: &snapshot,
			})
		}

		totals := ComputeOrderTotals(items, req.ShippingCost)
		applyTotals(&order, totals)

		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}

		order.Items = items
		return nil
	})

	if err != nil {
		return nil, err
	}

	// Reward progression runs outside the checkout transaction: a failure
	// here must not undo the committed order.
	if err := s.rewards.ApplyOrder(&order); err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Error("Reward progression failed")
	}

	logrus.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"order_code": order.OrderCode,
		"user_id":    userID,
		"items":      len(order.Items),
		"total":      order.TotalPrice,
	}).Info("Order created")

	return &order, nil
}

func (s *CheckoutService) resolveAddress(userID uuid.UUID, rawID string) (*models.Address, error) {
	addressID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrAddressNotFound
	}

	var address models.Address
	err = s.db.Preload("City.Department.Region").
		Where("id = ? AND user_id = ?", addressID, userID).
		First(&address).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, err
	}
	return &address, nil
}

func (s *CheckoutService) resolvePaymentMethod(userID uuid.UUID, rawID string) (*models.PaymentMethod, error) {
	paymentMethodID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrPaymentNotFound
	}

	var paymentMethod models.PaymentMethod
	err = s.db.Where("id = ? AND user_id = ?", paymentMethodID, userID).
		First(&paymentMethod).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &paymentMethod, nil
}
