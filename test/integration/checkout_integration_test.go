package integration

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviddelgadop/greencart-backend/internal/models"
	"github.com/daviddelgadop/greencart-backend/internal/services"
)

func TestCheckout_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := SetupTestDB(t)

	impact := services.NewImpactService(db)
	inventory := services.NewInventoryService(db)
	rewards := services.NewRewardService(db)
	checkout := services.NewCheckoutService(db, inventory, impact, rewards)

	t.Run("successful checkout reserves stock and freezes snapshot", func(t *testing.T) {
		f := SeedFixture(t, db, 5, 50)

		order, err := checkout.Checkout(f.Customer.ID, &services.CheckoutRequest{
			Items:             []services.CheckoutItemRequest{{BundleID: f.Bundle.ID.String(), Quantity: 2}},
			ShippingAddressID: f.Address.ID.String(),
			BillingAddressID:  f.Address.ID.String(),
			PaymentMethodID:   f.PaymentMethod.ID.String(),
			ShippingCost:      4.5,
		})
		require.NoError(t, err)
		require.Len(t, order.Items, 1)

		assert.Equal(t, models.OrderStatusConfirmed, order.Status)
		assert.Len(t, order.OrderCode, 10)
		assert.InDelta(t, 36.0, order.Subtotal, 1e-6)
		assert.InDelta(t, 40.5, order.TotalPrice, 1e-6)
		assert.InDelta(t, 24.0, order.TotalSavings, 1e-6)

		// Components: 2 kg apples + 1 kg pears per bundle, 2 bundles, base
		// quantity 1 kg, 1 kg waste / 2.5 kg CO2 per base unit.
		assert.InDelta(t, 6.0, order.TotalAvoidedWasteKg, 1e-6)
		assert.InDelta(t, 15.0, order.TotalAvoidedCO2Kg, 1e-6)

		var bundle models.Bundle
		require.NoError(t, db.First(&bundle, "id = ?", f.Bundle.ID).Error)
		assert.Equal(t, 3, bundle.Stock)
		assert.Equal(t, int64(2), bundle.SoldBundles)

		var productA, productB models.Product
		require.NoError(t, db.First(&productA, "id = ?", f.ProductA.ID).Error)
		require.NoError(t, db.First(&productB, "id = ?", f.ProductB.ID).Error)
		assert.Equal(t, 46, productA.Stock)
		assert.Equal(t, 48, productB.Stock)

		snapshot := order.Items[0].BundleSnapshot
		require.NotNil(t, snapshot)
		assert.Equal(t, models.SnapshotSchemaVersion, snapshot.SchemaVersion)
		assert.Equal(t, 5, snapshot.StockBefore)
		assert.Equal(t, 3, snapshot.StockAfter)
		require.Len(t, snapshot.Components, 2)
		assert.NotNil(t, snapshot.Components[0].CompanyID)
		assert.NotNil(t, snapshot.Components[0].ProducerID)

		require.NotNil(t, order.ShippingAddressSnapshot)
		assert.Equal(t, "Lyon", order.ShippingAddressSnapshot.City)
		require.NotNil(t, order.PaymentMethodSnapshot)
		assert.Equal(t, "•••• 4242", order.PaymentMethodSnapshot.Digits)
	})

	t.Run("buying out the bundle flips it to out of stock", func(t *testing.T) {
		f := SeedFixture(t, db, 5, 100)

		_, err := checkout.Checkout(f.Customer.ID, &services.CheckoutRequest{
			Items:             []services.CheckoutItemRequest{{BundleID: f.Bundle.ID.String(), Quantity: 5}},
			ShippingAddressID: f.Address.ID.String(),
			BillingAddressID:  f.Address.ID.String(),
			PaymentMethodID:   f.PaymentMethod.ID.String(),
		})
		require.NoError(t, err)

		var bundle models.Bundle
		require.NoError(t, db.First(&bundle, "id = ?", f.Bundle.ID).Error)
		assert.Equal(t, 0, bundle.Stock)
		assert.Equal(t, models.BundleStatusOutOfStock, bundle.Status)
	})

	t.Run("insufficient component stock aborts the whole checkout", func(t *testing.T) {
		// Bundle stock is ample but apples cannot cover 3 bundles × 2 kg.
		f := SeedFixture(t, db, 10, 5)

		_, err := checkout.Checkout(f.Customer.ID, &services.CheckoutRequest{
			Items:             []services.CheckoutItemRequest{{BundleID: f.Bundle.ID.String(), Quantity: 3}},
			ShippingAddressID: f.Address.ID.String(),
			BillingAddressID:  f.Address.ID.String(),
			PaymentMethodID:   f.PaymentMethod.ID.String(),
		})

		var conflict *services.StockConflictError
		require.True(t, errors.As(err, &conflict))
		require.Len(t, conflict.Products, 1)
		assert.Equal(t, f.ProductA.ID, conflict.Products[0].ProductID)
		assert.Equal(t, 5, conflict.Products[0].StockBefore)
		assert.Equal(t, -1, conflict.Products[0].StockAfter)
		assert.Equal(t, []int{2}, conflict.Products[0].PerBundleQuantities)

		// Nothing was decremented anywhere.
		var bundle models.Bundle
		require.NoError(t, db.First(&bundle, "id = ?", f.Bundle.ID).Error)
		assert.Equal(t, 10, bundle.Stock)

		var productA models.Product
		require.NoError(t, db.First(&productA, "id = ?", f.ProductA.ID).Error)
		assert.Equal(t, 5, productA.Stock)

		var orderCount int64
		require.NoError(t, db.Model(&models.Order{}).Where("user_id = ?", f.Customer.ID).Count(&orderCount).Error)
		assert.Zero(t, orderCount)
	})

	t.Run("no oversell under concurrent checkouts", func(t *testing.T) {
		const stock = 5
		const attempts = 8

		f := SeedFixture(t, db, stock, 1000)

		var wg sync.WaitGroup
		results := make(chan error, attempts)

		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := checkout.Checkout(f.Customer.ID, &services.CheckoutRequest{
					Items:             []services.CheckoutItemRequest{{BundleID: f.Bundle.ID.String(), Quantity: 1}},
					ShippingAddressID: f.Address.ID.String(),
					BillingAddressID:  f.Address.ID.String(),
					PaymentMethodID:   f.PaymentMethod.ID.String(),
				})
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		successes, conflicts := 0, 0
		for err := range results {
			if err == nil {
				successes++
				continue
			}
			var conflict *services.StockConflictError
			require.True(t, errors.As(err, &conflict), "unexpected error: %v", err)
			conflicts++
		}

		assert.Equal(t, stock, successes)
		assert.Equal(t, attempts-stock, conflicts)

		var bundle models.Bundle
		require.NoError(t, db.First(&bundle, "id = ?", f.Bundle.ID).Error)
		assert.Equal(t, 0, bundle.Stock)
		assert.Equal(t, models.BundleStatusOutOfStock, bundle.Status)
	})

	t.Run("snapshot survives later edits to live rows", func(t *testing.T) {
		f := SeedFixture(t, db, 5, 50)

		order, err := checkout.Checkout(f.Customer.ID, &services.CheckoutRequest{
			Items:             []services.CheckoutItemRequest{{BundleID: f.Bundle.ID.String(), Quantity: 1}},
			ShippingAddressID: f.Address.ID.String(),
			BillingAddressID:  f.Address.ID.String(),
			PaymentMethodID:   f.PaymentMethod.ID.String(),
		})
		require.NoError(t, err)

		require.NoError(t, db.Model(&models.Bundle{}).Where("id = ?", f.Bundle.ID).
			Update("title", "Renamed").Error)
		require.NoError(t, db.Model(&models.Product{}).Where("id = ?", f.ProductA.ID).
			Update("title", "Renamed too").Error)
		require.NoError(t, db.Model(&models.Company{}).Where("id = ?", f.CompanyA.ID).
			Update("name", "Acquired Corp").Error)

		var item models.OrderItem
		require.NoError(t, db.First(&item, "order_id = ?", order.ID).Error)
		require.NotNil(t, item.BundleSnapshot)

		assert.Equal(t, "Rescue Basket", item.BundleSnapshot.Title)
		assert.Equal(t, "Apples", item.BundleSnapshot.Components[0].ProductTitle)
		assert.Equal(t, "Ferme du Verger", item.BundleSnapshot.Components[0].CompanyName)
	})

	t.Run("unknown bundle fails before any stock is touched", func(t *testing.T) {
		f := SeedFixture(t, db, 5, 50)

		_, err := checkout.Checkout(f.Customer.ID, &services.CheckoutRequest{
			Items: []services.CheckoutItemRequest{
				{BundleID: f.Bundle.ID.String(), Quantity: 1},
				{BundleID: "00000000-0000-0000-0000-00000000dead", Quantity: 1},
			},
			ShippingAddressID: f.Address.ID.String(),
			BillingAddressID:  f.Address.ID.String(),
			PaymentMethodID:   f.PaymentMethod.ID.String(),
		})
		require.ErrorIs(t, err, services.ErrBundleNotFound)

		var bundle models.Bundle
		require.NoError(t, db.First(&bundle, "id = ?", f.Bundle.ID).Error)
		assert.Equal(t, 5, bundle.Stock)
	})
}
