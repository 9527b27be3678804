package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviddelgadop/greencart-backend/internal/database"
	"github.com/daviddelgadop/greencart-backend/internal/models"
	"github.com/daviddelgadop/greencart-backend/internal/services"
)

func TestRewardProgression_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := SetupTestDB(t)

	impact := services.NewImpactService(db)
	inventory := services.NewInventoryService(db)
	rewards := services.NewRewardService(db)
	checkout := services.NewCheckoutService(db, inventory, impact, rewards)

	for _, tier := range database.DefaultRewardTiers() {
		require.NoError(t, db.Create(&tier).Error)
	}

	t.Run("checkout advances progress and grants reached tiers", func(t *testing.T) {
		f := SeedFixture(t, db, 10, 100)

		_, err := checkout.Checkout(f.Customer.ID, &services.CheckoutRequest{
			Items:             []services.CheckoutItemRequest{{BundleID: f.Bundle.ID.String(), Quantity: 2}},
			ShippingAddressID: f.Address.ID.String(),
			BillingAddressID:  f.Address.ID.String(),
			PaymentMethodID:   f.PaymentMethod.ID.String(),
		})
		require.NoError(t, err)

		progress, err := rewards.GetProgress(f.Customer.ID)
		require.NoError(t, err)

		assert.Equal(t, 1, progress.TotalOrders)
		assert.InDelta(t, 6.0, progress.TotalWasteKg, 1e-6)
		assert.InDelta(t, 24.0, progress.TotalSavingsEur, 1e-6)
		// The fixture bundle spans two companies with distinct owners.
		assert.Equal(t, 2, progress.ProducersSupported)

		// 6 kg of waste and 2 producers reach the first waste tier plus
		// both low producer tiers.
		assert.Contains(t, progress.GrantedTitles, "First Rescue")
		assert.Contains(t, progress.GrantedTitles, "Local Supporter")

		granted, err := rewards.GrantedTierIDs(f.Customer.ID)
		require.NoError(t, err)
		assert.Len(t, granted, len(progress.GrantedTitles))
	})

	t.Run("re-applying the same order never duplicates a grant", func(t *testing.T) {
		f := SeedFixture(t, db, 10, 100)

		order, err := checkout.Checkout(f.Customer.ID, &services.CheckoutRequest{
			Items:             []services.CheckoutItemRequest{{BundleID: f.Bundle.ID.String(), Quantity: 1}},
			ShippingAddressID: f.Address.ID.String(),
			BillingAddressID:  f.Address.ID.String(),
			PaymentMethodID:   f.PaymentMethod.ID.String(),
		})
		require.NoError(t, err)

		// Checkout already applied the order once; force a second pass.
		require.NoError(t, rewards.ApplyOrder(order))

		var counts []struct {
			TierID string
			N      int64
		}
		require.NoError(t, db.Model(&models.Reward{}).
			Select("tier_id, COUNT(*) as n").
			Where("user_id = ?", f.Customer.ID).
			Group("tier_id").
			Scan(&counts).Error)

		require.NotEmpty(t, counts)
		for _, row := range counts {
			assert.Equal(t, int64(1), row.N, "tier %s granted more than once", row.TierID)
		}
	})

	t.Run("producer set is a union, not a sum", func(t *testing.T) {
		f := SeedFixture(t, db, 10, 100)

		for i := 0; i < 3; i++ {
			_, err := checkout.Checkout(f.Customer.ID, &services.CheckoutRequest{
				Items:             []services.CheckoutItemRequest{{BundleID: f.Bundle.ID.String(), Quantity: 1}},
				ShippingAddressID: f.Address.ID.String(),
				BillingAddressID:  f.Address.ID.String(),
				PaymentMethodID:   f.PaymentMethod.ID.String(),
			})
			require.NoError(t, err)
		}

		progress, err := rewards.GetProgress(f.Customer.ID)
		require.NoError(t, err)

		assert.Equal(t, 3, progress.TotalOrders)
		assert.Equal(t, 2, progress.ProducersSupported)
	})
}
