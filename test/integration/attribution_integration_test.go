package integration

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviddelgadop/greencart-backend/internal/config"
	"github.com/daviddelgadop/greencart-backend/internal/models"
	"github.com/daviddelgadop/greencart-backend/internal/services"
)

func TestAttributionReporting_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := SetupTestDB(t)

	cfg := &config.Config{Reporting: config.ReportingConfig{DefaultWeighting: "quantity"}}
	impact := services.NewImpactService(db)
	inventory := services.NewInventoryService(db)
	rewards := services.NewRewardService(db)
	checkout := services.NewCheckoutService(db, inventory, impact, rewards)
	attribution := services.NewAttributionService(db, cfg)

	t.Run("report splits committed orders across producers", func(t *testing.T) {
		f := SeedFixture(t, db, 10, 100)

		order, err := checkout.Checkout(f.Customer.ID, &services.CheckoutRequest{
			Items:             []services.CheckoutItemRequest{{BundleID: f.Bundle.ID.String(), Quantity: 1}},
			ShippingAddressID: f.Address.ID.String(),
			BillingAddressID:  f.Address.ID.String(),
			PaymentMethodID:   f.PaymentMethod.ID.String(),
		})
		require.NoError(t, err)

		report, err := attribution.Report(services.AttributionQuery{GroupBy: "producer"})
		require.NoError(t, err)

		require.GreaterOrEqual(t, len(report.Rows), 2)

		var marieRevenue, paulRevenue float64
		for _, row := range report.Rows {
			switch row.Label {
			case "Marie":
				marieRevenue += row.Revenue
			case "Paul":
				paulRevenue += row.Revenue
			}
		}

		// Per-bundle quantities 2 and 1 over a 18.00 line.
		assert.InDelta(t, 12.0, marieRevenue, 1e-6)
		assert.InDelta(t, 6.0, paulRevenue, 1e-6)
		assert.InDelta(t, order.Subtotal, marieRevenue+paulRevenue, 1e-6)
		assert.Zero(t, report.UnattributedRevenue)
	})

	t.Run("report survives deletion of every live row", func(t *testing.T) {
		db2 := SetupTestDB(t)
		attribution2 := services.NewAttributionService(db2, cfg)
		checkout2 := services.NewCheckoutService(db2,
			services.NewInventoryService(db2),
			services.NewImpactService(db2),
			services.NewRewardService(db2))

		f := SeedFixture(t, db2, 10, 100)

		_, err := checkout2.Checkout(f.Customer.ID, &services.CheckoutRequest{
			Items:             []services.CheckoutItemRequest{{BundleID: f.Bundle.ID.String(), Quantity: 1}},
			ShippingAddressID: f.Address.ID.String(),
			BillingAddressID:  f.Address.ID.String(),
			PaymentMethodID:   f.PaymentMethod.ID.String(),
		})
		require.NoError(t, err)

		// Wipe the live graph; only snapshots remain.
		require.NoError(t, db2.Where("bundle_id = ?", f.Bundle.ID).Delete(&models.BundleComponent{}).Error)
		require.NoError(t, db2.Delete(&models.Bundle{}, "id = ?", f.Bundle.ID).Error)
		companyIDs := []uuid.UUID{f.CompanyA.ID, f.CompanyB.ID}
		require.NoError(t, db2.Delete(&models.Product{}, "company_id IN ?", companyIDs).Error)
		require.NoError(t, db2.Delete(&models.Company{}, "id IN ?", companyIDs).Error)

		report, err := attribution2.Report(services.AttributionQuery{GroupBy: "company"})
		require.NoError(t, err)

		require.Len(t, report.Rows, 2)
		assert.Equal(t, "Ferme du Verger", report.Rows[0].Label)
		assert.InDelta(t, 12.0, report.Rows[0].Revenue, 1e-6)
		assert.Zero(t, report.UnattributedRevenue)
	})
}
