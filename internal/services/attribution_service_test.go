// internal/services/attribution_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviddelgadop/greencart-backend/internal/config"
	"github.com/daviddelgadop/greencart-backend/internal/models"
)

// twoCompanyOrder builds one order with a single line over a two-company
// bundle: per-bundle quantities 2 and 1, line total 90.
func twoCompanyOrder(companyA, companyB, producerA, producerB uuid.UUID) models.Order {
	bundleID := uuid.New()
	item := models.OrderItem{
		BundleID:       &bundleID,
		Quantity:       1,
		TotalPrice:     90,
		AvoidedWasteKg: 3,
		AvoidedCO2Kg:   9,
		BundleSnapshot: &models.BundleSnapshot{
			SchemaVersion: models.SnapshotSchemaVersion,
			BundleID:      bundleID,
			Components: []models.SnapshotComponent{
				{
					ProductID:         uuid.New(),
					ProductTitle:      "Apples",
					PerBundleQuantity: 2,
					UnitPrice:         3,
					CompanyID:         &companyA,
					CompanyName:       "Company A",
					ProducerID:        &producerA,
					ProducerName:      "Producer A",
				},
				{
					ProductID:         uuid.New(),
					ProductTitle:      "Honey",
					PerBundleQuantity: 1,
					UnitPrice:         12,
					CompanyID:         &companyB,
					CompanyName:       "Company B",
					ProducerID:        &producerB,
					ProducerName:      "Producer B",
				},
			},
		},
	}

	order := models.Order{Items: []models.OrderItem{item}}
	order.CreatedAt = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	return order
}

func TestReconstructQuantityWeightedShares(t *testing.T) {
	companyA, companyB := uuid.New(), uuid.New()
	producerA, producerB := uuid.New(), uuid.New()
	orders := []models.Order{twoCompanyOrder(companyA, companyB, producerA, producerB)}

	report, err := Reconstruct(orders, AttributionOptions{GroupBy: GroupByCompany}, nil)
	require.NoError(t, err)

	require.Len(t, report.Rows, 2)
	assert.Equal(t, companyA.String(), report.Rows[0].Key)
	assert.InDelta(t, 60.0, report.Rows[0].Revenue, 1e-9)
	assert.Equal(t, companyB.String(), report.Rows[1].Key)
	assert.InDelta(t, 30.0, report.Rows[1].Revenue, 1e-9)

	// Shares sum exactly to the line total: nothing is lost or invented.
	assert.InDelta(t, 90.0, report.Rows[0].Revenue+report.Rows[1].Revenue, 1e-9)
	assert.InDelta(t, 3.0, report.Rows[0].WasteKg+report.Rows[1].WasteKg, 1e-9)
	assert.Zero(t, report.UnattributedRevenue)
}

func TestReconstructPriceWeightedShares(t *testing.T) {
	companyA, companyB := uuid.New(), uuid.New()
	orders := []models.Order{twoCompanyOrder(companyA, companyB, uuid.New(), uuid.New())}

	report, err := Reconstruct(orders, AttributionOptions{
		GroupBy:   GroupByCompany,
		Weighting: WeightingPrice,
	}, nil)
	require.NoError(t, err)

	// Price weights: 2×3=6 vs 1×12=12, so the split flips to 30/60.
	require.Len(t, report.Rows, 2)
	assert.Equal(t, companyB.String(), report.Rows[0].Key)
	assert.InDelta(t, 60.0, report.Rows[0].Revenue, 1e-9)
	assert.InDelta(t, 30.0, report.Rows[1].Revenue, 1e-9)
	assert.InDelta(t, 90.0, report.Rows[0].Revenue+report.Rows[1].Revenue, 1e-9)
}

func TestReconstructDeterministic(t *testing.T) {
	companyA, companyB := uuid.New(), uuid.New()
	orders := []models.Order{twoCompanyOrder(companyA, companyB, uuid.New(), uuid.New())}

	first, err := Reconstruct(orders, AttributionOptions{GroupBy: GroupByProducer}, nil)
	require.NoError(t, err)
	second, err := Reconstruct(orders, AttributionOptions{GroupBy: GroupByProducer}, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReconstructBundleLevelSnapshotFallback(t *testing.T) {
	companyID := uuid.New()
	producerID := uuid.New()
	bundleID := uuid.New()

	// A version 1 record: components carry quantities but identity only
	// lives at the bundle level.
	order := models.Order{Items: []models.OrderItem{{
		BundleID:   &bundleID,
		Quantity:   1,
		TotalPrice: 45,
		BundleSnapshot: &models.BundleSnapshot{
			SchemaVersion: 1,
			BundleID:      bundleID,
			CompanyID:     &companyID,
			CompanyName:   "Legacy Farm",
			ProducerID:    &producerID,
			ProducerName:  "Jean",
			Components: []models.SnapshotComponent{
				{ProductID: uuid.New(), PerBundleQuantity: 3},
				{ProductID: uuid.New(), PerBundleQuantity: 1},
			},
		},
	}}}

	report, err := Reconstruct([]models.Order{order}, AttributionOptions{GroupBy: GroupByProducer}, nil)
	require.NoError(t, err)

	require.Len(t, report.Rows, 1)
	assert.Equal(t, producerID.String(), report.Rows[0].Key)
	assert.Equal(t, "Jean", report.Rows[0].Label)
	assert.InDelta(t, 45.0, report.Rows[0].Revenue, 1e-9)
	assert.Zero(t, report.UnattributedRevenue)
}

func TestReconstructLiveGraphFallback(t *testing.T) {
	bundle := snapshotFixtureBundle()
	bundleID := bundle.ID

	order := models.Order{Items: []models.OrderItem{{
		BundleID:   &bundleID,
		Quantity:   2,
		TotalPrice: 90,
	}}}

	loaderCalls := 0
	loader := func(id uuid.UUID) (*models.Bundle, error) {
		loaderCalls++
		require.Equal(t, bundleID, id)
		return bundle, nil
	}

	report, err := Reconstruct([]models.Order{order}, AttributionOptions{GroupBy: GroupByCompany}, loader)
	require.NoError(t, err)

	assert.Equal(t, 1, loaderCalls)
	require.Len(t, report.Rows, 2)
	assert.InDelta(t, 60.0, report.Rows[0].Revenue, 1e-9)
	assert.InDelta(t, 30.0, report.Rows[1].Revenue, 1e-9)
}

func TestReconstructUnresolvedLineIsUnattributed(t *testing.T) {
	// No snapshot and the bundle is gone: the line stays visible as an
	// attribution gap, never assigned to a default bucket.
	order := models.Order{Items: []models.OrderItem{{
		Quantity:       1,
		TotalPrice:     25,
		AvoidedWasteKg: 1.5,
	}}}

	report, err := Reconstruct([]models.Order{order}, AttributionOptions{}, nil)
	require.NoError(t, err)

	assert.Empty(t, report.Rows)
	assert.InDelta(t, 25.0, report.UnattributedRevenue, 1e-9)
	assert.InDelta(t, 1.5, report.UnattributedWasteKg, 1e-9)
	assert.InDelta(t, 25.0, report.TotalRevenue, 1e-9)
}

func TestReconstructPartiallyUnattributedComponent(t *testing.T) {
	companyID := uuid.New()
	bundleID := uuid.New()

	order := models.Order{Items: []models.OrderItem{{
		BundleID:   &bundleID,
		Quantity:   1,
		TotalPrice: 90,
		BundleSnapshot: &models.BundleSnapshot{
			SchemaVersion: models.SnapshotSchemaVersion,
			BundleID:      bundleID,
			Components: []models.SnapshotComponent{
				{ProductID: uuid.New(), PerBundleQuantity: 2, CompanyID: &companyID, CompanyName: "Known"},
				{ProductID: uuid.New(), PerBundleQuantity: 1},
			},
		},
	}}}

	report, err := Reconstruct([]models.Order{order}, AttributionOptions{GroupBy: GroupByCompany}, nil)
	require.NoError(t, err)

	require.Len(t, report.Rows, 1)
	assert.InDelta(t, 60.0, report.Rows[0].Revenue, 1e-9)
	assert.InDelta(t, 30.0, report.UnattributedRevenue, 1e-9)
	assert.InDelta(t, report.TotalRevenue, report.Rows[0].Revenue+report.UnattributedRevenue, 1e-9)
}

func TestReconstructGroupByMonth(t *testing.T) {
	companyA, companyB := uuid.New(), uuid.New()
	orders := []models.Order{twoCompanyOrder(companyA, companyB, uuid.New(), uuid.New())}

	report, err := Reconstruct(orders, AttributionOptions{GroupBy: GroupByMonth}, nil)
	require.NoError(t, err)

	require.Len(t, report.Rows, 1)
	assert.Equal(t, "2026-03", report.Rows[0].Key)
	assert.InDelta(t, 90.0, report.Rows[0].Revenue, 1e-9)
}

func TestResolveComponentsPrecedence(t *testing.T) {
	bundleID := uuid.New()
	companyID := uuid.New()

	item := &models.OrderItem{
		BundleID: &bundleID,
		BundleSnapshot: &models.BundleSnapshot{
			SchemaVersion: models.SnapshotSchemaVersion,
			Components: []models.SnapshotComponent{
				{ProductID: uuid.New(), PerBundleQuantity: 1, CompanyID: &companyID},
			},
		},
	}

	// The snapshot wins even when a live loader is available.
	loader := func(uuid.UUID) (*models.Bundle, error) {
		t.Fatal("loader must not be called when a snapshot exists")
		return nil, nil
	}

	resolved, source, err := ResolveComponents(item, loader)
	require.NoError(t, err)
	assert.Equal(t, SourceSnapshotV2, source)
	require.Len(t, resolved, 1)
	assert.Equal(t, SourceSnapshotV2, resolved[0].Source)
}

func TestResolveComponentsNothingToResolve(t *testing.T) {
	resolved, source, err := ResolveComponents(&models.OrderItem{}, nil)
	require.NoError(t, err)
	assert.Equal(t, SourceUnresolved, source)
	assert.Empty(t, resolved)
}

func TestReportValidation(t *testing.T) {
	// Invalid enum values are rejected before any query runs, so a nil DB
	// is safe here.
	svc := NewAttributionService(nil, testConfig())

	_, err := svc.Report(AttributionQuery{GroupBy: "species"})
	assert.Error(t, err)

	_, err = svc.Report(AttributionQuery{Weighting: "by-vibes"})
	assert.Error(t, err)
}

func testConfig() *config.Config {
	return &config.Config{
		Reporting: config.ReportingConfig{DefaultWeighting: "quantity"},
	}
}
