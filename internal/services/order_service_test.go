// internal/services/order_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daviddelgadop/greencart-backend/internal/models"
)

func TestComputeOrderTotals(t *testing.T) {
	items := []models.OrderItem{
		{TotalPrice: 12.5, AvoidedWasteKg: 1.2, AvoidedCO2Kg: 3.4, Savings: 5.0},
		{TotalPrice: 30.0, AvoidedWasteKg: 0.8, AvoidedCO2Kg: 1.6, Savings: 10.0},
	}

	totals := ComputeOrderTotals(items, 4.5)

	assert.InDelta(t, 42.5, totals.Subtotal, 1e-9)
	assert.InDelta(t, 47.0, totals.TotalPrice, 1e-9)
	assert.InDelta(t, 2.0, totals.TotalAvoidedWasteKg, 1e-9)
	assert.InDelta(t, 5.0, totals.TotalAvoidedCO2Kg, 1e-9)
	assert.InDelta(t, 15.0, totals.TotalSavings, 1e-9)
}

func TestComputeOrderTotalsIdempotent(t *testing.T) {
	items := []models.OrderItem{
		{TotalPrice: 9.99, AvoidedWasteKg: 0.5, AvoidedCO2Kg: 1.1, Savings: 2.0},
		{TotalPrice: 14.01, AvoidedWasteKg: 1.5, AvoidedCO2Kg: 0.9, Savings: 3.0},
	}

	first := ComputeOrderTotals(items, 2.5)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ComputeOrderTotals(items, 2.5))
	}
}

func TestComputeOrderTotalsEmpty(t *testing.T) {
	totals := ComputeOrderTotals(nil, 3.0)

	assert.Zero(t, totals.Subtotal)
	assert.InDelta(t, 3.0, totals.TotalPrice, 1e-9)
	assert.Zero(t, totals.TotalSavings)
}
