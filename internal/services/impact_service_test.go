// internal/services/impact_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daviddelgadop/greencart-backend/internal/models"
)

func TestComponentImpact(t *testing.T) {
	factor := &models.ImpactFactor{
		Quantity:       0.5,
		AvoidedWasteKg: 0.9,
		AvoidedCO2Kg:   2.5,
	}

	// 2 units per bundle, 3 bundles, normalized by the 0.5 base quantity.
	wasteKg, co2Kg := ComponentImpact(factor, 2, 3)
	assert.InDelta(t, 10.8, wasteKg, 1e-9)
	assert.InDelta(t, 30.0, co2Kg, 1e-9)
}

func TestComponentImpactBaseQuantityOne(t *testing.T) {
	factor := &models.ImpactFactor{
		Quantity:       1,
		AvoidedWasteKg: 0.3,
		AvoidedCO2Kg:   1.2,
	}

	wasteKg, co2Kg := ComponentImpact(factor, 1, 1)
	assert.InDelta(t, 0.3, wasteKg, 1e-9)
	assert.InDelta(t, 1.2, co2Kg, 1e-9)
}

func TestComponentImpactMissingFactorContributesZero(t *testing.T) {
	wasteKg, co2Kg := ComponentImpact(nil, 4, 2)
	assert.Zero(t, wasteKg)
	assert.Zero(t, co2Kg)
}

func TestComponentImpactZeroBaseQuantity(t *testing.T) {
	factor := &models.ImpactFactor{Quantity: 0, AvoidedWasteKg: 1}

	wasteKg, co2Kg := ComponentImpact(factor, 1, 1)
	assert.Zero(t, wasteKg)
	assert.Zero(t, co2Kg)
}

func TestLineSavings(t *testing.T) {
	assert.InDelta(t, 8.0, LineSavings(10, 6, 2), 1e-9)
	assert.InDelta(t, 0.0, LineSavings(5, 5, 3), 1e-9)
}

func TestLineSavingsNeverNegative(t *testing.T) {
	// A discounted price above the original is a data error; savings clamp
	// to zero instead of going negative.
	assert.Zero(t, LineSavings(5, 7, 2))
}
