// internal/services/inventory_service_test.go
package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviddelgadop/greencart-backend/internal/models"
)

func TestMergeDemands(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	merged, err := mergeDemands([]BundleDemand{
		{BundleID: a, Quantity: 2},
		{BundleID: b, Quantity: 1},
		{BundleID: a, Quantity: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, 5, merged[a])
	assert.Equal(t, 1, merged[b])
}

func TestMergeDemandsEmpty(t *testing.T) {
	_, err := mergeDemands(nil)
	assert.ErrorIs(t, err, ErrEmptyCheckout)
}

func TestMergeDemandsRejectsNonPositiveQuantity(t *testing.T) {
	_, err := mergeDemands([]BundleDemand{{BundleID: uuid.New(), Quantity: 0}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = mergeDemands([]BundleDemand{{BundleID: uuid.New(), Quantity: -2}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestStockConflictErrorIsTyped(t *testing.T) {
	conflict := &StockConflictError{
		Detail: "Insufficient stock",
		Products: []ShortProduct{{
			ProductID:           uuid.New(),
			Title:               "Apples",
			StockBefore:         3,
			StockAfter:          -1,
			PerBundleQuantities: []int{2},
		}},
	}

	var target *StockConflictError
	assert.True(t, errors.As(error(conflict), &target))
	assert.Contains(t, conflict.Error(), "Insufficient stock")
}

func TestAggregateComponentDemandSharedProduct(t *testing.T) {
	shared := uuid.New()
	only := uuid.New()

	bundleA := models.Bundle{
		BaseModel:  models.BaseModel{ID: uuid.New()},
		Components: []models.BundleComponent{{ProductID: shared, Quantity: 2}},
	}
	bundleB := models.Bundle{
		BaseModel: models.BaseModel{ID: uuid.New()},
		Components: []models.BundleComponent{
			{ProductID: shared, Quantity: 3},
			{ProductID: only, Quantity: 1},
		},
	}

	merged := map[uuid.UUID]int{bundleA.ID: 2, bundleB.ID: 1}

	demand, perBundle := aggregateComponentDemand([]models.Bundle{bundleA, bundleB}, merged)

	// 2*2 from the first bundle plus 3*1 from the second.
	assert.Equal(t, 7, demand[shared])
	assert.Equal(t, 1, demand[only])

	// Both contributing quantities survive, sorted; neither overwrites the other.
	assert.Equal(t, []int{2, 3}, perBundle[shared])
	assert.Equal(t, []int{1}, perBundle[only])
}

func TestAggregateComponentDemandDeduplicatesQuantities(t *testing.T) {
	shared := uuid.New()

	bundleA := models.Bundle{
		BaseModel:  models.BaseModel{ID: uuid.New()},
		Components: []models.BundleComponent{{ProductID: shared, Quantity: 2}},
	}
	bundleB := models.Bundle{
		BaseModel:  models.BaseModel{ID: uuid.New()},
		Components: []models.BundleComponent{{ProductID: shared, Quantity: 2}},
	}

	merged := map[uuid.UUID]int{bundleA.ID: 1, bundleB.ID: 1}

	_, perBundle := aggregateComponentDemand([]models.Bundle{bundleA, bundleB}, merged)
	assert.Equal(t, []int{2}, perBundle[shared])
}
