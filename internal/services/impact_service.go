// internal/services/impact_service.go
package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/daviddelgadop/greencart-backend/internal/models"
)

// ImpactService derives avoided-waste / avoided-CO2 figures for purchased
// bundle components from the impact factor reference table.
type ImpactService struct {
	db *gorm.DB
}

func NewImpactService(db *gorm.DB) *ImpactService {
	return &ImpactService{db: db}
}

// FactorFor returns the normalization row for (catalog entry, unit): the row
// with the smallest base quantity. Returns (nil, nil) when no row exists,
// which callers treat as a zero-impact data-quality gap rather than an error.
func (s *ImpactService) FactorFor(tx *gorm.DB, catalogEntryID uuid.UUID, unit string) (*models.ImpactFactor, error) {
	var factor models.ImpactFactor
	err := tx.Where("catalog_entry_id = ? AND unit = ?", catalogEntryID, unit).
		Order("quantity ASC").
		First(&factor).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &factor, nil
}

// ComponentImpact converts one reserved component into avoided waste and CO2
// kilograms. A nil factor contributes zero.
func ComponentImpact(factor *models.ImpactFactor, perBundleQuantity, bundleQuantity int) (wasteKg, co2Kg float64) {
	if factor == nil || factor.Quantity <= 0 {
		return 0, 0
	}

	multiplier := float64(perBundleQuantity) * float64(bundleQuantity) / factor.Quantity
	return multiplier * factor.AvoidedWasteKg, multiplier * factor.AvoidedCO2Kg
}

// LineSavings uses prices captured at reservation time, not any price a later
// bundle edit might carry.
func LineSavings(originalPrice, discountedPrice float64, bundleQuantity int) float64 {
	savings := (originalPrice - discountedPrice) * float64(bundleQuantity)
	if savings < 0 {
		return 0
	}
	return savings
}

// LineImpact sums component impact across one reserved bundle line. Missing
// factors are logged and contribute zero.
func (s *ImpactService) LineImpact(tx *gorm.DB, bundle *models.Bundle, bundleQuantity int) (wasteKg, co2Kg float64, err error) {
	for i := range bundle.Components {
		component := &bundle.Components[i]

		factor, err := s.FactorFor(tx, component.Product.CatalogEntryID, component.Product.Unit)
		if err != nil {
			return 0, 0, err
		}
		if factor == nil {
			logrus.WithFields(logrus.Fields{
				"bundle_id":        bundle.ID,
				"product_id":       component.ProductID,
				"catalog_entry_id": component.Product.CatalogEntryID,
				"unit":             component.Product.Unit,
			}).Warn("No impact factor for component, contributes zero")
			continue
		}

		w, c := ComponentImpact(factor, component.Quantity, bundleQuantity)
		wasteKg += w
		co2Kg += c
	}

	return wasteKg, co2Kg, nil
}

// RecomputeBundleImpact re-derives the cached per-component impact figures and
// the bundle totals for a single bundle sold once. Used by the admin data-fix
// surface after impact factor corrections.
func (s *ImpactService) RecomputeBundleImpact(bundleID uuid.UUID) (*models.Bundle, error) {
	var bundle models.Bundle

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Components.Product.CatalogEntry").
			First(&bundle, "id = ?", bundleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBundleNotFound
			}
			return err
		}

		var totalWaste, totalCO2 float64
		for i := range bundle.Components {
			component := &bundle.Components[i]

			factor, err := s.FactorFor(tx, component.Product.CatalogEntryID, component.Product.Unit)
			if err != nil {
				return err
			}

			w, c := ComponentImpact(factor, component.Quantity, 1)
			component.AvoidedWasteKg = w
			component.AvoidedCO2Kg = c
			totalWaste += w
			totalCO2 += c

			if err := tx.Model(&models.BundleComponent{}).Where("id = ?", component.ID).Updates(map[string]interface{}{
				"avoided_waste_kg": w,
				"avoided_co2_kg":   c,
			}).Error; err != nil {
				return err
			}
		}

		bundle.TotalAvoidedWasteKg = totalWaste
		bundle.TotalAvoidedCO2Kg = totalCO2

		return tx.Model(&models.Bundle{}).Where("id = ?", bundle.ID).Updates(map[string]interface{}{
			"total_avoided_waste_kg": totalWaste,
			"total_avoided_co2_kg":   totalCO2,
		}).Error
	})

	if err != nil {
		return nil, err
	}
	return &bundle, nil
}
