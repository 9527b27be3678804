// internal/models/bundle.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Bundle wraps one or more catalog products with per-bundle quantities and a
// discounted price. All components must belong to the same owning company.
type Bundle struct {
	BaseModel
	Title                string       `json:"title" gorm:"size:255;not null"`
	Stock                int          `json:"stock" gorm:"not null;default:1"`
	DiscountedPercentage int          `json:"discounted_percentage" gorm:"default:0"`
	DiscountedPrice      float64      `json:"discounted_price" gorm:"type:decimal(10,2)"`
	OriginalPrice        float64      `json:"original_price" gorm:"type:decimal(10,2);not null"`
	Status               BundleStatus `json:"status" gorm:"type:varchar(20);default:'draft';index"`
	TotalAvoidedWasteKg  float64      `json:"total_avoided_waste_kg" gorm:"type:decimal(7,2);default:0"`
	TotalAvoidedCO2Kg    float64      `json:"total_avoided_co2_kg" gorm:"type:decimal(7,2);default:0"`
	SoldBundles          int64        `json:"sold_bundles" gorm:"default:0"`

	Components []BundleComponent `json:"components,omitempty" gorm:"foreignKey:BundleID"`
}

func (b *Bundle) IsOutOfStock() bool {
	return b.Stock == 0
}

// BundleComponent is one (product, quantity per bundle) pair inside a bundle.
type BundleComponent struct {
	BaseModel
	BundleID       uuid.UUID  `json:"bundle_id" gorm:"type:uuid;not null;uniqueIndex:idx_bundle_product"`
	ProductID      uuid.UUID  `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_bundle_product"`
	Quantity       int        `json:"quantity" gorm:"not null;default:1"`
	BestBeforeDate *time.Time `json:"best_before_date,omitempty"`
	AvoidedWasteKg float64    `json:"avoided_waste_kg" gorm:"type:decimal(7,3);default:0"`
	AvoidedCO2Kg   float64    `json:"avoided_co2_kg" gorm:"type:decimal(7,3);default:0"`

	Bundle  Bundle  `json:"bundle,omitempty" gorm:"foreignKey:BundleID"`
	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
