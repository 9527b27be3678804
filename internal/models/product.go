// internal/models/product.go
package models

import (
	"github.com/google/uuid"
)

type ProductCategory struct {
	BaseModel
	Code  string `json:"code" gorm:"size:50;uniqueIndex;not null"`
	Label string `json:"label" gorm:"size:100;not null"`
}

// ProductCatalog is the shared catalog entry a Product points at. Impact
// lookup and category/display data hang off the catalog entry, not the
// producer-specific Product row.
type ProductCatalog struct {
	BaseModel
	Name                string       `json:"name" gorm:"size:150;not null"`
	CategoryID          uuid.UUID    `json:"category_id" gorm:"type:uuid;not null;index"`
	EcoScore            EcoScore     `json:"eco_score" gorm:"type:varchar(2);default:'A'"`
	StorageInstructions StorageClass `json:"storage_instructions,omitempty" gorm:"type:varchar(20)"`

	Category ProductCategory `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Impacts  []ImpactFactor  `json:"impacts,omitempty" gorm:"foreignKey:CatalogEntryID"`
}

// ImpactFactor maps (catalog entry, unit, base quantity) to per-base-quantity
// avoided waste / avoided CO2 / real weight. The smallest-quantity row for a
// given (entry, unit) is the normalization base for all impact computations.
type ImpactFactor struct {
	BaseModel
	CatalogEntryID     uuid.UUID `json:"catalog_entry_id" gorm:"type:uuid;not null;uniqueIndex:idx_impact_entry_unit_qty"`
	Unit               string    `json:"unit" gorm:"size:20;not null;uniqueIndex:idx_impact_entry_unit_qty"`
	Quantity           float64   `json:"quantity" gorm:"type:decimal(7,3);not null;uniqueIndex:idx_impact_entry_unit_qty"`
	WeightEquivalentKg float64   `json:"weight_equivalent_kg" gorm:"type:decimal(7,3)"`
	AvoidedWasteKg     float64   `json:"avoided_waste_kg" gorm:"type:decimal(7,3)"`
	AvoidedCO2Kg       float64   `json:"avoided_co2_kg" gorm:"type:decimal(7,3)"`

	CatalogEntry ProductCatalog `json:"catalog_entry,omitempty" gorm:"foreignKey:CatalogEntryID"`
}

type Product struct {
	BaseModel
	CompanyID      uuid.UUID `json:"company_id" gorm:"type:uuid;not null;index"`
	CatalogEntryID uuid.UUID `json:"catalog_entry_id" gorm:"type:uuid;not null;index"`
	Title          string    `json:"title" gorm:"size:255;not null"`
	Variety        string    `json:"variety,omitempty" gorm:"size:255"`
	Description    string    `json:"description,omitempty" gorm:"type:text"`
	OriginalPrice  float64   `json:"original_price" gorm:"type:decimal(10,2);not null"`
	Stock          int       `json:"stock" gorm:"not null;default:0"`
	Unit           string    `json:"unit" gorm:"size:20;not null"`
	SoldUnits      int64     `json:"sold_units" gorm:"default:0"`

	Company      Company        `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
	CatalogEntry ProductCatalog `json:"catalog_entry,omitempty" gorm:"foreignKey:CatalogEntryID"`
}
