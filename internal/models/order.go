// internal/models/order.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SnapshotSchemaVersion is the version written into new bundle snapshots.
// Version 1 records carry company/producer attribution only at the bundle
// level; version 2 records carry it per component.
const SnapshotSchemaVersion = 2

// SnapshotComponent freezes one bundle component at order-item creation.
// Company and producer identity is stored per component because reporting
// must tolerate historical multi-company bundles.
type SnapshotComponent struct {
	ProductID         uuid.UUID  `json:"product_id"`
	ProductTitle      string     `json:"product_title"`
	PerBundleQuantity int        `json:"per_bundle_quantity"`
	Unit              string     `json:"unit,omitempty"`
	UnitPrice         float64    `json:"unit_price,omitempty"`
	CategoryID        *uuid.UUID `json:"category_id,omitempty"`
	CategoryName      string     `json:"category_name,omitempty"`
	CompanyID         *uuid.UUID `json:"company_id,omitempty"`
	CompanyName       string     `json:"company_name,omitempty"`
	ProducerID        *uuid.UUID `json:"producer_id,omitempty"`
	ProducerName      string     `json:"producer_name,omitempty"`
}

type SnapshotArea struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// BundleSnapshot is the immutable point-in-time record attached to an order
// item. It is written once at order-item creation and never re-derived from
// live relations afterward.
type BundleSnapshot struct {
	SchemaVersion   int                 `json:"schema_version"`
	BundleID        uuid.UUID           `json:"bundle_id"`
	Title           string              `json:"title"`
	OriginalPrice   float64             `json:"original_price"`
	DiscountedPrice float64             `json:"discounted_price"`
	StockBefore     int                 `json:"stock_before"`
	StockAfter      int                 `json:"stock_after"`
	BundleCreatedAt *time.Time          `json:"bundle_created_at,omitempty"`
	Region          *SnapshotArea       `json:"region,omitempty"`
	Department      *SnapshotArea       `json:"department,omitempty"`
	Components      []SnapshotComponent `json:"components"`

	// Bundle-level attribution kept for version 1 compatibility; version 2
	// readers prefer the per-component fields.
	CompanyID    *uuid.UUID `json:"company_id,omitempty"`
	CompanyName  string     `json:"company_name,omitempty"`
	ProducerID   *uuid.UUID `json:"producer_id,omitempty"`
	ProducerName string     `json:"producer_name,omitempty"`
}

func (s BundleSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *BundleSnapshot) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, s)
}

// AddressSnapshot is the flat address record frozen on the order.
type AddressSnapshot struct {
	Line1          string `json:"line1,omitempty"`
	Complement     string `json:"complement,omitempty"`
	City           string `json:"city,omitempty"`
	PostalCode     string `json:"postal_code,omitempty"`
	DepartmentCode string `json:"department_code,omitempty"`
	Department     string `json:"department,omitempty"`
	RegionCode     string `json:"region_code,omitempty"`
	Region         string `json:"region,omitempty"`
	Country        string `json:"country,omitempty"`
}

func (s AddressSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *AddressSnapshot) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, s)
}

type PaymentMethodSnapshot struct {
	Type        PaymentMethodType `json:"type"`
	Provider    string            `json:"provider,omitempty"`
	Digits      string            `json:"digits,omitempty"`
	PayPalEmail string            `json:"paypal_email,omitempty"`
}

func (s PaymentMethodSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *PaymentMethodSnapshot) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, s)
}

type Order struct {
	BaseModel
	UserID    uuid.UUID   `json:"user_id" gorm:"type:uuid;not null;index"`
	OrderCode string      `json:"order_code" gorm:"size:20;uniqueIndex;not null"`
	Status    OrderStatus `json:"status" gorm:"type:varchar(20);default:'confirmed';index"`

	Subtotal     float64 `json:"subtotal" gorm:"type:decimal(10,2);default:0"`
	ShippingCost float64 `json:"shipping_cost" gorm:"type:decimal(8,2);default:0"`
	TotalPrice   float64 `json:"total_price" gorm:"type:decimal(10,2);not null"`

	TotalAvoidedWasteKg float64 `json:"total_avoided_waste_kg" gorm:"type:decimal(7,2);default:0"`
	TotalAvoidedCO2Kg   float64 `json:"total_avoided_co2_kg" gorm:"type:decimal(7,2);default:0"`
	TotalSavings        float64 `json:"total_savings" gorm:"type:decimal(10,2);default:0"`

	ShippingAddressID *uuid.UUID `json:"shipping_address_id" gorm:"type:uuid"`
	BillingAddressID  *uuid.UUID `json:"billing_address_id" gorm:"type:uuid"`
	PaymentMethodID   *uuid.UUID `json:"payment_method_id" gorm:"type:uuid"`

	ShippingAddressSnapshot *AddressSnapshot       `json:"shipping_address_snapshot,omitempty" gorm:"type:jsonb"`
	BillingAddressSnapshot  *AddressSnapshot       `json:"billing_address_snapshot,omitempty" gorm:"type:jsonb"`
	PaymentMethodSnapshot   *PaymentMethodSnapshot `json:"payment_method_snapshot,omitempty" gorm:"type:jsonb"`

	CustomerRating *int       `json:"customer_rating,omitempty"`
	CustomerNote   string     `json:"customer_note,omitempty" gorm:"type:text"`
	RatedAt        *time.Time `json:"rated_at,omitempty"`

	// Relationships
	User  User        `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

// NewOrderCode returns a short unique human-facing order code.
func NewOrderCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:10])
}

type OrderItem struct {
	BaseModel
	OrderID  uuid.UUID  `json:"order_id" gorm:"type:uuid;not null;index"`
	BundleID *uuid.UUID `json:"bundle_id" gorm:"type:uuid;index"`
	Quantity int        `json:"quantity" gorm:"not null"`

	TotalPrice     float64 `json:"total_price" gorm:"type:decimal(8,2);default:0"`
	AvoidedWasteKg float64 `json:"avoided_waste_kg" gorm:"type:decimal(7,2);default:0"`
	AvoidedCO2Kg   float64 `json:"avoided_co2_kg" gorm:"type:decimal(7,2);default:0"`
	Savings        float64 `json:"savings" gorm:"type:decimal(8,2);default:0"`

	BundleSnapshot *BundleSnapshot `json:"bundle_snapshot,omitempty" gorm:"type:jsonb"`

	CustomerRating *int       `json:"customer_rating,omitempty"`
	CustomerNote   string     `json:"customer_note,omitempty" gorm:"type:text"`
	RatedAt        *time.Time `json:"rated_at,omitempty"`

	// Relationships
	Order  Order   `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	Bundle *Bundle `json:"bundle,omitempty" gorm:"foreignKey:BundleID"`
}
