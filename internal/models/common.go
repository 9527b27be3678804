// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserType string

const (
	UserTypeCustomer UserType = "customer"
	UserTypeProducer UserType = "producer"
	UserTypeAdmin    UserType = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

type EcoScore string

const (
	EcoScoreA EcoScore = "A"
	EcoScoreB EcoScore = "B"
	EcoScoreC EcoScore = "C"
	EcoScoreD EcoScore = "D"
	EcoScoreE EcoScore = "E"
)

type StorageClass string

const (
	StorageFrozen       StorageClass = "frozen"
	StorageFresh        StorageClass = "fresh"
	StorageRefrigerated StorageClass = "refrigerated"
	StorageAmbient      StorageClass = "ambient"
	StorageDry          StorageClass = "dry"
	StorageCellar       StorageClass = "cellar"
)

type BundleStatus string

const (
	BundleStatusDraft      BundleStatus = "draft"
	BundleStatusPublished  BundleStatus = "published"
	BundleStatusArchived   BundleStatus = "archived"
	BundleStatusOutOfStock BundleStatus = "out_of_stock"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentMethodType string

const (
	PaymentMethodCard   PaymentMethodType = "card"
	PaymentMethodPayPal PaymentMethodType = "paypal"
	PaymentMethodRIB    PaymentMethodType = "rib"
)

type RewardBenefit string

const (
	RewardBenefitNone     RewardBenefit = "none"
	RewardBenefitCoupon   RewardBenefit = "coupon"
	RewardBenefitFreeShip RewardBenefit = "freeship"
)

type RewardStatus string

const (
	RewardStatusNone      RewardStatus = "none"
	RewardStatusPending   RewardStatus = "pending"
	RewardStatusBlocked   RewardStatus = "blocked"
	RewardStatusFulfilled RewardStatus = "fulfilled"
)
