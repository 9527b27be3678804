// internal/models/company.go
package models

import (
	"github.com/google/uuid"
)

type Region struct {
	BaseModel
	Code string `json:"code" gorm:"size:5;uniqueIndex;not null"`
	Name string `json:"name" gorm:"size:100;not null"`
}

type Department struct {
	BaseModel
	Code     string    `json:"code" gorm:"size:5;uniqueIndex;not null"`
	Name     string    `json:"name" gorm:"size:100;not null"`
	RegionID uuid.UUID `json:"region_id" gorm:"type:uuid;not null;index"`

	Region Region `json:"region,omitempty" gorm:"foreignKey:RegionID"`
}

type City struct {
	BaseModel
	Name         string    `json:"name" gorm:"size:100;not null"`
	PostalCode   string    `json:"postal_code" gorm:"size:10;index"`
	DepartmentID uuid.UUID `json:"department_id" gorm:"type:uuid;not null;index"`
	CountryName  string    `json:"country_name" gorm:"size:100;default:'FRANCE'"`

	Department Department `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
}

type Address struct {
	BaseModel
	UserID       uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Title        string     `json:"title" gorm:"size:100"`
	StreetNumber string     `json:"street_number" gorm:"size:10"`
	StreetName   string     `json:"street_name" gorm:"size:255"`
	Complement   string     `json:"complement,omitempty" gorm:"size:255"`
	CityID       *uuid.UUID `json:"city_id" gorm:"type:uuid;index"`
	IsPrimary    bool       `json:"is_primary" gorm:"default:false"`

	User User  `json:"user,omitempty" gorm:"foreignKey:UserID"`
	City *City `json:"city,omitempty" gorm:"foreignKey:CityID"`
}

// Company is a producer-owned business selling products on the marketplace.
type Company struct {
	BaseModel
	OwnerID     uuid.UUID  `json:"owner_id" gorm:"type:uuid;not null;index"`
	Name        string     `json:"name" gorm:"size:255;not null"`
	SiretNumber string     `json:"siret_number" gorm:"size:14"`
	AddressID   *uuid.UUID `json:"address_id" gorm:"type:uuid"`
	Description string     `json:"description" gorm:"type:text"`

	Owner    User      `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Address  *Address  `json:"address,omitempty" gorm:"foreignKey:AddressID"`
	Products []Product `json:"products,omitempty" gorm:"foreignKey:CompanyID"`
}

type PaymentMethod struct {
	BaseModel
	UserID       uuid.UUID         `json:"user_id" gorm:"type:uuid;not null;index"`
	Type         PaymentMethodType `json:"type" gorm:"type:varchar(20);not null"`
	ProviderName string            `json:"provider_name" gorm:"size:50"`
	Digits       string            `json:"digits,omitempty" gorm:"size:34"`
	PayPalEmail  string            `json:"paypal_email,omitempty" gorm:"size:255"`
	IsDefault    bool              `json:"is_default" gorm:"default:false"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
