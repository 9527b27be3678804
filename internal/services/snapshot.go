// internal/services/snapshot.go
package services

import (
	"strings"

	"github.com/google/uuid"

	"github.com/daviddelgadop/greencart-backend/internal/models"
)

// BuildBundleSnapshot freezes one reserved bundle line into the immutable
// record stored on the order item. Company and producer identity is captured
// per component so historical multi-company bundles stay attributable after
// the live rows change or disappear.
func BuildBundleSnapshot(reserved ReservedBundle) models.BundleSnapshot {
	bundle := reserved.Bundle

	snapshot := models.BundleSnapshot{
		SchemaVersion:   models.SnapshotSchemaVersion,
		BundleID:        bundle.ID,
		Title:           bundle.Title,
		OriginalPrice:   bundle.OriginalPrice,
		DiscountedPrice: bundle.DiscountedPrice,
		StockBefore:     reserved.StockBefore,
		StockAfter:      reserved.StockAfter,
		BundleCreatedAt: &bundle.CreatedAt,
	}

	for i := range bundle.Components {
		component := &bundle.Components[i]
		product := &component.Product

		sc := models.SnapshotComponent{
			ProductID:         component.ProductID,
			ProductTitle:      product.Title,
			PerBundleQuantity: component.Quantity,
			Unit:              product.Unit,
			UnitPrice:         product.OriginalPrice,
		}

		if product.CatalogEntry.ID != uuid.Nil {
			categoryID := product.CatalogEntry.CategoryID
			sc.CategoryID = &categoryID
			sc.CategoryName = product.CatalogEntry.Category.Label
		}

		company := &product.Company
		if company.ID != uuid.Nil {
			companyID := company.ID
			sc.CompanyID = &companyID
			sc.CompanyName = company.Name

			ownerID := company.OwnerID
			sc.ProducerID = &ownerID
			sc.ProducerName = company.Owner.DisplayName()

			if snapshot.Region == nil {
				snapshot.Region, snapshot.Department = companyAreas(company)
			}
		}

		snapshot.Components = append(snapshot.Components, sc)
	}

	return snapshot
}

// companyAreas walks company → address → city → department → region for the
// bundle-level geography fields.
func companyAreas(company *models.Company) (region, department *models.SnapshotArea) {
	if company.Address == nil || company.Address.City == nil {
		return nil, nil
	}

	dept := company.Address.City.Department
	if dept.Code != "" {
		department = &models.SnapshotArea{Code: dept.Code, Name: dept.Name}
	}
	if dept.Region.Code != "" {
		region = &models.SnapshotArea{Code: dept.Region.Code, Name: dept.Region.Name}
	}
	return region, department
}

// BuildAddressSnapshot flattens a resolved address into the frozen order
// record.
func BuildAddressSnapshot(address *models.Address) *models.AddressSnapshot {
	if address == nil {
		return nil
	}

	snapshot := &models.AddressSnapshot{
		Line1:      strings.TrimSpace(address.StreetNumber + " " + address.StreetName),
		Complement: address.Complement,
	}

	if address.City != nil {
		snapshot.City = address.City.Name
		snapshot.PostalCode = address.City.PostalCode
		snapshot.Country = address.City.CountryName

		dept := address.City.Department
		snapshot.DepartmentCode = dept.Code
		snapshot.Department = dept.Name
		snapshot.RegionCode = dept.Region.Code
		snapshot.Region = dept.Region.Name
	}

	return snapshot
}

// BuildPaymentMethodSnapshot freezes the payment reference used at checkout.
// Digits are masked to the last four before writing: the snapshot is
// immutable, so a full card or account number must never enter it.
func BuildPaymentMethodSnapshot(pm *models.PaymentMethod) *models.PaymentMethodSnapshot {
	if pm == nil {
		return nil
	}

	return &models.PaymentMethodSnapshot{
		Type:        pm.Type,
		Provider:    pm.ProviderName,
		Digits:      maskDigits(pm.Digits),
		PayPalEmail: pm.PayPalEmail,
	}
}

func maskDigits(digits string) string {
	if digits == "" {
		return ""
	}
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	return "•••• " + digits
}
