package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/daviddelgadop/greencart-backend/internal/database"
	"github.com/daviddelgadop/greencart-backend/internal/models"
)

// SetupTestDB starts a throwaway PostgreSQL container and runs the full
// migration set against it.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("greencart_test"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect to test database")

	require.NoError(t, database.RunMigrations(db), "failed to run migrations")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return db
}

// Fixture is one complete purchasable world: a customer with an address and
// payment method, two producers with companies, a catalog entry with impact
// factors, and a published two-product bundle.
type Fixture struct {
	Customer      models.User
	Address       models.Address
	PaymentMethod models.PaymentMethod

	ProducerA models.User
	ProducerB models.User
	CompanyA  models.Company
	CompanyB  models.Company

	Category models.ProductCategory
	Catalog  models.ProductCatalog

	ProductA models.Product
	ProductB models.Product
	Bundle   models.Bundle
}

// SeedFixture writes the fixture world. Bundle stock and component stock are
// parameters so individual tests can shape scarcity.
func SeedFixture(t *testing.T, db *gorm.DB, bundleStock, productStock int) *Fixture {
	t.Helper()

	f := &Fixture{}

	region := models.Region{Code: "ARA", Name: "Auvergne-Rhône-Alpes"}
	require.NoError(t, db.Create(&region).Error)
	department := models.Department{Code: "69", Name: "Rhône", RegionID: region.ID}
	require.NoError(t, db.Create(&department).Error)
	city := models.City{Name: "Lyon", PostalCode: "69002", DepartmentID: department.ID}
	require.NoError(t, db.Create(&city).Error)

	f.Customer = models.User{
		Email:     uniqueEmail("customer"),
		FirstName: "Claire",
		LastName:  "Martin",
		UserType:  models.UserTypeCustomer,
		Status:    models.UserStatusActive,
	}
	require.NoError(t, f.Customer.SetPassword("Sup3r-secret!"))
	require.NoError(t, db.Create(&f.Customer).Error)

	cityID := city.ID
	f.Address = models.Address{
		UserID:       f.Customer.ID,
		StreetNumber: "12",
		StreetName:   "Rue des Halles",
		CityID:       &cityID,
		IsPrimary:    true,
	}
	require.NoError(t, db.Create(&f.Address).Error)

	f.PaymentMethod = models.PaymentMethod{
		UserID:       f.Customer.ID,
		Type:         models.PaymentMethodCard,
		ProviderName: "Visa",
		Digits:       "4242",
		IsDefault:    true,
	}
	require.NoError(t, db.Create(&f.PaymentMethod).Error)

	f.ProducerA = models.User{
		Email:             uniqueEmail("marie"),
		PublicDisplayName: "Marie",
		UserType:          models.UserTypeProducer,
		Status:            models.UserStatusActive,
	}
	require.NoError(t, f.ProducerA.SetPassword("Sup3r-secret!"))
	require.NoError(t, db.Create(&f.ProducerA).Error)

	f.ProducerB = models.User{
		Email:             uniqueEmail("paul"),
		PublicDisplayName: "Paul",
		UserType:          models.UserTypeProducer,
		Status:            models.UserStatusActive,
	}
	require.NoError(t, f.ProducerB.SetPassword("Sup3r-secret!"))
	require.NoError(t, db.Create(&f.ProducerB).Error)

	companyAddress := models.Address{
		UserID:       f.ProducerA.ID,
		StreetNumber: "3",
		StreetName:   "Chemin du Verger",
		CityID:       &cityID,
	}
	require.NoError(t, db.Create(&companyAddress).Error)
	companyAddressID := companyAddress.ID

	f.CompanyA = models.Company{
		OwnerID:   f.ProducerA.ID,
		Name:      "Ferme du Verger",
		AddressID: &companyAddressID,
	}
	require.NoError(t, db.Create(&f.CompanyA).Error)

	f.CompanyB = models.Company{
		OwnerID: f.ProducerB.ID,
		Name:    "Vergers Réunis",
	}
	require.NoError(t, db.Create(&f.CompanyB).Error)

	f.Category = models.ProductCategory{Code: uniqueCode("fruits"), Label: "Fruits"}
	require.NoError(t, db.Create(&f.Category).Error)

	f.Catalog = models.ProductCatalog{
		Name:       "Apple",
		CategoryID: f.Category.ID,
		EcoScore:   models.EcoScoreA,
	}
	require.NoError(t, db.Create(&f.Catalog).Error)

	// Two factor rows: the smaller base quantity must win the lookup.
	require.NoError(t, db.Create(&models.ImpactFactor{
		CatalogEntryID: f.Catalog.ID,
		Unit:           "kg",
		Quantity:       1,
		AvoidedWasteKg: 1,
		AvoidedCO2Kg:   2.5,
	}).Error)
	require.NoError(t, db.Create(&models.ImpactFactor{
		CatalogEntryID: f.Catalog.ID,
		Unit:           "kg",
		Quantity:       5,
		AvoidedWasteKg: 4.5,
		AvoidedCO2Kg:   11,
	}).Error)

	f.ProductA = models.Product{
		CompanyID:      f.CompanyA.ID,
		CatalogEntryID: f.Catalog.ID,
		Title:          "Apples",
		OriginalPrice:  3,
		Stock:          productStock,
		Unit:           "kg",
	}
	require.NoError(t, db.Create(&f.ProductA).Error)

	f.ProductB = models.Product{
		CompanyID:      f.CompanyB.ID,
		CatalogEntryID: f.Catalog.ID,
		Title:          "Pears",
		OriginalPrice:  12,
		Stock:          productStock,
		Unit:           "kg",
	}
	require.NoError(t, db.Create(&f.ProductB).Error)

	f.Bundle = models.Bundle{
		Title:           "Rescue Basket",
		Stock:           bundleStock,
		OriginalPrice:   30,
		DiscountedPrice: 18,
		Status:          models.BundleStatusPublished,
	}
	require.NoError(t, db.Create(&f.Bundle).Error)

	require.NoError(t, db.Create(&models.BundleComponent{
		BundleID:  f.Bundle.ID,
		ProductID: f.ProductA.ID,
		Quantity:  2,
	}).Error)
	require.NoError(t, db.Create(&models.BundleComponent{
		BundleID:  f.Bundle.ID,
		ProductID: f.ProductB.ID,
		Quantity:  1,
	}).Error)

	return f
}

func uniqueEmail(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8] + "@example.com"
}

func uniqueCode(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}
