// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/daviddelgadop/greencart-backend/internal/config"
	"github.com/daviddelgadop/greencart-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// gen_random_uuid() lives in pgcrypto on PostgreSQL < 13
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"pgcrypto\"").Error; err != nil {
		return fmt.Errorf("failed to create pgcrypto extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.User{},
		&models.Region{},
		&models.Department{},
		&models.City{},
		&models.Address{},
		&models.Company{},
		&models.PaymentMethod{},
		&models.ProductCategory{},
		&models.ProductCatalog{},
		&models.ImpactFactor{},
		&models.Product{},
		&models.Bundle{},
		&models.BundleComponent{},
		&models.Order{},
		&models.OrderItem{},
		&models.RewardTier{},
		&models.Reward{},
		&models.UserRewardProgress{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)",
		"CREATE INDEX IF NOT EXISTS idx_users_type_status ON users(user_type, status)",

		// Catalog and product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_company ON products(company_id)",
		"CREATE INDEX IF NOT EXISTS idx_products_catalog_entry ON products(catalog_entry_id)",
		"CREATE INDEX IF NOT EXISTS idx_impact_factors_entry ON impact_factors(catalog_entry_id)",

		// Bundle indexes
		"CREATE INDEX IF NOT EXISTS idx_bundles_status ON bundles(status)",
		"CREATE INDEX IF NOT EXISTS idx_bundle_components_bundle ON bundle_components(bundle_id)",
		"CREATE INDEX IF NOT EXISTS idx_bundle_components_product ON bundle_components(product_id)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_bundle ON order_items(bundle_id)",

		// Attribution reads walk order item snapshots by company
		"CREATE INDEX IF NOT EXISTS idx_order_items_snapshot ON order_items USING GIN(bundle_snapshot)",

		// Reward indexes
		"CREATE INDEX IF NOT EXISTS idx_rewards_user ON rewards(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_reward_tiers_active ON reward_tiers(is_active)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	// Create default admin user
	var adminCount int64
	db.Model(&models.User{}).Where("user_type = ?", models.UserTypeAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.User{
			Email:     "admin@greencart.fr",
			FirstName: "System",
			LastName:  "Administrator",
			UserType:  models.UserTypeAdmin,
			Status:    models.UserStatusActive,
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("Default admin user created successfully")
	}

	// Create the default reward tier catalog
	for _, tier := range DefaultRewardTiers() {
		var count int64
		db.Model(&models.RewardTier{}).Where("code = ?", tier.Code).Count(&count)

		if count == 0 {
			if err := db.Create(&tier).Error; err != nil {
				log.Printf("Warning: Failed to create reward tier %s: %v", tier.Code, err)
			}
		}
	}

	log.Println("Initial data seeding completed")
	return nil
}

// DefaultRewardTiers is the built-in tier catalog: one ladder for avoided
// food waste and one for distinct producers supported.
func DefaultRewardTiers() []models.RewardTier {
	return []models.RewardTier{
		{
			Code:        "waste_1kg",
			Title:       "First Rescue",
			Description: "Save your first kilogram of food from going to waste",
			Icon:        "leaf",
			MinWasteKg:  1,
			BenefitKind: models.RewardBenefitNone,
		},
		{
			Code:        "waste_10kg",
			Title:       "Waste Warrior",
			Description: "Save 10 kilograms of food from going to waste",
			Icon:        "shield",
			MinWasteKg:  10,
			BenefitKind: models.RewardBenefitCoupon,
			BenefitConfig: models.JSONB{
				"percent": 5.0,
			},
		},
		{
			Code:        "waste_25kg",
			Title:       "Food Saver",
			Description: "Save 25 kilograms of food from going to waste",
			Icon:        "star",
			MinWasteKg:  25,
			BenefitKind: models.RewardBenefitCoupon,
			BenefitConfig: models.JSONB{
				"percent": 10.0,
			},
		},
		{
			Code:        "waste_50kg",
			Title:       "Rescue Champion",
			Description: "Save 50 kilograms of food from going to waste",
			Icon:        "trophy",
			MinWasteKg:  50,
			BenefitKind: models.RewardBenefitFreeShip,
		},
		{
			Code:        "waste_100kg",
			Title:       "Zero Waste Hero",
			Description: "Save 100 kilograms of food from going to waste",
			Icon:        "crown",
			MinWasteKg:  100,
			BenefitKind: models.RewardBenefitCoupon,
			BenefitConfig: models.JSONB{
				"percent": 15.0,
			},
		},
		{
			Code:                  "producers_1",
			Title:                 "Local Supporter",
			Description:           "Support your first local producer",
			Icon:                  "handshake",
			MinProducersSupported: 1,
			BenefitKind:           models.RewardBenefitNone,
		},
		{
			Code:                  "producers_5",
			Title:                 "Community Friend",
			Description:           "Support 5 different local producers",
			Icon:                  "people",
			MinProducersSupported: 5,
			BenefitKind:           models.RewardBenefitCoupon,
			BenefitConfig: models.JSONB{
				"percent": 5.0,
			},
		},
		{
			Code:                  "producers_10",
			Title:                 "Market Regular",
			Description:           "Support 10 different local producers",
			Icon:                  "basket",
			MinProducersSupported: 10,
			BenefitKind:           models.RewardBenefitFreeShip,
		},
		{
			Code:                  "producers_20",
			Title:                 "Regional Patron",
			Description:           "Support 20 different local producers",
			Icon:                  "medal",
			MinProducersSupported: 20,
			BenefitKind:           models.RewardBenefitCoupon,
			BenefitConfig: models.JSONB{
				"percent": 10.0,
			},
		},
		{
			Code:                  "producers_35",
			Title:                 "Territory Ambassador",
			Description:           "Support 35 different local producers",
			Icon:                  "globe",
			MinProducersSupported: 35,
			BenefitKind:           models.RewardBenefitCoupon,
			BenefitConfig: models.JSONB{
				"percent": 15.0,
			},
		},
	}
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
