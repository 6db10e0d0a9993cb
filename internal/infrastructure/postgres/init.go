package postgres

import (
	"log"

	"github.com/cambix/pricing-service/internal/config"
	"github.com/cambix/pricing-service/internal/infrastructure/migrate"
	"github.com/cambix/pricing-service/internal/infrastructure/postgres/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func MustInitDB(cfg *config.PricingConfig) *gorm.DB {
	dsn := cfg.PricingDB.Dsn
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to init db: %v\n", err.Error())
	}

	if cfg.PricingDB.MigrationsPath != "" {
		if err := migrate.RunMigrations(db, cfg.PricingDB.MigrationsPath); err != nil {
			log.Fatalf("failed to run migrations: %v\n", err.Error())
		}
		log.Println("migrations applied")
		return db
	}

	db.AutoMigrate(&models.PriceLockModel{}, &models.TransactionModel{})

	return db
}
