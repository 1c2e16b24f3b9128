package config

import (
	"errors"
	"fmt"
	"time"

	"hotelpro-backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ConnectDB opens the postgres pool and migrates the schema.
func ConnectDB(cfg *Config) (*gorm.DB, error) {
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is required")
	}

	db, err := gorm.Open(postgres.Open(cfg.DBURL), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Minute)

	if err := db.AutoMigrate(
		&models.Department{},
		&models.Section{},
		&models.InventoryItem{},
		&models.DepartmentInventory{},
		&models.Extra{},
		&models.DepartmentExtra{},
		&models.ServiceInventory{},
		&models.Customer{},
		&models.Order{},
		&models.OrderLine{},
		&models.OrderDepartment{},
		&models.Payment{},
		&models.Fulfillment{},
		&models.Discount{},
		&models.DepartmentTransfer{},
		&models.DepartmentTransferItem{},
		&models.Unit{},
		&models.UnitReservation{},
		&models.UnitStatusHistory{},
		&models.MaintenanceRequest{},
		&models.AuditLog{},
		&models.StockAlertLog{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return db, nil
}
