package database

import (
	"github.com/gdg-garage/cafe-das-mulheres/internal/config"
	"github.com/gdg-garage/cafe-das-mulheres/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto Migrate
	err = db.AutoMigrate(&models.Lot{})
	if err != nil {
		logrus.Fatalf("Failed to auto migrate: %v", err)
	}

	return db
}
