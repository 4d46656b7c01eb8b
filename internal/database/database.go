package database

import (
	"humrah/config"
	"humrah/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		TranslateError: true, // surface gorm.ErrDuplicatedKey on unique-index races
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Block{},
		&models.RandomBooking{},
		&models.MatchRecord{},
		&models.WeeklyUsage{},
		&models.Chat{},
		&models.ChatMessage{},
		&models.EncryptionKey{},
		&models.KeyGrant{},
		&models.VoiceCall{},
		&models.SafetyReport{},
	)
}
