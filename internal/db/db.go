package db

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"floofy/internal/config"
)

// Connect opens a GORM database connection using APP_DATABASE_URL (PostgreSQL URL).
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		return nil, errors.New("APP_DATABASE_URL is required (PostgreSQL URL)")
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil, errors.New("APP_DATABASE_URL must be a postgres:// or postgresql:// URL")
	}

	// PrepareStmt: true prevents the GORM postgres migrator from forcing simple protocol
	// for "SELECT * FROM table LIMIT 1", which would otherwise trigger "insufficient arguments".
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{PrepareStmt: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate auto-migrates the core tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Upload{}, &ViewEvent{}, &DailyRollup{}, &APIKey{})
}

// EnsureBootstrapAccount seeds an initial user and upload API key from the
// bootstrap credentials in config, so a fresh install can accept uploads
// before any account exists. If the username is already taken the existing
// account is left as-is; the key is re-pointed at it when necessary.
func EnsureBootstrapAccount(db *gorm.DB, cfg *config.Config) error {
	if cfg.BootstrapUser == "" || cfg.BootstrapKey == "" {
		return nil
	}

	var user User
	err := db.Where("username = ?", cfg.BootstrapUser).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		hash, herr := bcrypt.GenerateFromPassword([]byte(cfg.BootstrapKey), bcrypt.DefaultCost)
		if herr != nil {
			return herr
		}
		user = User{Username: cfg.BootstrapUser, PasswordHash: string(hash)}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	// Check if the key already exists (use Find so "not found" doesn't log as error).
	var existingKey APIKey
	if err := db.Where("key = ?", cfg.BootstrapKey).Limit(1).Find(&existingKey).Error; err != nil {
		return err
	}
	if existingKey.ID != 0 {
		if existingKey.UserID != user.ID {
			existingKey.UserID = user.ID
			existingKey.Active = true
			return db.Save(&existingKey).Error
		}
		return nil
	}

	key := &APIKey{
		UserID: user.ID,
		Name:   "bootstrap",
		Key:    cfg.BootstrapKey,
		Active: true,
	}
	return db.Create(key).Error
}
