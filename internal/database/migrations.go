// Package database provides database utilities including migrations
package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/aethra/upfronts/internal/models"
)

// RunMigrations brings the schema up to date. Ordering matters: parents
// before children so the cascade foreign keys can be created.
func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Contract{},
		&models.Installment{},
		&models.InstallmentCondition{},
		&models.Attachment{},
		&models.Event{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
