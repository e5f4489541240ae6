package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates or updates the tables of the given models and then applies
// the constraints AutoMigrate cannot express.
func Migrate(db *gorm.DB, models ...interface{}) error {
	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
	}
	return MigrateConstraints(db)
}
