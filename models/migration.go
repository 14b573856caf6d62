package models

import (
	"fmt"

	"gorm.io/gorm"
)

func MigrateTable(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Account{},
		&Item{},
		&OpeningStock{},
		&StockMovement{},
		&Purchase{},
		&Posting{}, &PostingLine{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
