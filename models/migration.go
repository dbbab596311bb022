package models

import (
	"log"

	"bitbucket.org/mmdatafocus/royalties_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Artist{}, &Track{},
		&Upload{}, &RoyaltyImport{}, &RoyaltyLineItem{},
		&PaymentRequest{}, &Invoice{},
		&EventRecord{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
