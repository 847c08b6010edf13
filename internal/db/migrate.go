package db

import (
	"log"

	"gorm.io/gorm"

	"github.com/incridea/fest-backend/internal/models"
)

func Migrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.Team{},
		&models.TeamMember{},
		&models.PaymentOrder{},
		&models.PID{},
		&models.PIDCounter{},
		&models.PriorUser{},
		&models.ReceiptJob{},
		&models.ReceiptDLQ{},
		&models.Outbox{},
		&models.SearchDLQ{},
	)
	if err != nil {
		log.Fatalf("❌ migration failed: %v", err)
	}
	log.Println("✅ database migrated successfully")
}
