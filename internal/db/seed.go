package db

import (
	"log"

	"gorm.io/gorm"

	"github.com/incridea/fest-backend/internal/models"
)

func Seed(db *gorm.DB) {
	var count int64
	db.Model(&models.Event{}).Count(&count)
	if count > 0 {
		log.Println("🌱 Data already exists, skipping seed.")
		return
	}

	db.Transaction(func(tx *gorm.DB) error {
		maxTeams := 30
		events := []models.Event{
			{
				Name:        "Hackathon",
				Type:        models.EventTeam,
				MinTeamSize: 2,
				MaxTeamSize: 4,
				MaxTeams:    &maxTeams,
				Fees:        0,
				Published:   true,
			},
			{
				Name:        "Robo Race",
				Type:        models.EventTeamMultipleEntry,
				MinTeamSize: 1,
				MaxTeamSize: 3,
				Fees:        20000,
				Published:   true,
			},
			{
				Name:        "Code Golf",
				Type:        models.EventIndividual,
				MinTeamSize: 1,
				MaxTeamSize: 1,
				Fees:        0,
				Published:   true,
			},
		}
		for i := range events {
			if err := tx.Create(&events[i]).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.Outbox{
				EntityType: "event",
				EntityID:   events[i].ID,
				Op:         "UPSERT",
			}).Error; err != nil {
				return err
			}
		}

		user := models.User{
			Name:     "Prathamesh",
			Email:    "me@example.com",
			Category: models.CategoryInternal,
			College:  "NMAMIT",
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		log.Println("🌱 Sample data inserted successfully.")
		return nil
	})
}
