package storage

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"vmestego-backend/internal/models"
)

// Open connects to postgres and migrates the schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table. The join model has to be
// registered before AutoMigrate sees Event.Categories.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.Event{}, "Categories", &models.EventCategory{}); err != nil {
		return fmt.Errorf("setup event_categories: %w", err)
	}
	err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Event{},
		&models.EventCategory{},
		&models.EventImage{},
		&models.EventParticipation{},
		&models.EventInvitation{},
		&models.FriendRequest{},
		&models.Comment{},
		&models.CommentRating{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
