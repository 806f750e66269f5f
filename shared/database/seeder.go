package database

import (
	"log"

	"taskhub-backend/shared/config"
	"taskhub-backend/shared/database/models"
	utils "taskhub-backend/shared/utils/auth"
)

// SeedDatabase seeds an empty database with the bootstrap organization and
// its Owner. A non-empty user table is left untouched: the Owner exists
// exactly once and is never re-created.
func SeedDatabase() error {
	log.Println("🌱 Checking database seed data...")

	var userCount int64
	if err := DB.Model(&models.User{}).Count(&userCount).Error; err != nil {
		return err
	}

	if userCount > 0 {
		log.Println("✅ Database seed data is up to date")
		return nil
	}

	cfg := config.GetConfig()

	organization := models.Organization{
		Name:        "Main Organization",
		Description: "Primary organization for task management",
	}
	if err := DB.Create(&organization).Error; err != nil {
		return err
	}

	hashedPassword, err := utils.HashPassword(cfg.OwnerPassword)
	if err != nil {
		return err
	}

	owner := models.User{
		Email:          cfg.OwnerEmail,
		Password:       hashedPassword,
		FirstName:      "System",
		LastName:       "Owner",
		Role:           models.RoleOwner,
		IsActive:       true,
		OrganizationID: organization.ID,
	}
	if err := DB.Create(&owner).Error; err != nil {
		return err
	}

	log.Printf("✅ Bootstrap owner created: %s (organization %s)", owner.Email, organization.Name)
	return nil
}
