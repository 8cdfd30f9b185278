// Bootstrap tool: creates the first ADMIN account and hashes any stored
// plaintext passwords.
// cmd/create-admin/main.go
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	"manuscript-review-api/config"
	"manuscript-review-api/models"
	"manuscript-review-api/services"
	"manuscript-review-api/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	// Initialize database
	db, err := config.OpenDB(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := models.AutoMigrate(db); err != nil {
		log.Fatal("Failed to migrate database: ", err)
	}

	ctx := context.Background()
	users := services.NewUserDirectory(db)

	if email := strings.TrimSpace(os.Getenv("ADMIN_EMAIL")); email != "" {
		createAdmin(ctx, users, email)
	} else {
		log.Println("ADMIN_EMAIL not set, skipping admin creation")
	}

	// Get all users
	var all []models.User
	if err := db.Find(&all).Error; err != nil {
		log.Fatal("Failed to fetch users:", err)
	}

	// Update passwords
	for _, user := range all {
		if utils.IsBcryptHash(user.Password) {
			continue
		}

		hashedPassword, err := utils.HashPassword(user.Password)
		if err != nil {
			log.Printf("Failed to hash password for user %s: %v\n", user.Email, err)
			continue
		}

		if err := db.Model(&user).Update("password", hashedPassword).Error; err != nil {
			log.Printf("Failed to update password for user %s: %v\n", user.Email, err)
			continue
		}

		log.Printf("Successfully hashed password for user %s\n", user.Email)
	}

	log.Println("Bootstrap completed!")
}

func createAdmin(ctx context.Context, users *services.UserDirectory, email string) {
	if !utils.ValidateEmail(email) {
		log.Fatal("ADMIN_EMAIL is not a valid email address")
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if ok, msg := utils.ValidatePassword(password); !ok {
		log.Fatal("ADMIN_PASSWORD: ", msg)
	}
	name := strings.TrimSpace(os.Getenv("ADMIN_NAME"))
	if name == "" {
		name = "Administrator"
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		log.Fatal("Failed to hash admin password: ", err)
	}

	admin := &models.User{
		Name:     name,
		Email:    email,
		Password: hash,
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := users.Create(ctx, admin); err != nil {
		if errors.Is(err, services.ErrConflict) {
			log.Printf("User %s already exists, skipping admin creation\n", email)
			return
		}
		log.Fatal("Failed to create admin: ", err)
	}
	log.Printf("Created admin %s (id %d)\n", admin.Email, admin.UserID)
}
