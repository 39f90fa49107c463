package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"kedoo/pkg/config"
	"kedoo/pkg/database"
	"kedoo/pkg/jwt"
	"kedoo/pkg/logger"
	"kedoo/pkg/models"

	"gorm.io/gorm"
)

type seedUser struct {
	email string
	name  string
	role  models.UserRole
}

var seedUsers = []seedUser{
	{email: "owner@kedoo.local", name: "Test Owner", role: models.RoleOwner},
	{email: "moderator@kedoo.local", name: "Test Moderator", role: models.RoleModerator},
}

func main() {
	var migrate bool
	flag.BoolVar(&migrate, "automigrate", false, "Create the users table before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New()
	db, err := database.NewDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		panic(err)
	}

	if migrate || cfg.DBDriver == "sqlite" {
		if err := db.AutoMigrate(&models.User{}); err != nil {
			log.Error("Failed to migrate users: %v", err)
			panic(err)
		}
	}

	jwtService := jwt.NewServiceWithTTL(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)

	for _, data := range seedUsers {
		user, err := upsertUser(db, data)
		if err != nil {
			log.Error("Failed to seed user %s: %v", data.email, err)
			continue
		}

		token, err := jwtService.GenerateToken(user.ID, string(user.Role))
		if err != nil {
			log.Error("Failed to issue token for %s: %v", user.Email, err)
			continue
		}

		log.Info("Seeded %s (%s) id=%s", user.Email, user.Role, user.ID)
		fmt.Printf("%s\t%s\n", user.Role, token)
	}
}

func upsertUser(db *gorm.DB, data seedUser) (*models.User, error) {
	var user models.User
	err := db.Where("email = ?", data.email).First(&user).Error
	switch {
	case err == nil:
		if user.Role != data.role {
			if err := db.Model(&user).Update("role", data.role).Error; err != nil {
				return nil, err
			}
		}
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{Email: data.email, Name: data.name, Role: data.role}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	default:
		return nil, err
	}
}
