package main

import (
	"context"
	"flag"
	"log"
	"os"

	"bitbucket.org/mmdatafocus/royalties_backend/config"
	"bitbucket.org/mmdatafocus/royalties_backend/models"
	"github.com/sirupsen/logrus"
)

// seed-admin creates the first portal admin. Intended as a one-off job:
//
//	SEED_ADMIN_PASSWORD=... go run ./cmd/seed-admin -username admin -name "Portal Admin"
func main() {
	username := flag.String("username", "admin", "admin username")
	name := flag.String("name", "Portal Admin", "display name")
	email := flag.String("email", "", "email address")
	flag.Parse()

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		log.Fatal("SEED_ADMIN_PASSWORD is required")
	}

	logger := config.GetLogger()
	logger.SetLevel(logrus.InfoLevel)
	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	ctx := context.Background()
	if _, err := models.GetUserByUsername(ctx, *username); err == nil {
		logger.WithFields(logrus.Fields{"field": "seed-admin"}).Warn("user already exists: " + *username)
		return
	}

	user, err := models.CreateUser(ctx, &models.NewUser{
		Username: *username,
		Name:     *name,
		Email:    *email,
		Password: password,
		Role:     models.UserRoleAdmin,
	})
	if err != nil {
		log.Fatal(err)
	}

	logger.WithFields(logrus.Fields{
		"field":    "seed-admin",
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("admin user created")
}
