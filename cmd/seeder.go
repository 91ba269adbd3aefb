package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	userDatamodel "github.com/campuscare/grievance-management/internal/core/datamodel/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with a bootstrap admin account",
	Long:  `Seed the database with the initial administrator and sample staff accounts for development.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlxDB.Close()

		db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlxDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		// Bootstrap accounts start in the forced-password-change state; the
		// password below only works until first login.
		hash, _ := bcrypt.GenerateFromPassword([]byte("ChangeMe123"), bcrypt.DefaultCost)

		itDept := "Information Technology"
		seedUsers := []userDatamodel.User{
			{
				Email:               "admin@campus.local",
				Name:                "Portal Administrator",
				Role:                "ADMIN",
				College:             "Central Administration",
				PasswordHash:        string(hash),
				ForcePasswordChange: true,
				IsActive:            true,
			},
			{
				Email:               "subadmin.it@campus.local",
				Name:                "IT Grievance Officer",
				Role:                "SUB_ADMIN",
				Department:          &itDept,
				College:             "College of Engineering",
				PasswordHash:        string(hash),
				ForcePasswordChange: true,
				IsActive:            true,
			},
		}

		now := time.Now()
		for _, u := range seedUsers {
			var exists int64
			db.Model(&userDatamodel.User{}).Where("email = ?", u.Email).Count(&exists)
			if exists > 0 {
				fmt.Println("user already exists, skipping:", u.Email)
				continue
			}

			u.CreatedAt = now
			u.UpdatedAt = now
			if err := db.Create(&u).Error; err != nil {
				log.Fatalf("failed to seed user %s: %v", u.Email, err)
			}
			fmt.Println("seeded user:", u.Email)
		}
	},
}
