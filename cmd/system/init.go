package system

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/arcmed/arcmed_backend/config"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/pkg/database"
	"github.com/arcmed/arcmed_backend/pkg/password"
)

// NewInitCommand bootstraps a fresh deployment: numbering state for the
// configured fiscal year plus the first platform superuser.
func NewInitCommand() *cobra.Command {
	var adminEmail, adminPassword string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Seed numbering state and the first platform superuser",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			db, err := database.NewFromCentral(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer database.Close(db)

			if err := seedNumbering(db, cfg.Accounting.FiscalYear); err != nil {
				return err
			}
			if err := seedSuperuser(db, cfg, adminEmail, adminPassword); err != nil {
				return err
			}

			fmt.Println("Initialization complete.")
			return nil
		},
	}

	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "email for the first platform superuser")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "initial password for the superuser")

	return cmd
}

func seedNumbering(db *gorm.DB, fiscalYear string) error {
	var existing model.NumberingState
	err := db.First(&existing).Error
	if err == nil {
		fmt.Printf("Numbering state already present (fiscal year %s).\n", existing.FiscalYear)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check numbering state: %w", err)
	}

	state := model.DefaultNumberingState(fiscalYear)
	if err := db.Create(&state).Error; err != nil {
		return fmt.Errorf("seed numbering state: %w", err)
	}
	fmt.Printf("Numbering state seeded for fiscal year %s.\n", fiscalYear)
	return nil
}

func seedSuperuser(db *gorm.DB, cfg *config.Config, email, plaintext string) error {
	if email == "" {
		fmt.Println("No --admin-email given; skipping superuser seed.")
		return nil
	}
	if plaintext == "" {
		return errors.New("--admin-password is required with --admin-email")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	if err := db.Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return fmt.Errorf("check superuser: %w", err)
	}
	if count > 0 {
		fmt.Printf("User %s already exists; skipping superuser seed.\n", email)
		return nil
	}

	hash, err := password.HashWithParams(plaintext, password.FromCentralConfig(cfg.Password))
	if err != nil {
		return fmt.Errorf("hash superuser password: %w", err)
	}

	user := model.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     "Platform Administrator",
		Role:         model.RolePlatformSuper,
		IsActive:     true,
		// the seeded password is handed over out of band and must be rotated
		ForcePasswordChange: true,
	}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("seed superuser: %w", err)
	}
	fmt.Printf("Platform superuser %s created.\n", email)
	return nil
}
