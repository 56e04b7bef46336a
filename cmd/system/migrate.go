package system

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arcmed/arcmed_backend/config"
	"github.com/arcmed/arcmed_backend/internal/model"
	"github.com/arcmed/arcmed_backend/pkg/database"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
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

			fmt.Println("Applying schema...")
			if err := db.AutoMigrate(model.AllModels()...); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Println("Schema up to date.")
			return nil
		},
	}

	return cmd
}
