package main

import (
	"github.com/spf13/cobra"

	"github.com/relabs-tech/drinks/core/drinks"
	"github.com/relabs-tech/drinks/core/logger"
	"github.com/relabs-tech/drinks/core/registry"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema and tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := loadService()
		if err != nil {
			return err
		}
		db := service.OpenDB()
		defer db.Close()

		registry.New(db)
		if err := drinks.NewPostgres(db).Migrate(cmd.Context()); err != nil {
			return err
		}
		logger.Default().Infoln("schema", db.Schema, "is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
