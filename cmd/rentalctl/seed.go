package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"liyu1981.xyz/battery-rental-service/pkg/db"
	"liyu1981.xyz/battery-rental-service/pkg/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed <catalog.yaml>",
	Short: "Import categories, batteries and stations from a YAML catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	catalog, err := seed.Load(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DBType != "file" {
		return fmt.Errorf("seeding a %s database is pointless, it is gone when this command exits", cfg.DBType)
	}

	database, err := db.Open(db.UseSqliteDialector())
	if err != nil {
		return err
	}

	result, err := seed.Apply(cmd.Context(), database.Conn, catalog)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created %d categories, %d types, %d batteries, %d stations in %s\n",
		result.Categories, result.Types, result.Batteries, result.Stations, cfg.DBPath)
	return nil
}
