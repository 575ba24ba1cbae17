package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"liyu1981.xyz/battery-rental-service/pkg/common"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "rentalctl",
	Short: "Operator tools for the battery rental service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile == "" {
			return nil
		}
		// a missing default .env is fine; the environment may already be set
		if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env") {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file with RENTAL_* settings, empty to skip")
}

func loadConfig() (*common.ServerConfig, error) {
	cfg, err := common.LoadServerConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
