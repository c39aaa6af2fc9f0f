package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "pulseboard",
	Short: "Pulseboard CLI - manage dashboards and scheduled reports",
	Long: `Pulseboard CLI is a command-line client for the Pulseboard server.
It manages dashboards, sharing and scheduled report deliveries.`,
}

func init() {
	viper.SetConfigName(".pulseboard")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetDefault("server", "http://localhost:8080")
	_ = viper.ReadInConfig()

	rootCmd.AddCommand(newLoginCommand())
	rootCmd.AddCommand(newDashboardCommand())
	rootCmd.AddCommand(newScheduleCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
