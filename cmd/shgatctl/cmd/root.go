package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serverURL string
	authToken string
)

var rootCmd = &cobra.Command{
	Use:   "shgatctl",
	Short: "Command-line client for a shgat-engine server",
}

// Execute runs the root command, exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "shgat-engine server base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "bearer token for OIDC-protected endpoints")

	viper.SetEnvPrefix("SHGATCTL")
	viper.AutomaticEnv()
	if v := viper.GetString("SERVER"); v != "" && serverURL == "http://localhost:8080" {
		serverURL = v
	}
	if v := viper.GetString("TOKEN"); v != "" && authToken == "" {
		authToken = v
	}

	rootCmd.AddCommand(insertToolCmd)
	rootCmd.AddCommand(insertCapabilityCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(replCmd)
}

func newClientFromFlags() *client {
	return newClient(serverURL, authToken)
}
