package main

import (
	"os"

	"github.com/spf13/cobra"

	"nyxvpn/internal/interfaces/cli/migrate"
	"nyxvpn/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nyxvpn",
		Short: "NyxVPN subscription provisioning service",
		Long:  `NyxVPN provisions VPN subscriptions on x-ui panels, tracks balances and referrals, and reconciles expired entitlements.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
