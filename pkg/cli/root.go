// Package cli holds the sudobot command tree.
package cli

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// RootCmd returns the sudobot root command with all subcommands attached.
func RootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sudobot",
		Short: "Sudo - a playful Discord bot that pretends to run your commands",
		Long: `Sudo answers "$sudo <anything>" with a canned reply that escalates when the
same user repeats the same command within a short window.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "config.yml", "Path to config.yml")

	rootCmd.AddCommand(RunCmd())
	rootCmd.AddCommand(PruneCommandsCmd())

	return rootCmd
}

func Execute(ctx context.Context) error {
	return RootCmd().ExecuteContext(ctx)
}

// loadEnv reads .env for secrets, if present.
func loadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
}
