package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "botctl",
	Short: "Maintenance commands for the dialogue bot store",
	Long: `botctl runs one-off maintenance tasks against the Redis store used by
the dialogue bot. It reads the same environment (and .env file) as the
server.

Examples:
  botctl split-users
  botctl dedupe-messages
  botctl delete-user 1234567890
  botctl schema > content.schema.json`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		envFile, _ := cmd.Flags().GetString("env-file")
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Overload(envFile); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", envFile, err)
			}
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(splitUsersCmd)
	rootCmd.AddCommand(dedupeMessagesCmd)
	rootCmd.AddCommand(deleteMessageKeysCmd)
	rootCmd.AddCommand(deleteUserCmd)
	rootCmd.AddCommand(unarchiveCmd)
	rootCmd.AddCommand(schemaCmd)

	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file to load before connecting")
}
